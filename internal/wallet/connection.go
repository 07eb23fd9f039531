// Package wallet owns the process-wide wallet connection state and the
// address helpers shared by the services.
package wallet

import (
	"context"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"hashpay/models"
	"hashpay/pkg/apperr"
	"hashpay/pkg/stream"
)

// Connection is created once at startup and handed to every consumer.
// Writes persist first and publish second, so subscribers never see a state
// the store does not have.
type Connection struct {
	mu    sync.Mutex
	store Store
	state *stream.State[models.WalletState]
}

func NewConnection(store Store) *Connection {
	return &Connection{
		store: store,
		state: stream.NewState(models.WalletState{}),
	}
}

// Load reads the persisted state and publishes it.
func (c *Connection) Load(ctx context.Context) (models.WalletState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var st models.WalletState
	raw, _, err := c.store.Get(ctx, KeyConnected)
	if err != nil {
		return st, err
	}
	st.Connected, _ = strconv.ParseBool(raw)

	if st.Address, _, err = c.store.Get(ctx, KeyAddress); err != nil {
		return st, err
	}
	kind, _, err := c.store.Get(ctx, KeyType)
	if err != nil {
		return st, err
	}
	st.Kind = models.WalletKind(kind)

	if st.Connected && st.Address == "" {
		logrus.Warn("persisted wallet state is connected without an address, treating as disconnected")
		st = models.WalletState{}
	}

	c.state.Set(st)
	logrus.WithFields(logrus.Fields{
		"connected": st.Connected,
		"address":   st.Address,
		"kind":      st.Kind,
	}).Info("wallet state loaded")
	return st, nil
}

// Connect records address as the active wallet. Address format is the
// caller's concern.
func (c *Connection) Connect(ctx context.Context, address string, kind models.WalletKind) error {
	if !kind.Valid() {
		return apperr.Validationf("unknown wallet type %q", kind)
	}
	return c.write(ctx, models.WalletState{Connected: true, Address: address, Kind: kind})
}

func (c *Connection) UseSmartContract(ctx context.Context, address string) error {
	return c.Connect(ctx, address, models.WalletSmartContract)
}

// Disconnect clears the address and kind along with the flag.
func (c *Connection) Disconnect(ctx context.Context) error {
	return c.write(ctx, models.WalletState{})
}

func (c *Connection) State() models.WalletState {
	return c.state.Get()
}

// Address returns the active address when connected.
func (c *Connection) Address() (string, bool) {
	st := c.state.Get()
	if !st.Connected || st.Address == "" {
		return "", false
	}
	return st.Address, true
}

func (c *Connection) Subscribe(ctx context.Context) <-chan models.WalletState {
	return c.state.Subscribe(ctx)
}

func (c *Connection) write(ctx context.Context, st models.WalletState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.store.SetMany(ctx, map[string]string{
		KeyConnected: strconv.FormatBool(st.Connected),
		KeyAddress:   st.Address,
		KeyType:      string(st.Kind),
	})
	if err != nil {
		return err
	}
	c.state.Set(st)
	logrus.WithFields(logrus.Fields{
		"connected": st.Connected,
		"address":   st.Address,
		"kind":      st.Kind,
	}).Info("wallet state changed")
	return nil
}
