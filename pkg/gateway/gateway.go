// Package gateway talks to the wallet provider and the EVM node over
// JSON-RPC. It holds no key material: signing happens on the provider side
// and the gateway only sees addresses and hashes.
package gateway

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"hashpay/pkg/apperr"
	"hashpay/pkg/metrics"
)

// Provider is the JSON-RPC transport. *rpc.Client implements it.
type Provider interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

type Gateway struct {
	provider Provider
	cfg      Config
	limiter  *rate.Limiter
	connects singleflight.Group

	mu       sync.RWMutex
	selected string
}

func New(provider Provider, cfg Config) *Gateway {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Gateway{
		provider: provider,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, cfg.RateBurst),
	}
}

// Dial connects to a provider endpoint (http, ws or ipc).
func Dial(ctx context.Context, url string, cfg Config) (*Gateway, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial wallet provider %s", url)
	}
	return New(client, cfg), nil
}

func (g *Gateway) Close() {
	g.provider.Close()
}

func (g *Gateway) IsConnected() bool {
	return g.selectedAddress() != ""
}

func (g *Gateway) selectedAddress() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.selected
}

func (g *Gateway) setSelected(address string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selected = address
}

// Connect asks the wallet to approve this app and returns the selected
// account. It returns immediately when an account is already selected, and
// concurrent callers share one handshake. The handshake is not tied to any
// single caller's context, only to the connect timeout.
func (g *Gateway) Connect(ctx context.Context) (string, error) {
	if addr := g.selectedAddress(); addr != "" {
		return addr, nil
	}

	ch := g.connects.DoChan("connect", func() (interface{}, error) {
		if addr := g.selectedAddress(); addr != "" {
			return addr, nil
		}
		metrics.ConnectHandshakes.Inc()
		logrus.Info("requesting wallet approval")

		var accounts []common.Address
		err := g.call(context.WithoutCancel(ctx), g.cfg.ConnectTimeout, "connect", &accounts, "eth_requestAccounts")
		if err != nil {
			return "", err
		}
		if len(accounts) == 0 {
			return "", apperr.RPC(apperr.CodeInternal, "wallet approved no accounts")
		}
		addr := accounts[0].Hex()
		g.setSelected(addr)
		logrus.WithField("address", addr).Info("wallet connected")
		return addr, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", mapError("connect", ctx.Err())
	}
}

// SelectedAddress asks the provider which account is still authorized.
// An empty result means the session is gone.
func (g *Gateway) SelectedAddress(ctx context.Context) (string, error) {
	var accounts []common.Address
	if err := g.call(ctx, g.cfg.BalanceTimeout, "accounts", &accounts, "eth_accounts"); err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		g.setSelected("")
		return "", nil
	}
	addr := accounts[0].Hex()
	g.setSelected(addr)
	return addr, nil
}

// GetBalance returns the latest balance of address in wei. Without a
// selected account it tries to connect once first, unless SkipAutoConnect
// is given.
func (g *Gateway) GetBalance(ctx context.Context, address string, opts ...CallOption) (*big.Int, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !common.IsHexAddress(address) {
		return nil, apperr.Validationf("invalid address %q", address)
	}
	if !g.IsConnected() {
		if o.skipAutoConnect {
			return nil, apperr.NotConnected("wallet is not connected")
		}
		if _, err := g.Connect(ctx); err != nil {
			return nil, err
		}
	}

	var balance hexutil.Big
	err := g.call(ctx, g.cfg.BalanceTimeout, "balance", &balance, "eth_getBalance", common.HexToAddress(address), "latest")
	if err != nil {
		return nil, err
	}
	return balance.ToInt(), nil
}

type sendArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value"`
	Data  *hexutil.Bytes `json:"data,omitempty"`
}

// SendTransaction submits a plain value transfer through the wallet.
func (g *Gateway) SendTransaction(ctx context.Context, from, to string, valueWei *big.Int) (string, error) {
	if !common.IsHexAddress(to) {
		return "", apperr.Validationf("invalid recipient address %q", to)
	}
	return g.send(ctx, sendArgs{
		From:  common.HexToAddress(from),
		To:    common.HexToAddress(to),
		Value: (*hexutil.Big)(valueWei),
	})
}

// SendContractCall submits pay(recipient, message) to contract with
// valueWei attached.
func (g *Gateway) SendContractCall(ctx context.Context, from, contract, recipient, message string, valueWei *big.Int) (string, error) {
	if !common.IsHexAddress(contract) {
		return "", apperr.Validationf("invalid contract address %q", contract)
	}
	data, err := EncodePay(recipient, message)
	if err != nil {
		return "", err
	}
	input := hexutil.Bytes(data)
	return g.send(ctx, sendArgs{
		From:  common.HexToAddress(from),
		To:    common.HexToAddress(contract),
		Value: (*hexutil.Big)(valueWei),
		Data:  &input,
	})
}

func (g *Gateway) send(ctx context.Context, args sendArgs) (string, error) {
	if !g.IsConnected() {
		return "", apperr.NotConnected("wallet is not connected")
	}
	if args.Value == nil {
		args.Value = (*hexutil.Big)(new(big.Int))
	}

	var hash common.Hash
	if err := g.call(ctx, g.cfg.SendTimeout, "send", &hash, "eth_sendTransaction", args); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"from":  args.From.Hex(),
		"to":    args.To.Hex(),
		"value": args.Value.String(),
		"hash":  hash.Hex(),
	}).Info("transaction submitted")
	return hash.Hex(), nil
}

// Disconnect forgets the selected account. With clearSession it also asks
// the wallet to revoke this app's permissions; wallets that do not know the
// method are treated as already revoked.
func (g *Gateway) Disconnect(ctx context.Context, clearSession bool) error {
	g.setSelected("")
	if !clearSession {
		return nil
	}
	params := map[string]struct{}{"eth_accounts": {}}
	err := g.call(ctx, g.cfg.ConnectTimeout, "disconnect", nil, "wallet_revokePermissions", params)
	if isMethodNotFound(err) {
		logrus.Debug("wallet does not support wallet_revokePermissions")
		return nil
	}
	return err
}

// call is the only path to the provider. Failures, panics included, come
// back as *apperr.Error.
func (g *Gateway) call(ctx context.Context, timeout time.Duration, op string, result interface{}, method string, args ...interface{}) (err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = panicError(method, r)
		}
		outcome := "ok"
		if err != nil {
			outcome = apperr.KindOf(err).String()
			logrus.WithError(err).WithField("method", method).Warn("rpc call failed")
		}
		metrics.RPCCallsTotal.WithLabelValues(method, outcome).Inc()
		metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	if err := g.limiter.Wait(ctx); err != nil {
		return apperr.Timeout(op, err)
	}
	return mapError(op, g.provider.CallContext(ctx, result, method, args...))
}
