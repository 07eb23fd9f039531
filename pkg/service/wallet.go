package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"hashpay/internal/wallet"
	"hashpay/models"
	"hashpay/pkg/apperr"
	"hashpay/pkg/units"
)

const balancePlaces = 6

type WalletService struct {
	conn   *wallet.Connection
	chain  ChainGateway
	prices PriceFeed

	// mu spans a provider call and the state write that follows it, so a
	// disconnect cannot land between the two.
	mu sync.Mutex
}

func NewWalletService(conn *wallet.Connection, chain ChainGateway, prices PriceFeed) *WalletService {
	return &WalletService{
		conn:   conn,
		chain:  chain,
		prices: prices,
	}
}

func (s *WalletService) State() models.WalletState {
	return s.conn.State()
}

func (s *WalletService) Subscribe(ctx context.Context) <-chan models.WalletState {
	return s.conn.Subscribe(ctx)
}

// ConnectWallet runs the provider handshake and records the approved account.
func (s *WalletService) ConnectWallet(ctx context.Context) (models.WalletState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	address, err := s.chain.Connect(ctx)
	if err != nil {
		return s.conn.State(), err
	}
	if err := s.conn.Connect(ctx, address, models.WalletMetaMask); err != nil {
		return s.conn.State(), err
	}
	return s.conn.State(), nil
}

func (s *WalletService) ConnectSmartContract(ctx context.Context, address string) (models.WalletState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !wallet.IsValidAddress(address) {
		return s.conn.State(), apperr.Validation("smart contract wallet address is not a valid address")
	}
	if err := s.conn.UseSmartContract(ctx, wallet.Normalize(address)); err != nil {
		return s.conn.State(), err
	}
	return s.conn.State(), nil
}

// DisconnectWallet clears the local state first. A failure to revoke the
// provider session is only logged.
func (s *WalletService) DisconnectWallet(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Disconnect(ctx); err != nil {
		return err
	}
	if err := s.chain.Disconnect(ctx, true); err != nil {
		logrus.WithError(err).Warn("wallet session was not revoked")
	}
	return nil
}

// EnsureConnected checks a saved metamask session against the provider. A
// session the provider no longer knows gets one silent reconnect before the
// local state is cleared.
func (s *WalletService) EnsureConnected(ctx context.Context) (models.WalletState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.conn.State()
	if !st.Connected {
		return st, apperr.NotConnected("wallet is not connected")
	}
	if st.Kind == models.WalletSmartContract {
		return st, nil
	}

	address, err := s.chain.SelectedAddress(ctx)
	if err != nil {
		return st, err
	}
	if address == "" {
		logrus.WithField("address", st.Address).Info("provider session expired, reconnecting")
		address, err = s.chain.Connect(ctx)
		if err != nil {
			if derr := s.conn.Disconnect(ctx); derr != nil {
				logrus.WithError(derr).Error("clear expired wallet state")
			}
			return s.conn.State(), apperr.NotConnected("wallet session expired, connect again")
		}
	}
	if !wallet.SameAddress(address, st.Address) {
		if err := s.conn.Connect(ctx, address, models.WalletMetaMask); err != nil {
			return s.conn.State(), err
		}
	}
	return s.conn.State(), nil
}

func (s *WalletService) Balance(ctx context.Context) (models.Balance, error) {
	address, ok := s.conn.Address()
	if !ok {
		return models.Balance{}, apperr.NotConnected("wallet is not connected")
	}

	wei, err := s.chain.GetBalance(ctx, address)
	if err != nil {
		return models.Balance{}, err
	}
	balance := models.Balance{
		Address: address,
		Wei:     wei.String(),
		Eth:     units.FormatEth(wei, balancePlaces),
	}

	if s.prices != nil {
		price, err := s.prices.EthPrice(ctx)
		if err != nil {
			logrus.WithError(err).Warn("fiat quote unavailable")
			return balance, nil
		}
		balance.FiatCurrency = s.prices.Currency()
		balance.FiatValue = units.WeiToEth(wei).Mul(decimal.NewFromFloat(price)).Round(2).InexactFloat64()
	}
	return balance, nil
}

// DepositInfo is what the receive screen shows and encodes as a QR code.
func (s *WalletService) DepositInfo() (models.DepositInfo, error) {
	address, ok := s.conn.Address()
	if !ok {
		return models.DepositInfo{}, apperr.NotConnected("wallet is not connected")
	}
	return models.DepositInfo{
		Address:      address,
		ShortAddress: wallet.Shorten(address),
		PaymentURI:   "ethereum:" + address,
	}, nil
}
