package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hashpay/internal/wallet"
	"hashpay/models"
	"hashpay/pkg/gateway"
	"hashpay/pkg/repository"
)

const (
	alice = "0x52908400098527886E0F7030069857D2E4169EE7"
	bob   = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
	carol = "0xde709f2102306220921060314715629080e2fb77"
)

// MockGateway is a mock implementation of ChainGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Connect(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) SelectedAddress(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockGateway) GetBalance(ctx context.Context, address string, opts ...gateway.CallOption) (*big.Int, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockGateway) SendTransaction(ctx context.Context, from, to string, valueWei *big.Int) (string, error) {
	args := m.Called(ctx, from, to, valueWei)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) SendContractCall(ctx context.Context, from, contract, recipient, message string, valueWei *big.Int) (string, error) {
	args := m.Called(ctx, from, contract, recipient, message, valueWei)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Disconnect(ctx context.Context, clearSession bool) error {
	args := m.Called(ctx, clearSession)
	return args.Error(0)
}

type fakePrices struct {
	price float64
	err   error
}

func (f fakePrices) EthPrice(context.Context) (float64, error) { return f.price, f.err }
func (f fakePrices) Currency() string                        { return "usd" }

type fixture struct {
	repo  *repository.Repository
	conn  *wallet.Connection
	chain *MockGateway
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(repository.Config{Driver: repository.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db))

	repo := repository.NewRepository(db)
	return &fixture{
		repo:  repo,
		conn:  wallet.NewConnection(repo.Preferences),
		chain: new(MockGateway),
		now:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) connect(t *testing.T, address string) {
	t.Helper()
	require.NoError(t, f.conn.Connect(context.Background(), address, models.WalletMetaMask))
}

func (f *fixture) transfer(contract string) *TransferService {
	return NewTransferService(f.repo.Transactions, f.repo.Contacts, f.conn, f.chain, Options{
		ContractAddress: contract,
		Now:             f.clock,
	})
}

func (f *fixture) transactions(t *testing.T) []models.Transaction {
	t.Helper()
	txs, err := f.repo.Transactions.List(context.Background())
	require.NoError(t, err)
	return txs
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}
