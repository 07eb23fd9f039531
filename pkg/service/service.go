package service

import (
	"context"
	"math/big"
	"time"

	"hashpay/internal/wallet"
	"hashpay/models"
	"hashpay/pkg/gateway"
	"hashpay/pkg/repository"
)

type Wallet interface {
	State() models.WalletState
	Subscribe(ctx context.Context) <-chan models.WalletState
	ConnectWallet(ctx context.Context) (models.WalletState, error)
	ConnectSmartContract(ctx context.Context, address string) (models.WalletState, error)
	DisconnectWallet(ctx context.Context) error
	EnsureConnected(ctx context.Context) (models.WalletState, error)
	Balance(ctx context.Context) (models.Balance, error)
	DepositInfo() (models.DepositInfo, error)
}

type Transfer interface {
	Send(ctx context.Context, input models.SendInput) (models.Transaction, error)
	LastResult() models.TransactionState
	SubscribeResults(ctx context.Context) <-chan models.TransactionState
	SweepPending(ctx context.Context) (int, error)
}

type History interface {
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (models.Transaction, error)
	WatchTransactions(ctx context.Context, filter TransactionFilter) (<-chan []models.Transaction, error)
	Stats(ctx context.Context) (models.TransactionStats, error)
}

type Contacts interface {
	ListContacts(ctx context.Context) ([]models.Contact, error)
	FavoriteContacts(ctx context.Context) ([]models.Contact, error)
	RecentContacts(ctx context.Context, limit int) ([]models.Contact, error)
	WatchContacts(ctx context.Context) <-chan []models.Contact
	WatchRecentContacts(ctx context.Context, limit int) <-chan []models.Contact
	CreateContact(ctx context.Context, input models.ContactInput) (models.Contact, error)
	UpdateContact(ctx context.Context, id int64, input models.ContactInput) (models.Contact, error)
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	DeleteContact(ctx context.Context, id int64) error
}

type Invoices interface {
	CreateInvoice(ctx context.Context, input models.InvoiceInput, sender string) (int64, error)
	GetInvoice(ctx context.Context, id int64) (models.InvoiceView, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]models.InvoiceView, error)
	WatchInvoices(ctx context.Context, filter InvoiceFilter) (<-chan []models.InvoiceView, error)
	PayInvoice(ctx context.Context, id int64, payer string) (models.InvoiceView, error)
	MarkPaid(ctx context.Context, id int64, txHash string) error
	CancelInvoice(ctx context.Context, id int64, caller string) error
	DeleteInvoice(ctx context.Context, id int64, caller string) error
}

// ChainGateway is the part of *gateway.Gateway the services use.
type ChainGateway interface {
	Connect(ctx context.Context) (string, error)
	SelectedAddress(ctx context.Context) (string, error)
	IsConnected() bool
	GetBalance(ctx context.Context, address string, opts ...gateway.CallOption) (*big.Int, error)
	SendTransaction(ctx context.Context, from, to string, valueWei *big.Int) (string, error)
	SendContractCall(ctx context.Context, from, contract, recipient, message string, valueWei *big.Int) (string, error)
	Disconnect(ctx context.Context, clearSession bool) error
}

// PriceFeed quotes ETH in fiat. It is optional.
type PriceFeed interface {
	EthPrice(ctx context.Context) (float64, error)
	Currency() string
}

type Options struct {
	// ContractAddress enables pay(address,string) for sends with a message.
	ContractAddress string
	Prices          PriceFeed
	Now             func() time.Time
}

type Service struct {
	Wallet
	Transfer
	History
	Contacts
	Invoices
}

func NewService(repos *repository.Repository, conn *wallet.Connection, chain ChainGateway, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	transfer := NewTransferService(repos.Transactions, repos.Contacts, conn, chain, opts)
	return &Service{
		Wallet:   NewWalletService(conn, chain, opts.Prices),
		Transfer: transfer,
		History:  NewHistoryService(repos.Transactions, conn),
		Contacts: NewContactService(repos.Contacts),
		Invoices: NewInvoiceService(repos.Invoices, transfer, opts.Now),
	}
}
