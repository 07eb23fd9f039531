package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"hashpay/models"
	"hashpay/pkg/apperr"
)

type Transactions interface {
	Create(ctx context.Context, tx models.Transaction) (int64, error)
	GetByID(ctx context.Context, id int64) (models.Transaction, error)
	// UpdateStatus moves a pending row to a terminal status. It reports false
	// when the row was not pending anymore.
	UpdateStatus(ctx context.Context, id int64, status models.TxStatus, txHash *string) (bool, error)
	List(ctx context.Context) ([]models.Transaction, error)
	ListByStatus(ctx context.Context, status models.TxStatus) ([]models.Transaction, error)
	ListByAddress(ctx context.Context, address string) ([]models.Transaction, error)
	Watch(ctx context.Context) <-chan []models.Transaction
	WatchByStatus(ctx context.Context, status models.TxStatus) <-chan []models.Transaction
	WatchByAddress(ctx context.Context, address string) <-chan []models.Transaction
}

type Contacts interface {
	Create(ctx context.Context, c models.Contact) (int64, error)
	Update(ctx context.Context, c models.Contact) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (models.Contact, error)
	GetByAddress(ctx context.Context, address string) (models.Contact, error)
	// Touch creates the contact with name if the address is unseen, otherwise
	// it only refreshes last_transaction_date.
	Touch(ctx context.Context, address, name string, at time.Time) error
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	List(ctx context.Context) ([]models.Contact, error)
	Favorites(ctx context.Context) ([]models.Contact, error)
	Recent(ctx context.Context, limit int) ([]models.Contact, error)
	Watch(ctx context.Context) <-chan []models.Contact
	WatchRecent(ctx context.Context, limit int) <-chan []models.Contact
}

type Invoices interface {
	Create(ctx context.Context, inv models.Invoice) (int64, error)
	GetByID(ctx context.Context, id int64) (models.Invoice, error)
	List(ctx context.Context) ([]models.Invoice, error)
	ListByStatus(ctx context.Context, status models.InvoiceStatus) ([]models.Invoice, error)
	ListByAddress(ctx context.Context, address string) ([]models.Invoice, error)
	// MarkPaid, Cancel and Delete only touch PENDING rows and report whether
	// a row changed.
	MarkPaid(ctx context.Context, id int64, txHash string, paidAt time.Time) (bool, error)
	Cancel(ctx context.Context, id int64, sender string) (bool, error)
	Delete(ctx context.Context, id int64, sender string) (bool, error)
	Watch(ctx context.Context) <-chan []models.Invoice
	WatchByStatus(ctx context.Context, status models.InvoiceStatus) <-chan []models.Invoice
	WatchByAddress(ctx context.Context, address string) <-chan []models.Invoice
}

type Preferences interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
}

type Repository struct {
	Transactions
	Contacts
	Invoices
	Preferences
	Notifier *Notifier
}

func NewRepository(db *sqlx.DB) *Repository {
	notifier := NewNotifier()
	return &Repository{
		Transactions: NewTransactionSQL(db, notifier),
		Contacts:     NewContactSQL(db, notifier),
		Invoices:     NewInvoiceSQL(db, notifier),
		Preferences:  NewPreferenceSQL(db),
		Notifier:     notifier,
	}
}

func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(resource, id)
	}
	return apperr.Persistence(err, "load "+resource)
}

func rowsChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
