package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"hashpay/models"
	"hashpay/pkg/apperr"
)

const invoiceColumns = `id, receiver_address, sender_address, amount, description, status, created_at, paid_at, due_date, transaction_hash`

type InvoiceSQL struct {
	db       *sqlx.DB
	notifier *Notifier
}

func NewInvoiceSQL(db *sqlx.DB, notifier *Notifier) *InvoiceSQL {
	return &InvoiceSQL{db: db, notifier: notifier}
}

func (r *InvoiceSQL) Create(ctx context.Context, inv models.Invoice) (int64, error) {
	var id int64
	query := r.db.Rebind(`
        INSERT INTO invoices (receiver_address, sender_address, amount, description, status, created_at, paid_at, due_date, transaction_hash)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `)
	err := r.db.QueryRowxContext(ctx, query,
		inv.ReceiverAddress,
		inv.SenderAddress,
		inv.Amount,
		inv.Description,
		inv.Status,
		inv.CreatedAt.UTC(),
		utcPtr(inv.PaidAt),
		utcPtr(inv.DueDate),
		inv.TransactionHash,
	).Scan(&id)
	if err != nil {
		return 0, apperr.Persistence(err, "save invoice")
	}
	r.notifier.Changed(TableInvoices)
	return id, nil
}

func (r *InvoiceSQL) GetByID(ctx context.Context, id int64) (models.Invoice, error) {
	var inv models.Invoice
	query := r.db.Rebind(`SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`)
	if err := r.db.GetContext(ctx, &inv, query, id); err != nil {
		return inv, notFoundOr(err, "invoice", id)
	}
	return inv, nil
}

func (r *InvoiceSQL) List(ctx context.Context) ([]models.Invoice, error) {
	return r.selectMany(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC, id DESC`)
}

func (r *InvoiceSQL) ListByStatus(ctx context.Context, status models.InvoiceStatus) ([]models.Invoice, error) {
	return r.selectMany(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE status = ? ORDER BY created_at DESC, id DESC`, status)
}

func (r *InvoiceSQL) ListByAddress(ctx context.Context, address string) ([]models.Invoice, error) {
	return r.selectMany(ctx, `
        SELECT `+invoiceColumns+` FROM invoices
        WHERE LOWER(receiver_address) = LOWER(?) OR LOWER(sender_address) = LOWER(?)
        ORDER BY created_at DESC, id DESC`, address, address)
}

func (r *InvoiceSQL) MarkPaid(ctx context.Context, id int64, txHash string, paidAt time.Time) (bool, error) {
	query := r.db.Rebind(`
        UPDATE invoices SET status = ?, paid_at = ?, transaction_hash = ?
        WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, models.InvoicePaid, paidAt.UTC(), txHash, id, models.InvoicePending)
	return r.afterWrite(res, err, "mark invoice paid")
}

func (r *InvoiceSQL) Cancel(ctx context.Context, id int64, sender string) (bool, error) {
	query := r.db.Rebind(`
        UPDATE invoices SET status = ?
        WHERE id = ? AND status = ? AND LOWER(sender_address) = LOWER(?)`)
	res, err := r.db.ExecContext(ctx, query, models.InvoiceCancelled, id, models.InvoicePending, sender)
	return r.afterWrite(res, err, "cancel invoice")
}

func (r *InvoiceSQL) Delete(ctx context.Context, id int64, sender string) (bool, error) {
	query := r.db.Rebind(`
        DELETE FROM invoices
        WHERE id = ? AND status = ? AND LOWER(sender_address) = LOWER(?)`)
	res, err := r.db.ExecContext(ctx, query, id, models.InvoicePending, sender)
	return r.afterWrite(res, err, "delete invoice")
}

func (r *InvoiceSQL) Watch(ctx context.Context) <-chan []models.Invoice {
	return watch(ctx, r.notifier, TableInvoices, r.List)
}

func (r *InvoiceSQL) WatchByStatus(ctx context.Context, status models.InvoiceStatus) <-chan []models.Invoice {
	return watch(ctx, r.notifier, TableInvoices, func(ctx context.Context) ([]models.Invoice, error) {
		return r.ListByStatus(ctx, status)
	})
}

func (r *InvoiceSQL) WatchByAddress(ctx context.Context, address string) <-chan []models.Invoice {
	return watch(ctx, r.notifier, TableInvoices, func(ctx context.Context) ([]models.Invoice, error) {
		return r.ListByAddress(ctx, address)
	})
}

func (r *InvoiceSQL) selectMany(ctx context.Context, query string, args ...interface{}) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	if err := r.db.SelectContext(ctx, &invoices, r.db.Rebind(query), args...); err != nil {
		return nil, apperr.Persistence(err, "list invoices")
	}
	return invoices, nil
}

func (r *InvoiceSQL) afterWrite(res sql.Result, err error, op string) (bool, error) {
	if err != nil {
		return false, apperr.Persistence(err, op)
	}
	changed, err := rowsChanged(res)
	if err != nil {
		return false, apperr.Persistence(err, op)
	}
	if changed {
		r.notifier.Changed(TableInvoices)
	}
	return changed, nil
}
