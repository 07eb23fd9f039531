package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"hashpay/models"
	"hashpay/pkg/apperr"
)

const contactColumns = `id, name, wallet_address, is_favorite, last_transaction_date`

type ContactSQL struct {
	db       *sqlx.DB
	notifier *Notifier
}

func NewContactSQL(db *sqlx.DB, notifier *Notifier) *ContactSQL {
	return &ContactSQL{db: db, notifier: notifier}
}

func (r *ContactSQL) Create(ctx context.Context, c models.Contact) (int64, error) {
	var id int64
	query := r.db.Rebind(`
        INSERT INTO contacts (name, wallet_address, is_favorite, last_transaction_date)
        VALUES (?, ?, ?, ?)
        RETURNING id
    `)
	err := r.db.QueryRowxContext(ctx, query, c.Name, c.WalletAddress, c.IsFavorite, utcPtr(c.LastTransactionDate)).Scan(&id)
	if err != nil {
		return 0, apperr.Persistence(err, "save contact")
	}
	r.notifier.Changed(TableContacts)
	return id, nil
}

func (r *ContactSQL) Update(ctx context.Context, c models.Contact) error {
	query := r.db.Rebind(`UPDATE contacts SET name = ?, wallet_address = ?, is_favorite = ?, last_transaction_date = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, c.Name, c.WalletAddress, c.IsFavorite, utcPtr(c.LastTransactionDate), c.ID)
	return r.afterWrite(res, err, c.ID, "update contact")
}

func (r *ContactSQL) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM contacts WHERE id = ?`), id)
	return r.afterWrite(res, err, id, "delete contact")
}

func (r *ContactSQL) GetByID(ctx context.Context, id int64) (models.Contact, error) {
	var c models.Contact
	query := r.db.Rebind(`SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`)
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return c, notFoundOr(err, "contact", id)
	}
	return c, nil
}

func (r *ContactSQL) GetByAddress(ctx context.Context, address string) (models.Contact, error) {
	var c models.Contact
	query := r.db.Rebind(`SELECT ` + contactColumns + ` FROM contacts WHERE LOWER(wallet_address) = LOWER(?) LIMIT 1`)
	if err := r.db.GetContext(ctx, &c, query, address); err != nil {
		return c, notFoundOr(err, "contact", address)
	}
	return c, nil
}

func (r *ContactSQL) Touch(ctx context.Context, address, name string, at time.Time) error {
	query := r.db.Rebind(`
        INSERT INTO contacts (name, wallet_address, is_favorite, last_transaction_date)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (wallet_address) DO UPDATE SET last_transaction_date = excluded.last_transaction_date
    `)
	if _, err := r.db.ExecContext(ctx, query, name, address, false, at.UTC()); err != nil {
		return apperr.Persistence(err, "upsert contact")
	}
	r.notifier.Changed(TableContacts)
	return nil
}

func (r *ContactSQL) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE contacts SET is_favorite = ? WHERE id = ?`), favorite, id)
	return r.afterWrite(res, err, id, "update contact")
}

func (r *ContactSQL) List(ctx context.Context) ([]models.Contact, error) {
	return r.selectMany(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY name ASC, id ASC`)
}

func (r *ContactSQL) Favorites(ctx context.Context) ([]models.Contact, error) {
	return r.selectMany(ctx, `SELECT `+contactColumns+` FROM contacts WHERE is_favorite = ? ORDER BY name ASC, id ASC`, true)
}

// Recent orders contacts that were never paid last in both dialects.
func (r *ContactSQL) Recent(ctx context.Context, limit int) ([]models.Contact, error) {
	return r.selectMany(ctx, `
        SELECT `+contactColumns+` FROM contacts
        ORDER BY last_transaction_date IS NULL, last_transaction_date DESC, id DESC
        LIMIT ?`, limit)
}

func (r *ContactSQL) Watch(ctx context.Context) <-chan []models.Contact {
	return watch(ctx, r.notifier, TableContacts, r.List)
}

func (r *ContactSQL) WatchRecent(ctx context.Context, limit int) <-chan []models.Contact {
	return watch(ctx, r.notifier, TableContacts, func(ctx context.Context) ([]models.Contact, error) {
		return r.Recent(ctx, limit)
	})
}

func (r *ContactSQL) selectMany(ctx context.Context, query string, args ...interface{}) ([]models.Contact, error) {
	contacts := []models.Contact{}
	if err := r.db.SelectContext(ctx, &contacts, r.db.Rebind(query), args...); err != nil {
		return nil, apperr.Persistence(err, "list contacts")
	}
	return contacts, nil
}

func (r *ContactSQL) afterWrite(res sql.Result, err error, id int64, op string) error {
	if err != nil {
		return apperr.Persistence(err, op)
	}
	changed, err := rowsChanged(res)
	if err != nil {
		return apperr.Persistence(err, op)
	}
	if !changed {
		return apperr.NotFound("contact", id)
	}
	r.notifier.Changed(TableContacts)
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
