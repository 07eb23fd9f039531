package repository

import (
	"context"
	"database/sql"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"hashpay/pkg/apperr"
)

// PreferenceSQL is the key/value table behind the wallet connection state.
type PreferenceSQL struct {
	db *sqlx.DB
}

func NewPreferenceSQL(db *sqlx.DB) *PreferenceSQL {
	return &PreferenceSQL{db: db}
}

func (r *PreferenceSQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value, r.db.Rebind(`SELECT value FROM preferences WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Persistence(err, "read preference "+key)
	}
	return value, true, nil
}

// SetMany writes all values in one transaction.
func (r *PreferenceSQL) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Persistence(err, "begin preferences write")
	}
	defer tx.Rollback()

	query := tx.Rebind(`
        INSERT INTO preferences (key, value) VALUES (?, ?)
        ON CONFLICT (key) DO UPDATE SET value = excluded.value`)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, query, k, values[k]); err != nil {
			return apperr.Persistence(err, "write preference "+k)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Persistence(err, "commit preferences")
	}
	return nil
}
