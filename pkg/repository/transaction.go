package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"hashpay/models"
	"hashpay/pkg/apperr"
)

const transactionColumns = `id, from_address, to_address, amount, amount_in_eth, timestamp, tx_hash, message, status, type`

type TransactionSQL struct {
	db       *sqlx.DB
	notifier *Notifier
}

func NewTransactionSQL(db *sqlx.DB, notifier *Notifier) *TransactionSQL {
	return &TransactionSQL{db: db, notifier: notifier}
}

func (r *TransactionSQL) Create(ctx context.Context, tx models.Transaction) (int64, error) {
	var id int64
	query := r.db.Rebind(`
        INSERT INTO transactions (from_address, to_address, amount, amount_in_eth, timestamp, tx_hash, message, status, type)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `)
	err := r.db.QueryRowxContext(ctx, query,
		tx.FromAddress,
		tx.ToAddress,
		tx.Amount,
		tx.AmountInEth,
		tx.Timestamp.UTC(),
		tx.TxHash,
		tx.Message,
		tx.Status,
		tx.Type,
	).Scan(&id)
	if err != nil {
		return 0, apperr.Persistence(err, "save transaction")
	}
	r.notifier.Changed(TableTransactions)
	return id, nil
}

func (r *TransactionSQL) GetByID(ctx context.Context, id int64) (models.Transaction, error) {
	var tx models.Transaction
	query := r.db.Rebind(`SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`)
	if err := r.db.GetContext(ctx, &tx, query, id); err != nil {
		return tx, notFoundOr(err, "transaction", id)
	}
	return tx, nil
}

func (r *TransactionSQL) UpdateStatus(ctx context.Context, id int64, status models.TxStatus, txHash *string) (bool, error) {
	query := r.db.Rebind(`UPDATE transactions SET status = ?, tx_hash = ? WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, status, txHash, id, models.TxPending)
	if err != nil {
		return false, apperr.Persistence(err, "update transaction status")
	}
	changed, err := rowsChanged(res)
	if err != nil {
		return false, apperr.Persistence(err, "update transaction status")
	}
	if changed {
		r.notifier.Changed(TableTransactions)
	}
	return changed, nil
}

func (r *TransactionSQL) List(ctx context.Context) ([]models.Transaction, error) {
	return r.selectMany(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY timestamp DESC, id DESC`)
}

func (r *TransactionSQL) ListByStatus(ctx context.Context, status models.TxStatus) ([]models.Transaction, error) {
	return r.selectMany(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE status = ? ORDER BY timestamp DESC, id DESC`, status)
}

func (r *TransactionSQL) ListByAddress(ctx context.Context, address string) ([]models.Transaction, error) {
	return r.selectMany(ctx, `
        SELECT `+transactionColumns+` FROM transactions
        WHERE LOWER(from_address) = LOWER(?) OR LOWER(to_address) = LOWER(?)
        ORDER BY timestamp DESC, id DESC`, address, address)
}

func (r *TransactionSQL) Watch(ctx context.Context) <-chan []models.Transaction {
	return watch(ctx, r.notifier, TableTransactions, r.List)
}

func (r *TransactionSQL) WatchByStatus(ctx context.Context, status models.TxStatus) <-chan []models.Transaction {
	return watch(ctx, r.notifier, TableTransactions, func(ctx context.Context) ([]models.Transaction, error) {
		return r.ListByStatus(ctx, status)
	})
}

func (r *TransactionSQL) WatchByAddress(ctx context.Context, address string) <-chan []models.Transaction {
	return watch(ctx, r.notifier, TableTransactions, func(ctx context.Context) ([]models.Transaction, error) {
		return r.ListByAddress(ctx, address)
	})
}

func (r *TransactionSQL) selectMany(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &txs, r.db.Rebind(query), args...); err != nil {
		return nil, apperr.Persistence(err, "list transactions")
	}
	return txs, nil
}
