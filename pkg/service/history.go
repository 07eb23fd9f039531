package service

import (
	"context"
	"math/big"

	"hashpay/internal/wallet"
	"hashpay/models"
	"hashpay/pkg/apperr"
	"hashpay/pkg/repository"
	"hashpay/pkg/units"
)

type TransactionFilter struct {
	Status models.TxStatus
	// MineOnly keeps transactions sent from or to the connected wallet.
	MineOnly bool
}

type HistoryService struct {
	txs  repository.Transactions
	conn *wallet.Connection
}

func NewHistoryService(txs repository.Transactions, conn *wallet.Connection) *HistoryService {
	return &HistoryService{txs: txs, conn: conn}
}

func (s *HistoryService) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	viewer, err := s.check(filter)
	if err != nil {
		return nil, err
	}

	var txs []models.Transaction
	switch {
	case filter.MineOnly:
		txs, err = s.txs.ListByAddress(ctx, viewer)
	case filter.Status != "":
		txs, err = s.txs.ListByStatus(ctx, filter.Status)
	default:
		txs, err = s.txs.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	return s.view(txs, filter, viewer), nil
}

func (s *HistoryService) GetTransaction(ctx context.Context, id int64) (models.Transaction, error) {
	tx, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return tx, err
	}
	if viewer, ok := s.conn.Address(); ok {
		tx.Type = tx.Direction(viewer, wallet.SameAddress)
	}
	return tx, nil
}

// WatchTransactions emits the filtered list now and after every change to
// the transactions table until ctx is done.
func (s *HistoryService) WatchTransactions(ctx context.Context, filter TransactionFilter) (<-chan []models.Transaction, error) {
	viewer, err := s.check(filter)
	if err != nil {
		return nil, err
	}

	var source <-chan []models.Transaction
	switch {
	case filter.MineOnly:
		source = s.txs.WatchByAddress(ctx, viewer)
	case filter.Status != "":
		source = s.txs.WatchByStatus(ctx, filter.Status)
	default:
		source = s.txs.Watch(ctx)
	}
	return mapLatest(ctx, source, func(txs []models.Transaction) []models.Transaction {
		return s.view(txs, filter, viewer)
	}), nil
}

// Stats sums completed transfers of the connected wallet for the profile
// screen. Every row counts towards Transactions.
func (s *HistoryService) Stats(ctx context.Context) (models.TransactionStats, error) {
	address, ok := s.conn.Address()
	if !ok {
		return models.TransactionStats{}, apperr.NotConnected("wallet is not connected")
	}
	txs, err := s.txs.ListByAddress(ctx, address)
	if err != nil {
		return models.TransactionStats{}, err
	}

	sent, received := new(big.Int), new(big.Int)
	for _, tx := range txs {
		if tx.Status != models.TxCompleted {
			continue
		}
		wei, ok := new(big.Int).SetString(tx.Amount, 10)
		if !ok {
			continue
		}
		switch tx.Direction(address, wallet.SameAddress) {
		case models.TxReceive:
			received.Add(received, wei)
		default:
			if wallet.SameAddress(tx.FromAddress, address) {
				sent.Add(sent, wei)
			}
		}
	}
	return models.TransactionStats{
		Address:      address,
		SentEth:      units.FormatEth(sent, balancePlaces),
		ReceivedEth:  units.FormatEth(received, balancePlaces),
		Transactions: len(txs),
	}, nil
}

func (s *HistoryService) check(filter TransactionFilter) (string, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return "", apperr.Validationf("unknown transaction status %q", filter.Status)
	}
	viewer, ok := s.conn.Address()
	if filter.MineOnly && !ok {
		return "", apperr.NotConnected("wallet is not connected")
	}
	return viewer, nil
}

func (s *HistoryService) view(txs []models.Transaction, filter TransactionFilter, viewer string) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if viewer != "" {
			tx.Type = tx.Direction(viewer, wallet.SameAddress)
		}
		out = append(out, tx)
	}
	return out
}

// mapLatest applies fn to every snapshot from in. Like the source it keeps
// only the newest result.
func mapLatest[T, U any](ctx context.Context, in <-chan T, fn func(T) U) <-chan U {
	out := make(chan U, 1)
	go func() {
		defer close(out)
		for v := range in {
			res := fn(v)
			select {
			case <-out:
			default:
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
