package repository

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"hashpay/pkg/stream"
)

type Table string

const (
	TableTransactions Table = "transactions"
	TableContacts     Table = "contacts"
	TableInvoices     Table = "invoices"
)

// Notifier keeps a version counter per table. Repositories bump it after
// every successful write; live queries re-run whenever it moves.
type Notifier struct {
	mu     sync.Mutex
	tables map[Table]*stream.State[uint64]
}

func NewNotifier() *Notifier {
	return &Notifier{tables: make(map[Table]*stream.State[uint64])}
}

func (n *Notifier) state(t Table) *stream.State[uint64] {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.tables[t]
	if !ok {
		s = stream.NewState[uint64](0)
		n.tables[t] = s
	}
	return s
}

func (n *Notifier) Changed(t Table) {
	n.state(t).Update(func(v uint64) uint64 { return v + 1 })
}

// watch runs query once immediately and again after each change to table.
// The returned channel holds at most the latest snapshot and is closed when
// ctx is done.
func watch[T any](ctx context.Context, n *Notifier, table Table, query func(context.Context) (T, error)) <-chan T {
	out := make(chan T, 1)
	versions := n.state(table).Subscribe(ctx)

	go func() {
		defer close(out)
		for range versions {
			res, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logrus.WithError(err).WithField("table", table).Warn("live query failed")
				continue
			}
			select {
			case <-out:
			default:
			}
			out <- res
		}
	}()

	return out
}
