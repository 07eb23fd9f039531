package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hashpay/models"
	"hashpay/pkg/apperr"
)

// MockSender is a mock implementation of Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, input models.SendInput) (models.Transaction, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(models.Transaction), args.Error(1)
}

func newInvoiceService(f *fixture, sender Sender) *InvoiceService {
	return NewInvoiceService(f.repo.Invoices, sender, f.clock)
}

func createInvoice(t *testing.T, s *InvoiceService, sender, receiver, amount string, due *time.Time) int64 {
	t.Helper()
	id, err := s.CreateInvoice(context.Background(), models.InvoiceInput{
		ReceiverAddress: receiver,
		Amount:          amount,
		Description:     "Design work",
		DueDate:         due,
	}, sender)
	require.NoError(t, err)
	return id
}

func TestInvoiceService_CreateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input models.InvoiceInput
	}{
		{"zero amount", models.InvoiceInput{ReceiverAddress: bob, Amount: "0"}},
		{"negative amount", models.InvoiceInput{ReceiverAddress: bob, Amount: "-0.5"}},
		{"blank amount", models.InvoiceInput{ReceiverAddress: bob, Amount: " "}},
		{"blank receiver", models.InvoiceInput{ReceiverAddress: "", Amount: "1"}},
		{"malformed receiver", models.InvoiceInput{ReceiverAddress: "bob", Amount: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := newInvoiceService(f, nil)

			_, err := s.CreateInvoice(context.Background(), tt.input, alice)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

			all, err := f.repo.Invoices.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestInvoiceService_CreateAndView(t *testing.T) {
	f := newFixture(t)
	s := newInvoiceService(f, nil)
	due := f.now.Add(72 * time.Hour)

	id := createInvoice(t, s, alice, bob, "0.125", &due)
	view, err := s.GetInvoice(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, models.InvoicePending, view.Status)
	assert.Equal(t, models.InvoicePending, view.EffectiveStatus)
	assert.True(t, view.Amount.Equal(decimal.RequireFromString("0.125")))
	assert.Equal(t, "0.1250 ETH", view.FormattedAmount)
	assert.Equal(t, "Mar 14, 2025", view.FormattedDate)
	assert.Equal(t, "Mar 17, 2025", view.FormattedDueDate)
	assert.Equal(t, alice, view.SenderAddress)
	assert.False(t, view.IsPaid)
	assert.False(t, view.IsOverdue)
}

func TestInvoiceService_MarkPaidTwiceIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := newInvoiceService(f, nil)
	id := createInvoice(t, s, alice, bob, "1", nil)

	require.NoError(t, s.MarkPaid(ctx, id, "0xaaa"))
	err := s.MarkPaid(ctx, id, "0xbbb")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	view, err := s.GetInvoice(ctx, id)
	require.NoError(t, err)
	assert.True(t, view.IsPaid)
	assert.Equal(t, "0xaaa", *view.TransactionHash)

	err = s.MarkPaid(ctx, 999, "0xccc")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = s.MarkPaid(ctx, id, " ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestInvoiceService_CancelGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := newInvoiceService(f, nil)

	paid := createInvoice(t, s, alice, bob, "1", nil)
	require.NoError(t, s.MarkPaid(ctx, paid, "0xaaa"))
	err := s.CancelInvoice(ctx, paid, alice)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	open := createInvoice(t, s, alice, bob, "1", nil)
	err = s.CancelInvoice(ctx, open, bob)
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	require.NoError(t, s.CancelInvoice(ctx, open, "0x52908400098527886e0f7030069857d2e4169ee7"))
	view, err := s.GetInvoice(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, view.Status)

	err = s.CancelInvoice(ctx, 404, alice)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestInvoiceService_DeleteGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := newInvoiceService(f, nil)

	cancelled := createInvoice(t, s, alice, bob, "1", nil)
	require.NoError(t, s.CancelInvoice(ctx, cancelled, alice))
	err := s.DeleteInvoice(ctx, cancelled, alice)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	open := createInvoice(t, s, alice, bob, "1", nil)
	err = s.DeleteInvoice(ctx, open, carol)
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	require.NoError(t, s.DeleteInvoice(ctx, open, alice))
	_, err = s.GetInvoice(ctx, open)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestInvoiceService_ListFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := newInvoiceService(f, nil)

	past := f.now.Add(-24 * time.Hour)
	future := f.now.Add(24 * time.Hour)
	overdue := createInvoice(t, s, alice, bob, "1", &past)
	upcoming := createInvoice(t, s, alice, carol, "2", &future)
	paid := createInvoice(t, s, carol, alice, "3", &past)
	require.NoError(t, s.MarkPaid(ctx, paid, "0xaaa"))

	ids := func(views []models.InvoiceView) []int64 {
		out := make([]int64, 0, len(views))
		for _, v := range views {
			out = append(out, v.ID)
		}
		return out
	}

	all, err := s.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{overdue, upcoming, paid}, ids(all))

	late, err := s.ListInvoices(ctx, InvoiceFilter{Status: models.InvoiceOverdue})
	require.NoError(t, err)
	require.Equal(t, []int64{overdue}, ids(late))
	assert.Equal(t, models.InvoiceOverdue, late[0].EffectiveStatus)
	assert.Equal(t, models.InvoicePending, late[0].Status, "overdue is never stored")

	pending, err := s.ListInvoices(ctx, InvoiceFilter{Status: models.InvoicePending})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{overdue, upcoming}, ids(pending))

	paidOnly, err := s.ListInvoices(ctx, InvoiceFilter{Status: models.InvoicePaid})
	require.NoError(t, err)
	assert.Equal(t, []int64{paid}, ids(paidOnly))

	carols, err := s.ListInvoices(ctx, InvoiceFilter{Address: carol})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{upcoming, paid}, ids(carols))

	carolsPaid, err := s.ListInvoices(ctx, InvoiceFilter{Address: carol, Status: models.InvoicePaid})
	require.NoError(t, err)
	assert.Equal(t, []int64{paid}, ids(carolsPaid))

	_, err = s.ListInvoices(ctx, InvoiceFilter{Status: "LATE"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestInvoiceService_WatchOverdue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)
	s := newInvoiceService(f, nil)

	updates, err := s.WatchInvoices(ctx, InvoiceFilter{Status: models.InvoiceOverdue})
	require.NoError(t, err)
	assert.Empty(t, <-updates)

	past := f.now.Add(-time.Hour)
	id := createInvoice(t, s, alice, bob, "1", &past)

	require.Eventually(t, func() bool {
		select {
		case views := <-updates:
			return len(views) == 1 && views[0].ID == id
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInvoiceService_Pay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sender := new(MockSender)
	s := newInvoiceService(f, sender)
	id := createInvoice(t, s, bob, alice, "0.5", nil)

	hash := "0xfeedface"
	sender.On("Send", mock.Anything, models.SendInput{
		ToAddress: alice,
		AmountEth: "0.5",
		Message:   "Invoice #1: Design work",
	}).Return(models.Transaction{ID: 7, Status: models.TxCompleted, TxHash: &hash}, nil).Once()

	view, err := s.PayInvoice(ctx, id, carol)
	require.NoError(t, err)
	assert.True(t, view.IsPaid)
	assert.Equal(t, hash, *view.TransactionHash)
	sender.AssertExpectations(t)

	_, err = s.PayInvoice(ctx, id, carol)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestInvoiceService_PayOwnInvoiceIsRejected(t *testing.T) {
	f := newFixture(t)
	sender := new(MockSender)
	s := newInvoiceService(f, sender)
	id := createInvoice(t, s, bob, alice, "0.5", nil)

	_, err := s.PayInvoice(context.Background(), id, "0x52908400098527886e0f7030069857d2e4169ee7")
	assert.True(t, apperr.Is(err, apperr.KindPermission))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestInvoiceService_FailedPaymentLeavesInvoicePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sender := new(MockSender)
	s := newInvoiceService(f, sender)
	id := createInvoice(t, s, bob, alice, "0.5", nil)

	sender.On("Send", mock.Anything, mock.Anything).
		Return(models.Transaction{ID: 3, Status: models.TxFailed}, apperr.RPC(4001, "rejected"))

	_, err := s.PayInvoice(ctx, id, carol)
	assert.True(t, apperr.Is(err, apperr.KindRPC))

	view, err := s.GetInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePending, view.Status)
}

func TestInvoiceService_ConcurrentPaySendsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sender := new(MockSender)
	s := newInvoiceService(f, sender)
	id := createInvoice(t, s, bob, alice, "0.5", nil)

	started := make(chan struct{})
	release := make(chan struct{})
	hash := "0xfeedface"
	sender.On("Send", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(models.Transaction{ID: 7, Status: models.TxCompleted, TxHash: &hash}, nil).Once()

	type result struct {
		view models.InvoiceView
		err  error
	}
	first := make(chan result, 1)
	go func() {
		view, err := s.PayInvoice(ctx, id, carol)
		first <- result{view, err}
	}()

	<-started
	_, err := s.PayInvoice(ctx, id, carol)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	assert.Contains(t, apperr.Message(err), "already in progress")

	close(release)
	res := <-first
	require.NoError(t, res.err)
	assert.True(t, res.view.IsPaid)

	_, err = s.PayInvoice(ctx, id, carol)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	sender.AssertNumberOfCalls(t, "Send", 1)
}
