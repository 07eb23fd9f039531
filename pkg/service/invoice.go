package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hashpay/internal/wallet"
	"hashpay/models"
	"hashpay/pkg/apperr"
	"hashpay/pkg/metrics"
	"hashpay/pkg/repository"
	"hashpay/pkg/units"
)

type InvoiceFilter struct {
	// Status filters by stored status. InvoiceOverdue selects pending
	// invoices whose due date has passed.
	Status models.InvoiceStatus
	// Address keeps invoices the address sent or receives.
	Address string
}

// Sender is the submission flow as the invoice service needs it.
type Sender interface {
	Send(ctx context.Context, input models.SendInput) (models.Transaction, error)
}

type InvoiceService struct {
	repo   repository.Invoices
	sender Sender
	now    func() time.Time

	mu     sync.Mutex
	paying map[int64]struct{}
}

func NewInvoiceService(repo repository.Invoices, sender Sender, now func() time.Time) *InvoiceService {
	if now == nil {
		now = time.Now
	}
	return &InvoiceService{repo: repo, sender: sender, now: now, paying: make(map[int64]struct{})}
}

func (s *InvoiceService) CreateInvoice(ctx context.Context, input models.InvoiceInput, sender string) (int64, error) {
	receiver := strings.TrimSpace(input.ReceiverAddress)
	if receiver == "" {
		return 0, apperr.Validation("receiver address is required")
	}
	if !wallet.IsValidAddress(receiver) {
		return 0, apperr.Validation("receiver address is not a valid address")
	}
	amount, err := units.ParseEth(input.Amount)
	if err != nil {
		return 0, apperr.Validation(err.Error())
	}
	var due *time.Time
	if input.DueDate != nil {
		d := input.DueDate.UTC()
		due = &d
	}

	inv := models.Invoice{
		ReceiverAddress: wallet.Normalize(receiver),
		SenderAddress:   wallet.Normalize(sender),
		Amount:          amount,
		Description:     strings.TrimSpace(input.Description),
		Status:          models.InvoicePending,
		CreatedAt:       s.now().UTC(),
		DueDate:         due,
	}
	id, err := s.repo.Create(ctx, inv)
	if err != nil {
		return 0, err
	}
	metrics.InvoiceTransitions.WithLabelValues(string(models.InvoicePending)).Inc()
	logrus.WithFields(logrus.Fields{"invoice_id": id, "amount": amount.String()}).Info("invoice created")
	return id, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (models.InvoiceView, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.InvoiceView{}, err
	}
	return models.NewInvoiceView(inv, s.now()), nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]models.InvoiceView, error) {
	if err := checkInvoiceFilter(filter); err != nil {
		return nil, err
	}

	var (
		invoices []models.Invoice
		err      error
	)
	switch {
	case filter.Address != "":
		invoices, err = s.repo.ListByAddress(ctx, filter.Address)
	case filter.Status == models.InvoiceOverdue:
		invoices, err = s.repo.ListByStatus(ctx, models.InvoicePending)
	case filter.Status != "":
		invoices, err = s.repo.ListByStatus(ctx, filter.Status)
	default:
		invoices, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	return s.views(invoices, filter), nil
}

// WatchInvoices is the live version of ListInvoices. Overdue is evaluated
// each time the table changes.
func (s *InvoiceService) WatchInvoices(ctx context.Context, filter InvoiceFilter) (<-chan []models.InvoiceView, error) {
	if err := checkInvoiceFilter(filter); err != nil {
		return nil, err
	}

	var source <-chan []models.Invoice
	switch {
	case filter.Address != "":
		source = s.repo.WatchByAddress(ctx, filter.Address)
	case filter.Status == models.InvoiceOverdue:
		source = s.repo.WatchByStatus(ctx, models.InvoicePending)
	case filter.Status != "":
		source = s.repo.WatchByStatus(ctx, filter.Status)
	default:
		source = s.repo.Watch(ctx)
	}
	return mapLatest(ctx, source, func(invoices []models.Invoice) []models.InvoiceView {
		return s.views(invoices, filter)
	}), nil
}

// MarkPaid records the payment hash. Only a pending invoice can be paid, so
// a second call for the same invoice is a conflict.
func (s *InvoiceService) MarkPaid(ctx context.Context, id int64, txHash string) error {
	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		return apperr.Validation("transaction hash is required")
	}
	changed, err := s.repo.MarkPaid(ctx, id, txHash, s.now().UTC())
	if err != nil {
		return err
	}
	if !changed {
		inv, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return apperr.Conflict(fmt.Sprintf("invoice #%d is already %s", id, strings.ToLower(string(inv.Status))))
	}
	metrics.InvoiceTransitions.WithLabelValues(string(models.InvoicePaid)).Inc()
	logrus.WithFields(logrus.Fields{"invoice_id": id, "tx_hash": txHash}).Info("invoice paid")
	return nil
}

func (s *InvoiceService) CancelInvoice(ctx context.Context, id int64, caller string) error {
	if err := s.senderOnly(ctx, id, caller, "cancel", "cancelled"); err != nil {
		return err
	}
	changed, err := s.repo.Cancel(ctx, id, caller)
	if err != nil {
		return err
	}
	if !changed {
		return apperr.Conflict(fmt.Sprintf("invoice #%d changed while cancelling", id))
	}
	metrics.InvoiceTransitions.WithLabelValues(string(models.InvoiceCancelled)).Inc()
	logrus.WithField("invoice_id", id).Info("invoice cancelled")
	return nil
}

func (s *InvoiceService) DeleteInvoice(ctx context.Context, id int64, caller string) error {
	if err := s.senderOnly(ctx, id, caller, "delete", "deleted"); err != nil {
		return err
	}
	changed, err := s.repo.Delete(ctx, id, caller)
	if err != nil {
		return err
	}
	if !changed {
		return apperr.Conflict(fmt.Sprintf("invoice #%d changed while deleting", id))
	}
	logrus.WithField("invoice_id", id).Info("invoice deleted")
	return nil
}

// PayInvoice sends the invoice amount from payer to the receiver and marks
// the invoice paid with the resulting hash. Only one payment per invoice can
// be in flight; the status is read after the claim so a payment that just
// finished is seen as paid.
func (s *InvoiceService) PayInvoice(ctx context.Context, id int64, payer string) (models.InvoiceView, error) {
	if !s.claim(id) {
		return models.InvoiceView{}, apperr.Conflict(fmt.Sprintf("payment for invoice #%d is already in progress", id))
	}
	defer s.release(id)

	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.InvoiceView{}, err
	}
	view := models.NewInvoiceView(inv, s.now())
	if inv.Status != models.InvoicePending {
		return view, apperr.Conflict(fmt.Sprintf("invoice #%d is %s and cannot be paid", id, strings.ToLower(string(inv.Status))))
	}
	if wallet.SameAddress(payer, inv.ReceiverAddress) {
		return view, apperr.Permission("you cannot pay an invoice addressed to yourself")
	}

	message := fmt.Sprintf("Invoice #%d", id)
	if inv.Description != "" {
		message += ": " + inv.Description
	}
	tx, err := s.sender.Send(ctx, models.SendInput{
		ToAddress: inv.ReceiverAddress,
		AmountEth: inv.Amount.String(),
		Message:   message,
	})
	if err != nil {
		return view, err
	}
	if tx.TxHash == nil {
		return view, apperr.RPC(apperr.CodeInternal, "payment returned no transaction hash")
	}
	if err := s.MarkPaid(ctx, id, *tx.TxHash); err != nil {
		return view, err
	}
	return s.GetInvoice(ctx, id)
}

func (s *InvoiceService) claim(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.paying[id]; busy {
		return false
	}
	s.paying[id] = struct{}{}
	return true
}

func (s *InvoiceService) release(id int64) {
	s.mu.Lock()
	delete(s.paying, id)
	s.mu.Unlock()
}

func (s *InvoiceService) senderOnly(ctx context.Context, id int64, caller, action, done string) error {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !wallet.SameAddress(inv.SenderAddress, caller) {
		return apperr.Permission(fmt.Sprintf("only the creator of invoice #%d can %s it", id, action))
	}
	if inv.Status != models.InvoicePending {
		return apperr.Conflict(fmt.Sprintf("only pending invoices can be %s, invoice #%d is %s", done, id, strings.ToLower(string(inv.Status))))
	}
	return nil
}

func (s *InvoiceService) views(invoices []models.Invoice, filter InvoiceFilter) []models.InvoiceView {
	now := s.now()
	out := make([]models.InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		view := models.NewInvoiceView(inv, now)
		switch filter.Status {
		case "":
		case models.InvoiceOverdue:
			if !view.IsOverdue {
				continue
			}
		default:
			if inv.Status != filter.Status {
				continue
			}
		}
		out = append(out, view)
	}
	return out
}

func checkInvoiceFilter(filter InvoiceFilter) error {
	if filter.Status == "" {
		return nil
	}
	if _, ok := models.ParseInvoiceStatus(string(filter.Status)); !ok {
		return apperr.Validationf("unknown invoice status %q", filter.Status)
	}
	return nil
}
