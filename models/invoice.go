package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "PENDING"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
	// InvoiceOverdue is never stored. It classifies pending invoices whose
	// due date has passed.
	InvoiceOverdue InvoiceStatus = "OVERDUE"
)

func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	switch st := InvoiceStatus(s); st {
	case InvoicePending, InvoicePaid, InvoiceCancelled, InvoiceOverdue:
		return st, true
	}
	return "", false
}

type Invoice struct {
	ID              int64           `db:"id" json:"id"`
	ReceiverAddress string          `db:"receiver_address" json:"receiver_address"`
	SenderAddress   string          `db:"sender_address" json:"sender_address"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Description     string          `db:"description" json:"description"`
	Status          InvoiceStatus   `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	PaidAt          *time.Time      `db:"paid_at" json:"paid_at"`
	DueDate         *time.Time      `db:"due_date" json:"due_date"`
	TransactionHash *string         `db:"transaction_hash" json:"transaction_hash"`
}

func (i Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoicePending && i.DueDate != nil && i.DueDate.Before(now)
}

const invoiceDateLayout = "Jan 02, 2006"

// InvoiceView is what the invoice screens render. Nothing in it is
// authoritative.
type InvoiceView struct {
	Invoice
	EffectiveStatus  InvoiceStatus `json:"effective_status"`
	FormattedAmount  string        `json:"formatted_amount"`
	FormattedDate    string        `json:"formatted_date"`
	FormattedDueDate string        `json:"formatted_due_date"`
	IsPaid           bool          `json:"is_paid"`
	IsOverdue        bool          `json:"is_overdue"`
}

func NewInvoiceView(inv Invoice, now time.Time) InvoiceView {
	view := InvoiceView{
		Invoice:          inv,
		EffectiveStatus:  inv.Status,
		FormattedAmount:  inv.Amount.StringFixed(4) + " ETH",
		FormattedDate:    inv.CreatedAt.Format(invoiceDateLayout),
		FormattedDueDate: "No due date",
		IsPaid:           inv.Status == InvoicePaid,
		IsOverdue:        inv.IsOverdue(now),
	}
	if inv.DueDate != nil {
		view.FormattedDueDate = inv.DueDate.Format(invoiceDateLayout)
	}
	if view.IsOverdue {
		view.EffectiveStatus = InvoiceOverdue
	}
	return view
}

type InvoiceInput struct {
	ReceiverAddress string     `json:"receiver_address"`
	Amount          string     `json:"amount"`
	Description     string     `json:"description"`
	DueDate         *time.Time `json:"due_date"`
}

type MarkPaidInput struct {
	TransactionHash string `json:"transaction_hash" binding:"required"`
}
