package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hashpay/models"
	"hashpay/pkg/apperr"
	"hashpay/pkg/middleware"
	"hashpay/pkg/service"
)

// invoiceFilter reads ?status= and ?scope=mine. The mine scope needs a
// connected wallet.
func (h *Handler) invoiceFilter(c *gin.Context) (service.InvoiceFilter, error) {
	filter := service.InvoiceFilter{Status: models.InvoiceStatus(c.Query("status"))}
	if c.Query("scope") == "mine" {
		st := h.service.Wallet.State()
		if !st.Connected {
			return filter, apperr.NotConnected("connect a wallet to list your invoices")
		}
		filter.Address = st.Address
	}
	return filter, nil
}

func (h *Handler) ListInvoices(c *gin.Context) {
	filter, err := h.invoiceFilter(c)
	if err != nil {
		errorResponse(c, err)
		return
	}
	invoices, err := h.service.Invoices.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": invoices,
	})
}

func (h *Handler) StreamInvoices(c *gin.Context) {
	filter, err := h.invoiceFilter(c)
	if err != nil {
		errorResponse(c, err)
		return
	}
	updates, err := h.service.Invoices.WatchInvoices(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, err)
		return
	}
	streamEvents(c, "invoices", updates)
}

func (h *Handler) GetInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	invoice, err := h.service.Invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": invoice,
	})
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	var input models.InvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ctx := c.Request.Context()
	id, err := h.service.Invoices.CreateInvoice(ctx, input, middleware.WalletAddress(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	invoice, err := h.service.Invoices.GetInvoice(ctx, id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

func (h *Handler) PayInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	invoice, err := h.service.Invoices.PayInvoice(c.Request.Context(), id, middleware.WalletAddress(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": invoice,
	})
}

func (h *Handler) MarkInvoicePaid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input models.MarkPaidInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "transaction_hash is required")
		return
	}
	if err := h.service.Invoices.MarkPaid(c.Request.Context(), id, input.TransactionHash); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CancelInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Invoices.CancelInvoice(c.Request.Context(), id, middleware.WalletAddress(c)); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Invoices.DeleteInvoice(c.Request.Context(), id, middleware.WalletAddress(c)); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
