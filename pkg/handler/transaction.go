package handler

import (
	"github.com/gin-gonic/gin"

	"hashpay/models"
	"hashpay/pkg/service"
)

// transactionFilter reads ?status= and ?scope=mine.
func transactionFilter(c *gin.Context) service.TransactionFilter {
	return service.TransactionFilter{
		Status:   models.TxStatus(c.Query("status")),
		MineOnly: c.Query("scope") == "mine",
	}
}

func (h *Handler) ListTransactions(c *gin.Context) {
	txs, err := h.service.History.ListTransactions(c.Request.Context(), transactionFilter(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": txs,
	})
}

func (h *Handler) StreamTransactions(c *gin.Context) {
	updates, err := h.service.History.WatchTransactions(c.Request.Context(), transactionFilter(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	streamEvents(c, "transactions", updates)
}

func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tx, err := h.service.History.GetTransaction(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": tx,
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.History.Stats(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": stats,
	})
}

// Send submits a transfer from the connected wallet. The response carries
// the settled transaction and the result banner.
func (h *Handler) Send(c *gin.Context) {
	var input models.SendInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "to_address and amount_eth are required")
		return
	}
	tx, err := h.service.Transfer.Send(c.Request.Context(), input)
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data":   tx,
		"result": h.service.Transfer.LastResult(),
	})
}

func (h *Handler) GetLastResult(c *gin.Context) {
	wrapOkJSON(c, map[string]interface{}{
		"data": h.service.Transfer.LastResult(),
	})
}
