package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hashpay/models"
)

func (h *Handler) GetWalletState(c *gin.Context) {
	wrapOkJSON(c, map[string]interface{}{
		"data": h.service.Wallet.State(),
	})
}

// StreamWalletState pushes the connection state now and on every change.
func (h *Handler) StreamWalletState(c *gin.Context) {
	streamEvents(c, "wallet", h.service.Wallet.Subscribe(c.Request.Context()))
}

func (h *Handler) ConnectWallet(c *gin.Context) {
	st, err := h.service.Wallet.ConnectWallet(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": st,
	})
}

func (h *Handler) ConnectSmartContract(c *gin.Context) {
	var input models.SmartContractInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "address is required")
		return
	}
	st, err := h.service.Wallet.ConnectSmartContract(c.Request.Context(), input.Address)
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": st,
	})
}

func (h *Handler) DisconnectWallet(c *gin.Context) {
	if err := h.service.Wallet.DisconnectWallet(c.Request.Context()); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// VerifyWallet checks a saved session against the provider, typically on
// startup.
func (h *Handler) VerifyWallet(c *gin.Context) {
	st, err := h.service.Wallet.EnsureConnected(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": st,
	})
}

func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.service.Wallet.Balance(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": balance,
	})
}

func (h *Handler) GetDeposit(c *gin.Context) {
	info, err := h.service.Wallet.DepositInfo()
	if err != nil {
		errorResponse(c, err)
		return
	}
	wrapOkJSON(c, map[string]interface{}{
		"data": info,
	})
}
