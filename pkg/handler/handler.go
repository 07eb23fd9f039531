package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hashpay/pkg/middleware"
	"hashpay/pkg/service"
)

type Handler struct {
	service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// InitRoute builds the local API the screens talk to. An empty origins list
// allows any origin.
func (h *Handler) InitRoute(origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), middleware.CORS(origins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireWallet := middleware.RequireWallet(h.service.Wallet)

	api := router.Group("/api")
	{
		wallet := api.Group("/wallet")
		{
			wallet.GET("/state", h.GetWalletState)
			wallet.GET("/state/stream", h.StreamWalletState)
			wallet.POST("/connect", h.ConnectWallet)
			wallet.POST("/connect/smart-contract", h.ConnectSmartContract)
			wallet.POST("/disconnect", h.DisconnectWallet)
			wallet.POST("/verify", h.VerifyWallet)
			wallet.GET("/balance", h.GetBalance)
			wallet.GET("/deposit", h.GetDeposit)
		}

		transactions := api.Group("/transactions")
		{
			transactions.GET("", h.ListTransactions)
			transactions.GET("/stats", h.GetStats)
			transactions.GET("/stream", h.StreamTransactions)
			transactions.GET("/last-result", h.GetLastResult)
			transactions.GET("/:id", h.GetTransaction)
			transactions.POST("/send", requireWallet, h.Send)
		}

		contacts := api.Group("/contacts")
		{
			contacts.GET("", h.ListContacts)
			contacts.GET("/favorites", h.FavoriteContacts)
			contacts.GET("/recent", h.RecentContacts)
			contacts.GET("/stream", h.StreamContacts)
			contacts.POST("", h.CreateContact)
			contacts.PUT("/:id", h.UpdateContact)
			contacts.PUT("/:id/favorite", h.SetFavorite)
			contacts.DELETE("/:id", h.DeleteContact)
		}

		invoices := api.Group("/invoices")
		{
			invoices.GET("", h.ListInvoices)
			invoices.GET("/stream", h.StreamInvoices)
			invoices.GET("/:id", h.GetInvoice)
			invoices.POST("", requireWallet, h.CreateInvoice)
			invoices.POST("/:id/pay", requireWallet, h.PayInvoice)
			invoices.POST("/:id/mark-paid", requireWallet, h.MarkInvoicePaid)
			invoices.POST("/:id/cancel", requireWallet, h.CancelInvoice)
			invoices.DELETE("/:id", requireWallet, h.DeleteInvoice)
		}
	}
	return router
}
