package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hashpay/models"
	"hashpay/pkg/apperr"
)

const walletAddressKey = "wallet_address"

// WalletState is what RequireWallet needs from the wallet service.
type WalletState interface {
	State() models.WalletState
}

// RequireWallet rejects the request with 428 unless a wallet is connected.
// The connected address is the caller identity for the rest of the chain.
func RequireWallet(wallet WalletState) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := wallet.State()
		if !st.Connected || st.Address == "" {
			logrus.WithField("path", c.FullPath()).Info("RequireWallet: no wallet connected")
			c.AbortWithStatusJSON(http.StatusPreconditionRequired, gin.H{
				"message": "connect a wallet first",
				"kind":    apperr.KindNotConnected.String(),
			})
			return
		}
		c.Set(walletAddressKey, st.Address)
		c.Next()
	}
}

// WalletAddress returns the address RequireWallet stored on the context.
func WalletAddress(c *gin.Context) string {
	return c.GetString(walletAddressKey)
}
