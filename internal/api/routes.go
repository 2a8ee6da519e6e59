package api

import (
	"context"  // Context for the store ping
	"net/http" // HTTP status codes
	"time"     // Ping timeout

	"github.com/gin-gonic/gin" // Gin web framework
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the routes call into
type Services struct {
	Registry Registry
	Ledger   Ledger
	Queries  Queries
	Store    Pinger
}

// RegisterRoutes mounts all wallet routes on r
func RegisterRoutes(r gin.IRouter, s Services) {
	r.GET("/health", HealthHandler(s.Store))         // Liveness and store check
	r.POST("/register", RegisterHandler(s.Registry)) // Registration endpoint

	walletGroup := r.Group("/wallet")
	walletGroup.POST("/create", CreateWalletHandler(s.Ledger))                // Create wallet endpoint
	walletGroup.POST("/credit", CreditHandler(s.Ledger))                      // Credit endpoint
	walletGroup.POST("/debit", DebitHandler(s.Ledger))                        // Debit endpoint
	walletGroup.GET("/balance/:wallet_id", GetBalanceHandler(s.Queries))      // Balance endpoint
	walletGroup.GET("/transactions", GetTransactionHistoryHandler(s.Queries)) // Transaction history endpoint
}

// HealthHandler pings the store
func HealthHandler(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second) // Bound the ping
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"}) // Store down
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
