package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Date parsing

	"wallet_ledger/internal/ledger" // Per-call ledger options

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal amounts
)

// CreateWalletRequest represents a wallet creation request
type CreateWalletRequest struct {
	UserID uint `json:"user_id" binding:"required"` // Owner of the new wallet
}

// MutationRequest represents a credit or debit request
type MutationRequest struct {
	WalletID       uint             `json:"wallet_id" binding:"required"` // Target wallet
	Amount         decimal.Decimal  `json:"amount"`                       // Amount, number or string
	MinimumBalance *decimal.Decimal `json:"minimum_balance"`              // Optional floor override
}

// options turns the optional request fields into ledger options
func (r MutationRequest) options() []ledger.Option {
	if r.MinimumBalance == nil {
		return nil // Engine default floor
	}
	return []ledger.Option{ledger.WithMinBalance(*r.MinimumBalance)}
}

// CreateWalletHandler creates a wallet for a user (one wallet per user)
func CreateWalletHandler(l Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateWalletRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"}) // Missing user id
			return
		}
		wallet, err := l.CreateWallet(c.Request.Context(), req.UserID) // Open the wallet
		if err != nil {
			writeError(c, err) // Unknown user, duplicate wallet or store fault
			return
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"wallet_id": wallet.ID})
	}
}

// CreditHandler adds funds to a wallet
func CreditHandler(l Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MutationRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet ID and amount are required"}) // Invalid body
			return
		}
		balance, err := l.Credit(c.Request.Context(), req.WalletID, req.Amount, req.options()...) // Apply credit
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"new_balance": balance}) // Return the new balance
	}
}

// DebitHandler removes funds from a wallet
func DebitHandler(l Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MutationRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet ID and amount are required"}) // Invalid body
			return
		}
		balance, err := l.Debit(c.Request.Context(), req.WalletID, req.Amount, req.options()...) // Apply debit
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"new_balance": balance}) // Return the new balance
	}
}

// GetBalanceHandler returns the balance of a wallet
func GetBalanceHandler(q Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		walletID, err := strconv.ParseUint(c.Param("wallet_id"), 10, 64) // Path parameter
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet ID"})
			return
		}
		balance, err := q.GetBalance(c.Request.Context(), uint(walletID)) // Snapshot read
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": balance}) // Return balance
	}
}

// GetTransactionHistoryHandler returns the transactions of a wallet in a date range
func GetTransactionHistoryHandler(q Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		walletID, err := strconv.ParseUint(c.Query("wallet_id"), 10, 64) // Required query parameter
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet ID is required"})
			return
		}
		start := time.Unix(0, 0).UTC() // Default: since the beginning
		if s := c.Query("start_date"); s != "" {
			if start, err = parseDate(s, false); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date"})
				return
			}
		}
		end := time.Now().UTC() // Default: up to now
		if e := c.Query("end_date"); e != "" {
			if end, err = parseDate(e, true); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date"})
				return
			}
		}
		history, err := q.GetHistory(c.Request.Context(), uint(walletID), start, end) // Aggregate the log
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": history}) // Return history
	}
}

// parseDate accepts RFC3339 or a plain date; a plain end date covers the whole day
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil // Full timestamp
	}
	t, err := time.Parse(time.DateOnly, s) // Plain date
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond) // Inclusive end of day
	}
	return t, nil
}
