package api

import (
	"context"  // Context passed to services
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"time"     // Timestamps

	"wallet_ledger/internal/domain" // Domain models and errors
	"wallet_ledger/internal/ledger" // Per-call ledger options
	"wallet_ledger/internal/query"  // History type

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal amounts
)

// Registry is the user registration surface used by the handlers
type Registry interface {
	CreateUser(ctx context.Context, phone string) (*domain.User, error)
}

// Ledger is the wallet mutation surface used by the handlers
type Ledger interface {
	CreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error)
	Credit(ctx context.Context, walletID uint, amount decimal.Decimal, opts ...ledger.Option) (decimal.Decimal, error)
	Debit(ctx context.Context, walletID uint, amount decimal.Decimal, opts ...ledger.Option) (decimal.Decimal, error)
}

// Queries is the read surface used by the handlers
type Queries interface {
	GetBalance(ctx context.Context, walletID uint) (decimal.Decimal, error)
	GetHistory(ctx context.Context, walletID uint, start, end time.Time) (*query.History, error)
}

// statusFor maps an error onto the HTTP status returned to the caller
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound // Unknown user or wallet
	case domain.KindAlreadyExists, domain.KindConflictExceeded:
		return http.StatusConflict // Duplicate or too much contention
	case domain.KindValidation:
		// Business rule rejections get their own status
		if errors.Is(err, domain.ErrInsufficientBalance) || errors.Is(err, domain.ErrBelowMinimumBalance) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest // Malformed input
	default:
		return http.StatusInternalServerError // Store fault
	}
}

// writeError renders err with its kind; store faults are not echoed back
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindStoreFault {
		msg = "internal error" // Hide backend details from callers
	}
	c.JSON(statusFor(err), gin.H{"error": msg, "kind": kind})
}
