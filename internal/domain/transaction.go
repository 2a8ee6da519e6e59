package domain

import (
	"time"

	"github.com/shopspring/decimal" // Exact decimal arithmetic for money
)

// TransactionKind is the direction of a balance change
type TransactionKind string

const (
	KindCredit TransactionKind = "credit" // Money added to the wallet
	KindDebit  TransactionKind = "debit"  // Money taken from the wallet
)

// Transaction Model, append-only
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                      // Primary key
	WalletID  uint            `gorm:"index;not null" json:"wallet_id"`           // Wallet the change applies to
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"` // Always positive
	Kind      TransactionKind `gorm:"size:10;not null" json:"kind"`              // credit or debit
	CreatedAt time.Time       `gorm:"index;not null" json:"created_at"`          // Timestamp of the change
}

// Signed returns the amount as it affects the balance
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == KindDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
