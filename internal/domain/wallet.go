package domain

import (
	"time"

	"github.com/shopspring/decimal" // Exact decimal arithmetic for money
)

// MoneyScale is the number of decimal places stored for balances and amounts
const MoneyScale = 4

// FitsScale reports whether d is stored without rounding
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// Wallet Model
type Wallet struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                                 // Primary key
	UserID    uint            `gorm:"uniqueIndex;not null" json:"user_id"`                  // Owning user, one wallet per user
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"` // Current balance
	Version   int64           `gorm:"not null;default:0" json:"version"`                    // Incremented once per committed mutation
	CreatedAt time.Time       `json:"created_at"`                                           // Creation time
	UpdatedAt time.Time       `json:"updated_at"`                                           // Last mutation time
}
