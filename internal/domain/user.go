package domain

import "time"

// User Model
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                             // Primary key
	PhoneNumber string    `gorm:"size:20;uniqueIndex;not null" json:"phone_number"` // Unique phone number
	CreatedAt   time.Time `json:"created_at"`                                       // Registration time
}
