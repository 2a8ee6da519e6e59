// Package store persists users, wallets and their transaction log.
//
// Two implementations are provided: Gorm, backed by a relational database
// with row locks, and Memory, a process-local store the service tests run
// against. Both honor the same contract: a wallet write only commits
// when the version it was read at is still current.
package store

import (
	"context"
	"errors"
	"time"

	"wallet_ledger/internal/domain"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict is returned when a concurrent writer committed first:
	// a version mismatch, a deadlock victim or a lock wait timeout.
	ErrConflict = errors.New("write conflict")
)

// Store is the entity store consumed by the ledger, registry and query
// services.
type Store interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UserByID(ctx context.Context, id uint) (*domain.User, error)
	UserByPhone(ctx context.Context, phone string) (*domain.User, error)

	CreateWallet(ctx context.Context, wallet *domain.Wallet) error
	WalletByID(ctx context.Context, id uint) (*domain.Wallet, error)
	WalletByUser(ctx context.Context, userID uint) (*domain.Wallet, error)

	// Transactions returns the log entries of a wallet whose timestamp lies
	// in [start, end], oldest first.
	Transactions(ctx context.Context, walletID uint, start, end time.Time) ([]domain.Transaction, error)

	// Atomic runs fn inside one atomic unit. The unit commits only when fn
	// returns nil; any error rolls it back and is returned unchanged, apart
	// from driver errors that are mapped onto the sentinels above.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
}

// Tx is the view of the store available inside an atomic unit.
type Tx interface {
	// LockWallet reads a wallet and holds it exclusively until the unit ends.
	LockWallet(id uint) (*domain.Wallet, error)
	// ReadWallet reads a wallet without taking a lock.
	ReadWallet(id uint) (*domain.Wallet, error)
	// SwapWallet writes w's balance with version expected+1, provided the
	// stored version still equals expected. On success w.Version is updated.
	SwapWallet(w *domain.Wallet, expected int64) error
	// AppendTransaction adds an entry to the log.
	AppendTransaction(t *domain.Transaction) error
}
