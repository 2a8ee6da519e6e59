package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet_ledger/internal/domain"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MySQL server error numbers the store reacts to.
const (
	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

// Gorm is a Store backed by a gorm connection.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an open gorm connection.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) CreateUser(ctx context.Context, user *domain.User) error {
	return classify(s.db.WithContext(ctx).Create(user).Error)
}

func (s *Gorm) UserByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

func (s *Gorm) UserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("phone_number = ?", phone).First(&user).Error; err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

func (s *Gorm) CreateWallet(ctx context.Context, wallet *domain.Wallet) error {
	return classify(s.db.WithContext(ctx).Create(wallet).Error)
}

func (s *Gorm) WalletByID(ctx context.Context, id uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := s.db.WithContext(ctx).First(&wallet, id).Error; err != nil {
		return nil, classify(err)
	}
	return &wallet, nil
}

func (s *Gorm) WalletByUser(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, classify(err)
	}
	return &wallet, nil
}

func (s *Gorm) Transactions(ctx context.Context, walletID uint, start, end time.Time) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.db.WithContext(ctx).
		Where("wallet_id = ? AND created_at >= ? AND created_at <= ?", walletID, start.UTC(), end.UTC()).
		Order("created_at asc, id asc").
		Find(&txs).Error
	if err != nil {
		return nil, classify(err)
	}
	return txs, nil
}

func (s *Gorm) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
	return classify(err)
}

func (s *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LockWallet(id uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, id).Error; err != nil {
		return nil, classify(err)
	}
	return &wallet, nil
}

func (t *gormTx) ReadWallet(id uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := t.db.First(&wallet, id).Error; err != nil {
		return nil, classify(err)
	}
	return &wallet, nil
}

func (t *gormTx) SwapWallet(w *domain.Wallet, expected int64) error {
	res := t.db.Model(&domain.Wallet{}).
		Where("id = ? AND version = ?", w.ID, expected).
		Updates(map[string]any{
			"balance":    w.Balance,
			"version":    expected + 1,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: wallet %d moved past version %d", ErrConflict, w.ID, expected)
	}
	w.Version = expected + 1
	return nil
}

func (t *gormTx) AppendTransaction(tx *domain.Transaction) error {
	return classify(t.db.Create(tx).Error)
}

// classify maps driver errors onto the store sentinels. Errors it does not
// recognise, including those produced by callers inside Atomic, are
// returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %w", ErrDuplicate, err)
		case mysqlDeadlockDetected, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
	}
	// sqlite reports constraint and busy errors only as text
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case strings.Contains(msg, "database is locked"):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
