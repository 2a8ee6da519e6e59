// Package ledger applies credits and debits to wallets under concurrency.
//
// Every mutation runs as one atomic unit in the store: the wallet row is
// acquired, the request is validated against the balance just read, the
// new balance is written with a compare-and-swap on the wallet version,
// and the transaction record is appended. A unit that loses the version
// race is rolled back and retried according to the engine's retry policy.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/retry"
	"wallet_ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LockMode selects how a wallet row is acquired inside an atomic unit.
type LockMode string

const (
	// Pessimistic takes a row-exclusive lock (SELECT ... FOR UPDATE), so
	// concurrent writers queue on the store instead of conflicting.
	Pessimistic LockMode = "pessimistic"
	// Optimistic reads the row without a lock and relies on the version
	// compare-and-swap to reject stale writes.
	Optimistic LockMode = "optimistic"
)

// DefaultMinBalance is the floor used when a call does not supply one.
var DefaultMinBalance = decimal.NewFromInt(100)

// Config holds engine-wide defaults.
type Config struct {
	MinBalance decimal.Decimal
	Mode       LockMode
	// Retry bounds the attempts of a mutation that keeps losing the
	// version race. Its Retryable field is set by the engine.
	Retry retry.Policy
	// Now stamps transaction records; defaults to time.Now in UTC.
	Now func() time.Time
}

// DefaultConfig returns a floor of 100, pessimistic locking, and three
// attempts one second apart.
func DefaultConfig() Config {
	return Config{
		MinBalance: DefaultMinBalance,
		Mode:       Pessimistic,
		Retry:      retry.Fixed(3, time.Second),
	}
}

// Engine is the balance-mutation engine. It keeps no per-wallet state, so
// one Engine may serve any number of concurrent callers.
type Engine struct {
	store store.Store
	cfg   Config
	log   logrus.FieldLogger
}

// New builds an engine over s.
func New(s store.Store, cfg Config, log logrus.FieldLogger) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = Pessimistic
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{store: s, cfg: cfg, log: log}
}

// CreateWallet opens a wallet with balance 0 and version 0 for userID.
func (e *Engine) CreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	if _, err := e.store.UserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeFault(err)
	}

	existing, err := e.store.WalletByUser(ctx, userID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w with id %d", domain.ErrWalletAlreadyExists, existing.ID)
	case !errors.Is(err, store.ErrNotFound):
		return nil, storeFault(err)
	}

	wallet := &domain.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := e.store.CreateWallet(ctx, wallet); err != nil {
		// lost a concurrent creation race to the unique index
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.ErrWalletAlreadyExists
		}
		return nil, storeFault(err)
	}

	e.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"wallet_id": wallet.ID,
	}).Info("Wallet created")
	return wallet, nil
}

// Credit adds amount to the wallet and returns the new balance.
//
// The credit is rejected with domain.ErrBelowMinimumBalance when the
// credited balance (current + amount) would still be under the floor. The
// check is made on the balance after the credit, not before it, so a
// top-up too small to lift the wallet to the floor is refused.
func (e *Engine) Credit(ctx context.Context, walletID uint, amount decimal.Decimal, opts ...Option) (decimal.Decimal, error) {
	o := e.options(opts)
	if err := checkAmounts(amount, o.minBalance); err != nil {
		return decimal.Zero, err
	}
	return e.applyVersioned(ctx, walletID, domain.KindCredit, amount, o, func(current decimal.Decimal) error {
		if current.Add(amount).LessThan(o.minBalance) {
			return fmt.Errorf("%w of %s", domain.ErrBelowMinimumBalance, o.minBalance)
		}
		return nil
	})
}

// Debit removes amount from the wallet and returns the new balance. The
// balance must cover amount and stay at or above the floor afterwards.
// When every attempt loses the version race the call fails with
// domain.ErrConflictExceeded.
func (e *Engine) Debit(ctx context.Context, walletID uint, amount decimal.Decimal, opts ...Option) (decimal.Decimal, error) {
	o := e.options(opts)
	if err := checkAmounts(amount, o.minBalance); err != nil {
		return decimal.Zero, err
	}
	return e.applyVersioned(ctx, walletID, domain.KindDebit, amount, o, func(current decimal.Decimal) error {
		if current.LessThan(amount) {
			return fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientBalance, current, amount)
		}
		if current.Sub(amount).LessThan(o.minBalance) {
			return fmt.Errorf("%w of %s", domain.ErrBelowMinimumBalance, o.minBalance)
		}
		return nil
	})
}

// applyVersioned is the locked versioned update shared by Credit and
// Debit. check runs inside the atomic unit against the balance read there.
func (e *Engine) applyVersioned(
	ctx context.Context,
	walletID uint,
	kind domain.TransactionKind,
	amount decimal.Decimal,
	o callOptions,
	check func(current decimal.Decimal) error,
) (decimal.Decimal, error) {
	log := e.log.WithFields(logrus.Fields{
		"wallet_id": walletID,
		"kind":      kind,
		"amount":    amount.String(),
		"lock_mode": e.cfg.Mode,
	})

	policy := o.policy
	policy.Retryable = func(err error) bool { return errors.Is(err, store.ErrConflict) }

	var (
		balance   decimal.Decimal
		stampedAt time.Time
	)
	err := policy.Do(ctx, func(attempt int) error {
		alog := log.WithField("attempt", attempt)
		err := e.store.Atomic(ctx, func(tx store.Tx) error {
			wallet, err := e.acquire(tx, walletID)
			if err != nil {
				return err
			}
			alog.WithFields(logrus.Fields{"state": "lock_acquired", "version": wallet.Version}).Debug("Wallet acquired")

			if err := check(wallet.Balance); err != nil {
				return err
			}
			alog.WithField("state", "validated").Debug("Mutation validated")

			expected := wallet.Version
			if kind == domain.KindDebit {
				wallet.Balance = wallet.Balance.Sub(amount)
			} else {
				wallet.Balance = wallet.Balance.Add(amount)
			}
			if err := tx.SwapWallet(wallet, expected); err != nil {
				return err
			}
			record := &domain.Transaction{
				WalletID:  walletID,
				Amount:    amount,
				Kind:      kind,
				CreatedAt: e.cfg.Now(),
			}
			if err := tx.AppendTransaction(record); err != nil {
				return err
			}
			balance, stampedAt = wallet.Balance, record.CreatedAt
			return nil
		})
		if errors.Is(err, store.ErrConflict) {
			alog.WithFields(logrus.Fields{"state": "conflict", "error": err.Error()}).Warn("Wallet version conflict, retrying")
		}
		return err
	})

	if err != nil {
		err = translate(err)
		entry := log.WithFields(logrus.Fields{"error": err.Error(), "error_kind": domain.KindOf(err)})
		if domain.KindOf(err) == domain.KindValidation || domain.KindOf(err) == domain.KindNotFound {
			entry.Info("Wallet mutation rejected")
		} else {
			entry.Error("Wallet mutation failed")
		}
		return decimal.Zero, err
	}

	log.WithFields(logrus.Fields{
		"state":       "committed",
		"new_balance": balance.String(),
		"timestamp":   stampedAt.Format(time.RFC3339Nano),
	}).Info("Wallet mutation committed")
	return balance, nil
}

// checkAmounts rejects amounts that are not positive, and amounts or floors
// with more decimal places than a balance can hold.
func checkAmounts(amount, floor decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: must be greater than zero", domain.ErrInvalidAmount)
	}
	if !domain.FitsScale(amount) {
		return fmt.Errorf("%w: %s has more than %d decimal places", domain.ErrInvalidAmount, amount, domain.MoneyScale)
	}
	if !domain.FitsScale(floor) {
		return fmt.Errorf("%w: minimum balance %s has more than %d decimal places", domain.ErrInvalidAmount, floor, domain.MoneyScale)
	}
	return nil
}

func (e *Engine) acquire(tx store.Tx, walletID uint) (*domain.Wallet, error) {
	if e.cfg.Mode == Optimistic {
		return tx.ReadWallet(walletID)
	}
	return tx.LockWallet(walletID)
}

// translate maps what came out of the retry loop onto the domain taxonomy.
func translate(err error) error {
	switch {
	case errors.Is(err, retry.ErrExhausted):
		return fmt.Errorf("%w: %w", domain.ErrConflictExceeded, err)
	case errors.Is(err, store.ErrNotFound):
		return domain.ErrWalletNotFound
	case domain.KindOf(err) != domain.KindStoreFault:
		return err
	default:
		return storeFault(err)
	}
}

func storeFault(err error) error {
	if errors.Is(err, domain.ErrStoreFault) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreFault, err)
}
