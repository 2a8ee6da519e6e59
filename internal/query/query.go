// Package query answers read-only questions about wallets. It never takes
// the write lock; balances are snapshot reads and history is derived from
// the append-only transaction log.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet_ledger/internal/cache"
	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// History aggregates a wallet's transactions over a time window.
type History struct {
	WalletID     uint                 `json:"wallet_id"`
	Start        time.Time            `json:"start"`
	End          time.Time            `json:"end"`
	TotalCredit  decimal.Decimal      `json:"total_credit"`
	TotalDebit   decimal.Decimal      `json:"total_debit"`
	Transactions []domain.Transaction `json:"transactions"`
}

// Config controls history caching.
type Config struct {
	// CacheTTL is how long a closed history window stays cached.
	CacheTTL time.Duration
	// SettleWindow is how far in the past a window must end before it is
	// considered closed and therefore cacheable.
	SettleWindow time.Duration
	Now          func() time.Time
}

// Service serves balances and histories.
type Service struct {
	store store.Store
	rdb   redis.Cmdable
	cfg   Config
	log   logrus.FieldLogger
}

// New builds a query service. rdb may be nil, which disables caching.
func New(s store.Store, rdb redis.Cmdable, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.SettleWindow <= 0 {
		cfg.SettleWindow = time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: s, rdb: rdb, cfg: cfg, log: log}
}

// GetBalance returns the committed balance of a wallet.
func (s *Service) GetBalance(ctx context.Context, walletID uint) (decimal.Decimal, error) {
	wallet, err := s.wallet(ctx, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

// GetHistory returns the transactions of a wallet stamped within
// [start, end] together with the credited and debited totals.
func (s *Service) GetHistory(ctx context.Context, walletID uint, start, end time.Time) (*History, error) {
	start, end = start.UTC(), end.UTC()
	if end.Before(start) {
		return nil, domain.ErrInvalidRange
	}

	key := historyKey(walletID, start, end)
	cacheable := s.rdb != nil && s.cfg.CacheTTL > 0 && end.Before(s.cfg.Now().Add(-s.cfg.SettleWindow))
	if cacheable {
		var cached History
		found, err := cache.Get(ctx, s.rdb, key, &cached)
		switch {
		case errors.Is(err, cache.ErrCorrupt):
			// evict now so a failed recompute below does not leave it behind
			s.log.WithField("key", key).Warn("Evicting corrupt history cache entry")
			if err := cache.Delete(ctx, s.rdb, key); err != nil {
				s.log.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("History cache eviction failed")
			}
		case err != nil:
			s.log.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("History cache read failed")
		case found:
			return &cached, nil
		}
	}

	if _, err := s.wallet(ctx, walletID); err != nil {
		return nil, err
	}
	txs, err := s.store.Transactions(ctx, walletID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreFault, err)
	}

	history := &History{
		WalletID:     walletID,
		Start:        start,
		End:          end,
		TotalCredit:  decimal.Zero,
		TotalDebit:   decimal.Zero,
		Transactions: txs,
	}
	if history.Transactions == nil {
		history.Transactions = []domain.Transaction{}
	}
	for _, tx := range txs {
		switch tx.Kind {
		case domain.KindCredit:
			history.TotalCredit = history.TotalCredit.Add(tx.Amount)
		case domain.KindDebit:
			history.TotalDebit = history.TotalDebit.Add(tx.Amount)
		}
	}

	if cacheable {
		if err := cache.Set(ctx, s.rdb, key, history, s.cfg.CacheTTL); err != nil {
			s.log.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("History cache write failed")
		}
	}
	return history, nil
}

func (s *Service) wallet(ctx context.Context, walletID uint) (*domain.Wallet, error) {
	wallet, err := s.store.WalletByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreFault, err)
	}
	return wallet, nil
}

func historyKey(walletID uint, start, end time.Time) string {
	return fmt.Sprintf("txhistory:wallet:%d:%d:%d", walletID, start.UnixNano(), end.UnixNano())
}
