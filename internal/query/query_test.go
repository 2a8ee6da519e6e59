package query

import (
	"context"
	"testing"
	"time"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

type entry struct {
	kind   domain.TransactionKind
	amount int64
	day    int
}

func seed(t *testing.T, s *store.Memory, entries []entry) *domain.Wallet {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{PhoneNumber: "5552000"}
	require.NoError(t, s.CreateUser(ctx, user))
	wallet := &domain.Wallet{UserID: user.ID, Balance: decimal.Zero}
	require.NoError(t, s.CreateWallet(ctx, wallet))
	for _, e := range entries {
		appendEntry(t, s, wallet.ID, e)
	}
	return wallet
}

func appendEntry(t *testing.T, s *store.Memory, walletID uint, e entry) {
	t.Helper()
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		w, err := tx.LockWallet(walletID)
		if err != nil {
			return err
		}
		tr := domain.Transaction{
			WalletID:  walletID,
			Amount:    decimal.NewFromInt(e.amount),
			Kind:      e.kind,
			CreatedAt: day0.AddDate(0, 0, e.day),
		}
		w.Balance = w.Balance.Add(tr.Signed())
		if err := tx.SwapWallet(w, w.Version); err != nil {
			return err
		}
		return tx.AppendTransaction(&tr)
	})
	require.NoError(t, err)
}

func newService(s store.Store, rdb redis.Cmdable) *Service {
	logger, _ := logtest.NewNullLogger()
	return New(s, rdb, Config{CacheTTL: time.Minute}, logger)
}

func TestGetBalance(t *testing.T) {
	mem := store.NewMemory()
	wallet := seed(t, mem, []entry{{domain.KindCredit, 200, 0}, {domain.KindDebit, 50, 1}})
	svc := newService(mem, nil)

	balance, err := svc.GetBalance(context.Background(), wallet.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(150)), "balance %s", balance)

	_, err = svc.GetBalance(context.Background(), wallet.ID+1)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestGetHistory_SumsMatchingRecords(t *testing.T) {
	mem := store.NewMemory()
	wallet := seed(t, mem, []entry{
		{domain.KindCredit, 200, 0},
		{domain.KindDebit, 50, 3},
		{domain.KindCredit, 75, 7},
		{domain.KindDebit, 20, 9},
		{domain.KindCredit, 1000, 40},
	})
	svc := newService(mem, nil)

	history, err := svc.GetHistory(context.Background(), wallet.ID, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 9))
	require.NoError(t, err)

	require.Len(t, history.Transactions, 3)
	assert.True(t, history.TotalCredit.Equal(decimal.NewFromInt(75)), "credit %s", history.TotalCredit)
	assert.True(t, history.TotalDebit.Equal(decimal.NewFromInt(70)), "debit %s", history.TotalDebit)

	credit, debit := decimal.Zero, decimal.Zero
	for i, tx := range history.Transactions {
		if i > 0 {
			assert.False(t, tx.CreatedAt.Before(history.Transactions[i-1].CreatedAt), "ordered by time")
		}
		if tx.Kind == domain.KindCredit {
			credit = credit.Add(tx.Amount)
		} else {
			debit = debit.Add(tx.Amount)
		}
	}
	assert.True(t, credit.Equal(history.TotalCredit))
	assert.True(t, debit.Equal(history.TotalDebit))
}

func TestGetHistory_EmptyAndInvalid(t *testing.T) {
	mem := store.NewMemory()
	wallet := seed(t, mem, nil)
	svc := newService(mem, nil)

	history, err := svc.GetHistory(context.Background(), wallet.ID, day0, day0.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.NotNil(t, history.Transactions)
	assert.Empty(t, history.Transactions)
	assert.True(t, history.TotalCredit.IsZero())

	_, err = svc.GetHistory(context.Background(), wallet.ID, day0, day0.Add(-time.Second))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = svc.GetHistory(context.Background(), wallet.ID+1, day0, day0)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestGetHistory_CachesClosedWindows(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mem := store.NewMemory()
	wallet := seed(t, mem, []entry{{domain.KindCredit, 200, 0}, {domain.KindDebit, 50, 1}})
	svc := newService(mem, rdb)
	ctx := context.Background()
	start, end := day0, day0.AddDate(0, 0, 5)

	first, err := svc.GetHistory(ctx, wallet.ID, start, end)
	require.NoError(t, err)
	assert.True(t, mr.Exists(historyKey(wallet.ID, start, end)))

	// an entry back-dated into the window after it was cached stays invisible
	appendEntry(t, mem, wallet.ID, entry{domain.KindCredit, 5, 2})

	second, err := svc.GetHistory(ctx, wallet.ID, start, end)
	require.NoError(t, err)
	assert.Len(t, second.Transactions, len(first.Transactions))
	assert.True(t, second.TotalCredit.Equal(first.TotalCredit))
	assert.True(t, second.TotalDebit.Equal(decimal.NewFromInt(50)))
}

func TestGetHistory_EvictsCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mem := store.NewMemory()
	wallet := seed(t, mem, []entry{{domain.KindCredit, 200, 0}})
	svc := newService(mem, rdb)
	ctx := context.Background()
	start, end := day0, day0.AddDate(0, 0, 1)

	// the lookup fails, so the entry is never rewritten by a fresh result
	missing := historyKey(wallet.ID+1, start, end)
	require.NoError(t, mr.Set(missing, "{not json"))
	_, err := svc.GetHistory(ctx, wallet.ID+1, start, end)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	assert.False(t, mr.Exists(missing))

	key := historyKey(wallet.ID, start, end)
	require.NoError(t, mr.Set(key, "{not json"))
	history, err := svc.GetHistory(ctx, wallet.ID, start, end)
	require.NoError(t, err)
	assert.True(t, history.TotalCredit.Equal(decimal.NewFromInt(200)))
	assert.True(t, mr.Exists(key), "recomputed result cached again")
}

func TestGetHistory_OpenWindowIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mem := store.NewMemory()
	wallet := seed(t, mem, []entry{{domain.KindCredit, 200, 0}})
	svc := newService(mem, rdb)

	_, err := svc.GetHistory(context.Background(), wallet.ID, day0, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestGetHistory_CacheUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	mem := store.NewMemory()
	wallet := seed(t, mem, []entry{{domain.KindCredit, 200, 0}})
	logger, hook := logtest.NewNullLogger()
	svc := New(mem, rdb, Config{CacheTTL: time.Minute}, logger)

	history, err := svc.GetHistory(context.Background(), wallet.ID, day0, day0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, history.Transactions, 1)
	assert.NotEmpty(t, hook.AllEntries())
}
