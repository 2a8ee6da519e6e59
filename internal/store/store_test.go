package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/store"
	"wallet_ledger/internal/store/storetest"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(t *testing.T) store.Store {
	return map[string]func(t *testing.T) store.Store{
		"memory": func(*testing.T) store.Store { return store.NewMemory() },
		"gorm":   func(t *testing.T) store.Store { return storetest.NewSQLite(t) },
	}
}

func seedWallet(t *testing.T, s store.Store, phone string) *domain.Wallet {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{PhoneNumber: phone}
	require.NoError(t, s.CreateUser(ctx, user))
	wallet := &domain.Wallet{UserID: user.ID, Balance: decimal.Zero}
	require.NoError(t, s.CreateWallet(ctx, wallet))
	return wallet
}

func TestStore_UniqueConstraints(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			user := &domain.User{PhoneNumber: "5550001"}
			require.NoError(t, s.CreateUser(ctx, user))
			assert.NotZero(t, user.ID)

			err := s.CreateUser(ctx, &domain.User{PhoneNumber: "5550001"})
			assert.ErrorIs(t, err, store.ErrDuplicate)

			require.NoError(t, s.CreateWallet(ctx, &domain.Wallet{UserID: user.ID}))
			err = s.CreateWallet(ctx, &domain.Wallet{UserID: user.ID})
			assert.ErrorIs(t, err, store.ErrDuplicate)

			found, err := s.UserByPhone(ctx, "5550001")
			require.NoError(t, err)
			assert.Equal(t, user.ID, found.ID)

			_, err = s.UserByPhone(ctx, "missing")
			assert.ErrorIs(t, err, store.ErrNotFound)
			_, err = s.WalletByID(ctx, 9999)
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestStore_SwapWalletRejectsStaleVersion(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			wallet := seedWallet(t, s, "5550002")

			err := s.Atomic(ctx, func(tx store.Tx) error {
				w, err := tx.ReadWallet(wallet.ID)
				if err != nil {
					return err
				}
				w.Balance = decimal.NewFromInt(10)
				if err := tx.SwapWallet(w, w.Version); err != nil {
					return err
				}
				return tx.AppendTransaction(&domain.Transaction{
					WalletID:  w.ID,
					Amount:    decimal.NewFromInt(10),
					Kind:      domain.KindCredit,
					CreatedAt: time.Now().UTC(),
				})
			})
			require.NoError(t, err)

			// version 0 is stale now
			err = s.Atomic(ctx, func(tx store.Tx) error {
				stale := *wallet
				stale.Balance = decimal.NewFromInt(99)
				return tx.SwapWallet(&stale, 0)
			})
			assert.ErrorIs(t, err, store.ErrConflict)

			current, err := s.WalletByID(ctx, wallet.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), current.Version)
			assert.True(t, current.Balance.Equal(decimal.NewFromInt(10)), "balance %s", current.Balance)
		})
	}
}

func TestStore_AtomicRollsBackOnError(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			wallet := seedWallet(t, s, "5550003")
			boom := errors.New("boom")

			err := s.Atomic(ctx, func(tx store.Tx) error {
				w, err := tx.LockWallet(wallet.ID)
				if err != nil {
					return err
				}
				w.Balance = decimal.NewFromInt(500)
				if err := tx.SwapWallet(w, w.Version); err != nil {
					return err
				}
				if err := tx.AppendTransaction(&domain.Transaction{
					WalletID: w.ID, Amount: decimal.NewFromInt(500), Kind: domain.KindCredit, CreatedAt: time.Now().UTC(),
				}); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			current, err := s.WalletByID(ctx, wallet.ID)
			require.NoError(t, err)
			assert.True(t, current.Balance.IsZero())
			assert.Equal(t, int64(0), current.Version)

			txs, err := s.Transactions(ctx, wallet.ID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
			require.NoError(t, err)
			assert.Empty(t, txs)
		})
	}
}

func TestStore_TransactionsWindow(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			wallet := seedWallet(t, s, "5550004")
			base := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

			for i, day := range []int{0, 5, 10, 30} {
				err := s.Atomic(ctx, func(tx store.Tx) error {
					return tx.AppendTransaction(&domain.Transaction{
						WalletID:  wallet.ID,
						Amount:    decimal.NewFromInt(int64(i + 1)),
						Kind:      domain.KindCredit,
						CreatedAt: base.AddDate(0, 0, day),
					})
				})
				require.NoError(t, err)
			}

			txs, err := s.Transactions(ctx, wallet.ID, base, base.AddDate(0, 0, 10))
			require.NoError(t, err)
			require.Len(t, txs, 3)
			for i, tx := range txs {
				assert.True(t, tx.Amount.Equal(decimal.NewFromInt(int64(i+1))), "entry %d amount %s", i, tx.Amount)
			}

			other, err := s.Transactions(ctx, wallet.ID+100, base, base.AddDate(1, 0, 0))
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestStore_LockWalletSerializesWriters(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			wallet := seedWallet(t, s, "5550005")

			const writers = 20
			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- s.Atomic(ctx, func(tx store.Tx) error {
						w, err := tx.LockWallet(wallet.ID)
						if err != nil {
							return err
						}
						w.Balance = w.Balance.Add(decimal.NewFromInt(1))
						return tx.SwapWallet(w, w.Version)
					})
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			current, err := s.WalletByID(ctx, wallet.ID)
			require.NoError(t, err)
			assert.True(t, current.Balance.Equal(decimal.NewFromInt(writers)), "balance %s", current.Balance)
			assert.Equal(t, int64(writers), current.Version)
		})
	}
}

func TestClassifyMySQLErrors(t *testing.T) {
	s := store.NewMemory()
	tests := []struct {
		number uint16
		want   error
	}{
		{1062, store.ErrDuplicate},
		{1213, store.ErrConflict},
		{1205, store.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.number), func(t *testing.T) {
			err := store.Classify(&mysql.MySQLError{Number: tt.number, Message: "driver"})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	plain := errors.New("connection refused")
	assert.Equal(t, plain, store.Classify(plain))
	assert.NoError(t, s.Ping(context.Background()))
}
