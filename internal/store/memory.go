package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet_ledger/internal/domain"
)

// Memory is a process-local Store. Row locks are per-wallet mutexes held
// until the atomic unit ends; wallet writes are staged and checked against
// the stored version at commit.
type Memory struct {
	mu           sync.Mutex
	users        map[uint]domain.User
	phones       map[string]uint
	wallets      map[uint]domain.Wallet
	walletByUser map[uint]uint
	txs          []domain.Transaction
	rowLocks     map[uint]*sync.Mutex

	nextUserID   uint
	nextWalletID uint
	nextTxID     uint
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:        make(map[uint]domain.User),
		phones:       make(map[string]uint),
		wallets:      make(map[uint]domain.Wallet),
		walletByUser: make(map[uint]uint),
		rowLocks:     make(map[uint]*sync.Mutex),
	}
}

func (m *Memory) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.phones[user.PhoneNumber]; exists {
		return fmt.Errorf("%w: phone_number", ErrDuplicate)
	}
	m.nextUserID++
	user.ID = m.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	m.users[user.ID] = *user
	m.phones[user.PhoneNumber] = user.ID
	return nil
}

func (m *Memory) UserByID(_ context.Context, id uint) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *Memory) UserByPhone(_ context.Context, phone string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.phones[phone]
	if !ok {
		return nil, ErrNotFound
	}
	user := m.users[id]
	return &user, nil
}

func (m *Memory) CreateWallet(_ context.Context, wallet *domain.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.walletByUser[wallet.UserID]; exists {
		return fmt.Errorf("%w: user_id", ErrDuplicate)
	}
	m.nextWalletID++
	wallet.ID = m.nextWalletID
	now := time.Now().UTC()
	wallet.CreatedAt, wallet.UpdatedAt = now, now
	m.wallets[wallet.ID] = *wallet
	m.walletByUser[wallet.UserID] = wallet.ID
	m.rowLocks[wallet.ID] = &sync.Mutex{}
	return nil
}

func (m *Memory) WalletByID(_ context.Context, id uint) (*domain.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallet(id)
}

func (m *Memory) WalletByUser(_ context.Context, userID uint) (*domain.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.walletByUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return m.wallet(id)
}

// wallet must be called with m.mu held.
func (m *Memory) wallet(id uint) (*domain.Wallet, error) {
	w, ok := m.wallets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (m *Memory) Transactions(_ context.Context, walletID uint, start, end time.Time) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, t := range m.txs {
		if t.WalletID != walletID || t.CreatedAt.Before(start) || t.CreatedAt.After(end) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Atomic(_ context.Context, fn func(tx Tx) error) error {
	tx := &memoryTx{m: m}
	defer tx.release()
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx)
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) commit(tx *memoryTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range tx.swaps {
		current, ok := m.wallets[s.wallet.ID]
		if !ok {
			return ErrNotFound
		}
		if current.Version != s.expected {
			return fmt.Errorf("%w: wallet %d moved past version %d", ErrConflict, s.wallet.ID, s.expected)
		}
	}
	now := time.Now().UTC()
	for _, s := range tx.swaps {
		current := m.wallets[s.wallet.ID]
		current.Balance = s.wallet.Balance
		current.Version = s.expected + 1
		current.UpdatedAt = now
		m.wallets[current.ID] = current
	}
	for _, t := range tx.appended {
		m.nextTxID++
		t.ID = m.nextTxID
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		m.txs = append(m.txs, *t)
	}
	return nil
}

type swap struct {
	wallet   *domain.Wallet
	expected int64
}

type memoryTx struct {
	m        *Memory
	held     []*sync.Mutex
	swaps    []swap
	appended []*domain.Transaction
}

func (t *memoryTx) LockWallet(id uint) (*domain.Wallet, error) {
	t.m.mu.Lock()
	lock, ok := t.m.rowLocks[id]
	t.m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	lock.Lock()
	t.held = append(t.held, lock)
	return t.ReadWallet(id)
}

func (t *memoryTx) ReadWallet(id uint) (*domain.Wallet, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return t.m.wallet(id)
}

func (t *memoryTx) SwapWallet(w *domain.Wallet, expected int64) error {
	staged := *w
	t.swaps = append(t.swaps, swap{wallet: &staged, expected: expected})
	w.Version = expected + 1
	return nil
}

func (t *memoryTx) AppendTransaction(tx *domain.Transaction) error {
	t.appended = append(t.appended, tx)
	return nil
}

func (t *memoryTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}
