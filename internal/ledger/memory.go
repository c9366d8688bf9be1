package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process ledger. It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int
	entries  []Entry
	now      func() time.Time
}

// NewMemory creates an empty in-memory ledger
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]int),
		now:      time.Now,
	}
}

// Open creates an account with a starting balance. Opening an existing
// account leaves its balance untouched.
func (m *Memory) Open(accountID string, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[accountID]; ok {
		return
	}
	m.balances[accountID] = balance
	m.record(accountID, EntryOpen, balance)
}

// EnsureAccount opens the account if needed and returns its balance
func (m *Memory) EnsureAccount(ctx context.Context, accountID string, balance int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if balance < 0 {
		return 0, ErrInvalidAmount
	}
	m.Open(accountID, balance)
	return m.Balance(ctx, accountID)
}

// Balance returns the current balance of an account
func (m *Memory) Balance(ctx context.Context, accountID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[accountID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	return balance, nil
}

// Debit removes amount from the account, failing with ErrInsufficientFunds
// rather than going negative.
func (m *Memory) Debit(ctx context.Context, accountID string, amount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[accountID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	if balance < amount {
		return fmt.Errorf("%w: balance %d, debit %d", ErrInsufficientFunds, balance, amount)
	}
	m.balances[accountID] = balance - amount
	m.record(accountID, EntryDebit, amount)
	return nil
}

// Credit adds amount to the account
func (m *Memory) Credit(ctx context.Context, accountID string, amount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[accountID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	m.balances[accountID] = balance + amount
	m.record(accountID, EntryCredit, amount)
	return nil
}

// Entries returns the most recent movements for an account, newest first.
// A limit of zero returns all of them.
func (m *Memory) Entries(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AccountID != accountID {
			continue
		}
		out = append(out, m.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// record must be called with mu held
func (m *Memory) record(accountID string, kind EntryKind, amount int) {
	m.entries = append(m.entries, Entry{
		AccountID:    accountID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: m.balances[accountID],
		CreatedAt:    m.now(),
	})
}
