// Package ledger holds player balances. The blackjack table only ever debits
// a stake and credits a payout; everything else here serves the CLI.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds is returned when a debit would overdraw an account
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnknownAccount is returned for operations on an account that was never opened
	ErrUnknownAccount = errors.New("unknown account")
	// ErrInvalidAmount is returned for negative or zero movements
	ErrInvalidAmount = errors.New("amount must be positive")
)

// EntryKind classifies a balance movement
type EntryKind string

const (
	EntryOpen   EntryKind = "open"
	EntryDebit  EntryKind = "debit"
	EntryCredit EntryKind = "credit"
)

// Entry is one recorded balance movement
type Entry struct {
	AccountID    string
	Kind         EntryKind
	Amount       int
	BalanceAfter int
	CreatedAt    time.Time
}

// Store is implemented by both ledgers so the CLI can pick one from config
type Store interface {
	EnsureAccount(ctx context.Context, accountID string, balance int) (int, error)
	Balance(ctx context.Context, accountID string) (int, error)
	Debit(ctx context.Context, accountID string, amount int) error
	Credit(ctx context.Context, accountID string, amount int) error
	Entries(ctx context.Context, accountID string, limit int) ([]Entry, error)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
)
