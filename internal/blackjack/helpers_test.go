package blackjack

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/densistedon/internal/deck"
	"github.com/lox/densistedon/internal/ledger"
	"github.com/lox/densistedon/internal/randutil"
	"github.com/stretchr/testify/require"
)

// fakeLedger records calls and can be told to fail or block
type fakeLedger struct {
	mu        sync.Mutex
	debits    []int
	credits   []int
	debitErr  error
	creditErr error
	onDebit   func(ctx context.Context) error
}

func (f *fakeLedger) Debit(ctx context.Context, accountID string, amount int) error {
	f.mu.Lock()
	hook, err := f.onDebit, f.debitErr
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debits = append(f.debits, amount)
	return nil
}

func (f *fakeLedger) Credit(ctx context.Context, accountID string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditErr != nil {
		return f.creditErr
	}
	f.credits = append(f.credits, amount)
	return nil
}

func (f *fakeLedger) debitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.debits)
}

func (f *fakeLedger) creditCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.credits)
}

// recordingSink captures every event a table publishes
type recordingSink struct {
	events []Event
}

func (r *recordingSink) OnEvent(event Event) {
	r.events = append(r.events, event)
}

func (r *recordingSink) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func (r *recordingSink) count(et EventType) int {
	n := 0
	for _, e := range r.events {
		if e.EventType() == et {
			n++
		}
	}
	return n
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// stackedShoe returns a six deck shoe whose first draws are cards. The
// table deals player, dealer, player, dealer, then hits in order.
func stackedShoe(cards string) *deck.Shoe {
	return deck.NewStackedShoe(deck.DefaultDeckCount, randutil.New(42), deck.MustParseCards(cards)...)
}

func newTestTable(t *testing.T, l Ledger, cards string, opts ...Option) *Table {
	t.Helper()
	base := []Option{
		WithShoe(stackedShoe(cards)),
		WithClock(quartz.NewMock(t)),
	}
	table, err := NewTable("player-1", l, randutil.New(42), quietLogger(), append(base, opts...)...)
	require.NoError(t, err)
	return table
}

func newMemoryLedger(t *testing.T, balance int) *ledger.Memory {
	t.Helper()
	m := ledger.NewMemory()
	m.Open("player-1", balance)
	return m
}

func balanceOf(t *testing.T, m *ledger.Memory) int {
	t.Helper()
	b, err := m.Balance(context.Background(), "player-1")
	require.NoError(t, err)
	return b
}
