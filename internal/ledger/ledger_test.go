package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func TestStoreDebitCredit(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			balance, err := store.EnsureAccount(ctx, "alice", 1000)
			require.NoError(t, err)
			assert.Equal(t, 1000, balance)

			// Re-opening keeps the existing balance
			require.NoError(t, store.Debit(ctx, "alice", 300))
			balance, err = store.EnsureAccount(ctx, "alice", 5000)
			require.NoError(t, err)
			assert.Equal(t, 700, balance)

			require.NoError(t, store.Credit(ctx, "alice", 750))
			balance, err = store.Balance(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 1450, balance)

			entries, err := store.Entries(ctx, "alice", 0)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, EntryCredit, entries[0].Kind)
			assert.Equal(t, 1450, entries[0].BalanceAfter)
			assert.Equal(t, EntryDebit, entries[1].Kind)
			assert.Equal(t, 300, entries[1].Amount)
			assert.Equal(t, EntryOpen, entries[2].Kind)

			limited, err := store.Entries(ctx, "alice", 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

func TestStoreInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.EnsureAccount(ctx, "bob", 100)
			require.NoError(t, err)

			err = store.Debit(ctx, "bob", 101)
			require.ErrorIs(t, err, ErrInsufficientFunds)

			balance, err := store.Balance(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, 100, balance, "declined debit must not move the balance")

			require.NoError(t, store.Debit(ctx, "bob", 100))
			balance, err = store.Balance(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, 0, balance)
		})
	}
}

func TestStoreValidation(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Debit(ctx, "ghost", 10), ErrUnknownAccount)
			assert.ErrorIs(t, store.Credit(ctx, "ghost", 10), ErrUnknownAccount)
			_, err := store.Balance(ctx, "ghost")
			assert.ErrorIs(t, err, ErrUnknownAccount)

			_, err = store.EnsureAccount(ctx, "carol", 10)
			require.NoError(t, err)
			assert.ErrorIs(t, store.Debit(ctx, "carol", 0), ErrInvalidAmount)
			assert.ErrorIs(t, store.Credit(ctx, "carol", -5), ErrInvalidAmount)
		})
	}
}

func TestStoreConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.EnsureAccount(ctx, "dave", 1000)
			require.NoError(t, err)

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
			)
			for range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := store.Debit(ctx, "dave", 100); err == nil {
						mu.Lock()
						accepted++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 10, accepted)
			balance, err := store.Balance(ctx, "dave")
			require.NoError(t, err)
			assert.Equal(t, 0, balance)
		})
	}
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = db.EnsureAccount(ctx, "erin", 500)
	require.NoError(t, err)
	require.NoError(t, db.Credit(ctx, "erin", 250))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	balance, err := db.Balance(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, 750, balance)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}

func TestMemoryRespectsCancelledContext(t *testing.T) {
	m := NewMemory()
	m.Open("frank", 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Debit(ctx, "frank", 10), context.Canceled)
}
