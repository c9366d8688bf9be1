package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	balance    INTEGER NOT NULL CHECK (balance >= 0),
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	kind          TEXT NOT NULL,
	amount        INTEGER NOT NULL,
	balance_after INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_account ON entries(account_id, id);
`

// SQLite persists balances in a SQLite database file
type SQLite struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens (creating if needed) a ledger database at path
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection serialises writers and keeps balance updates atomic
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the database handle
func (s *SQLite) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// EnsureAccount creates the account with a starting balance if it does not
// exist yet, and returns the current balance either way.
func (s *SQLite) EnsureAccount(ctx context.Context, accountID string, balance int) (int, error) {
	if strings.TrimSpace(accountID) == "" {
		return 0, fmt.Errorf("account id is required")
	}
	if balance < 0 {
		return 0, ErrInvalidAmount
	}
	var current int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := toMillis(s.now())
		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, balance, updated_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
			accountID, balance, now)
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			if err := insertEntry(ctx, tx, accountID, EntryOpen, balance, balance, now); err != nil {
				return err
			}
		}
		return tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&current)
	})
	if err != nil {
		return 0, err
	}
	return current, nil
}

// Balance returns the current balance of an account
func (s *SQLite) Balance(ctx context.Context, accountID string) (int, error) {
	var balance int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

// Debit removes amount from the account. The conditional update makes the
// balance check and the write a single step.
func (s *SQLite) Debit(ctx context.Context, accountID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := toMillis(s.now())
		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = balance - ?, updated_at = ? WHERE id = ? AND balance >= ?`,
			amount, now, accountID, amount)
		if err != nil {
			return fmt.Errorf("debit account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			balance, err := balanceTx(ctx, tx, accountID)
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: balance %d, debit %d", ErrInsufficientFunds, balance, amount)
		}
		balance, err := balanceTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		return insertEntry(ctx, tx, accountID, EntryDebit, amount, balance, now)
	})
}

// Credit adds amount to the account
func (s *SQLite) Credit(ctx context.Context, accountID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := toMillis(s.now())
		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE id = ?`,
			amount, now, accountID)
		if err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
		}
		balance, err := balanceTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		return insertEntry(ctx, tx, accountID, EntryCredit, amount, balance, now)
	})
}

// Entries returns the most recent movements for an account, newest first.
// A limit of zero returns all of them.
func (s *SQLite) Entries(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT kind, amount, balance_after, created_at FROM entries
		 WHERE account_id = ? ORDER BY id DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&kind, &e.Amount, &e.BalanceAfter, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.AccountID = accountID
		e.Kind = EntryKind(kind)
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (s *SQLite) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("ledger is not open")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func balanceTx(ctx context.Context, tx *sql.Tx, accountID string) (int, error) {
	var balance int
	err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, accountID string, kind EntryKind, amount, balanceAfter int, at int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO entries (account_id, kind, amount, balance_after, created_at) VALUES (?, ?, ?, ?, ?)`,
		accountID, string(kind), amount, balanceAfter, at)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}
