package blackjack

import "errors"

var (
	// ErrInvalidWager is returned when a stake is below the table minimum or
	// above the available balance. No ledger call is made.
	ErrInvalidWager = errors.New("invalid wager")
	// ErrActionNotAllowed is returned for an action the current phase does
	// not accept. State is left untouched.
	ErrActionNotAllowed = errors.New("action not allowed in phase")
	// ErrDebitDeclined is returned when the ledger refuses a debit for lack
	// of funds. The round stays in the phase it was in.
	ErrDebitDeclined = errors.New("ledger declined debit")
	// ErrLedgerCallFailed wraps any other ledger failure, including timeouts
	ErrLedgerCallFailed = errors.New("ledger call failed")
	// ErrActionInProgress is returned when an action arrives while another
	// one is still running on the same table
	ErrActionInProgress = errors.New("another action is in progress")

	errLedgerTimeout = errors.New("ledger timeout")
)
