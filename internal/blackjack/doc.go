// Package blackjack implements the single-player card round engine behind the
// casino table: shoe management, hand valuation, the round state machine and
// payout settlement against an external ledger.
//
// A Table is one player's session. It owns its shoe and at most one round at
// a time, and drives that round through
//
//	Betting -> Dealt -> Player -> Dealer -> Settled
//
// Instant outcomes (naturals) short-circuit from Dealt straight to Settled.
// The only calls that leave the process are the stake debit and the payout
// credit made through the Ledger interface.
package blackjack
