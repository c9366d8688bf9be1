package blackjack

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lox/densistedon/internal/deck"
)

// Round is one wager played to settlement. It is only touched while the
// owning Table holds its lock.
type Round struct {
	ID         string
	Wager      int
	Doubled    bool
	Player     Hand
	Dealer     Hand
	Phase      Phase
	Settlement *Settlement
	StartedAt  time.Time
}

func newRound(wager int, now time.Time) *Round {
	return &Round{
		ID:        uuid.NewString(),
		Wager:     wager,
		Phase:     Betting,
		StartedAt: now,
	}
}

// EffectiveWager is the total staked, twice the wager after a double
func (r *Round) EffectiveWager() int {
	if r.Doubled {
		return r.Wager * 2
	}
	return r.Wager
}

// holeHidden reports whether the dealer's second card is still face down
func (r *Round) holeHidden() bool {
	return r.Phase == Dealt || r.Phase == Player
}

// Settlement is the final money movement for a round
type Settlement struct {
	RoundID string
	Outcome Outcome
	// Staked is the effective wager already debited
	Staked int
	// Credit is the amount paid back to the player, possibly zero
	Credit int
	// Net is Credit minus Staked
	Net       int
	SettledAt time.Time
	// CreditErr is set when the payout could not be credited. The outcome
	// still stands; the caller owns retrying the credit.
	CreditErr error
}

// payout returns the credit owed for an outcome. A natural pays 2.5x the
// original wager, rounded down; even-money wins pay back twice the stake.
func payout(outcome Outcome, wager, staked int) int {
	switch outcome {
	case OutcomePlayerBlackjack:
		return wager * 5 / 2
	case OutcomeWin, OutcomeDealerBust:
		return staked * 2
	case OutcomePush:
		return staked
	default:
		return 0
	}
}

// compareTotals settles a round that reached the dealer
func compareTotals(player, dealer HandValue) Outcome {
	switch {
	case dealer.Total > BlackjackTotal:
		return OutcomeDealerBust
	case player.Total > dealer.Total:
		return OutcomeWin
	case player.Total < dealer.Total:
		return OutcomeLoss
	default:
		return OutcomePush
	}
}

// Snapshot is a read-only copy of table state suitable for display. While
// the hole card is hidden Dealer holds only the up card.
type Snapshot struct {
	RoundID       string
	Phase         Phase
	Wager         int
	Doubled       bool
	Player        Hand
	PlayerValue   HandValue
	Dealer        Hand
	DealerValue   HandValue
	HoleHidden    bool
	Settlement    *Settlement
	ShoeRemaining int
}

func snapshotOf(r *Round, shoe *deck.Shoe) Snapshot {
	snap := Snapshot{Phase: Betting, ShoeRemaining: shoe.Remaining()}
	if r == nil {
		return snap
	}
	snap.RoundID = r.ID
	snap.Phase = r.Phase
	snap.Wager = r.EffectiveWager()
	snap.Doubled = r.Doubled
	snap.Player = slices.Clone(r.Player)
	snap.PlayerValue = r.Player.Value()
	snap.Dealer = slices.Clone(r.Dealer)
	if r.holeHidden() && len(snap.Dealer) > 1 {
		snap.Dealer = snap.Dealer[:1]
		snap.HoleHidden = true
	}
	snap.DealerValue = snap.Dealer.Value()
	if r.Settlement != nil {
		s := *r.Settlement
		snap.Settlement = &s
	}
	return snap
}
