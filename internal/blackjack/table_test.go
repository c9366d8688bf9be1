package blackjack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/densistedon/internal/deck"
	"github.com/lox/densistedon/internal/ledger"
	"github.com/lox/densistedon/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerBlackjackPaysThreeToTwo(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryLedger(t, 10000)
	table := newTestTable(t, mem, "As 9h Kd 7c")

	snap, err := table.Deal(ctx, 500, 10000)
	require.NoError(t, err)

	assert.Equal(t, Settled, snap.Phase)
	require.NotNil(t, snap.Settlement)
	assert.Equal(t, OutcomePlayerBlackjack, snap.Settlement.Outcome)
	assert.Equal(t, 1250, snap.Settlement.Credit)
	assert.Equal(t, 750, snap.Settlement.Net)
	assert.NoError(t, snap.Settlement.CreditErr)
	assert.False(t, snap.HoleHidden)
	assert.Len(t, snap.Dealer, 2)
	assert.Equal(t, 10750, balanceOf(t, mem))
}

func TestDealerBlackjackTakesStake(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLedger{}
	table := newTestTable(t, fake, "Ts As 9h Kd")

	snap, err := table.Deal(ctx, 200, 1000)
	require.NoError(t, err)

	assert.Equal(t, Settled, snap.Phase)
	assert.Equal(t, OutcomeDealerBlackjack, snap.Settlement.Outcome)
	assert.Zero(t, snap.Settlement.Credit)
	assert.Equal(t, -200, snap.Settlement.Net)
	assert.Equal(t, []int{200}, fake.debits)
	assert.Zero(t, fake.creditCount(), "zero payouts make no ledger call")
}

func TestBothBlackjackPush(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryLedger(t, 1000)
	table := newTestTable(t, mem, "As Ad Kd Qc")

	snap, err := table.Deal(ctx, 300, 1000)
	require.NoError(t, err)

	assert.Equal(t, OutcomePush, snap.Settlement.Outcome)
	assert.Equal(t, 300, snap.Settlement.Credit)
	assert.Zero(t, snap.Settlement.Net)
	assert.Equal(t, 1000, balanceOf(t, mem))
}

func TestStandOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		cards       string
		outcome     Outcome
		credit      int
		dealerCards int
	}{
		{"dealer soft 17 stands", "Ts As 9h 6d", OutcomeWin, 2000, 2},
		{"dealer hard 16 draws once", "Ts Td 9h 6c Ac", OutcomeWin, 2000, 3},
		{"dealer draws to bust", "Ts Td 2h 6c Kd", OutcomeDealerBust, 2000, 3},
		{"push", "Ts Td 8h 8c", OutcomePush, 1000, 2},
		{"loss", "Ts Td 7h 9c", OutcomeLoss, 0, 2},
		{"dealer draws several", "Ts 2d 9h 3c 2s 2h 2c 9d", OutcomeLoss, 0, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fake := &fakeLedger{}
			table := newTestTable(t, fake, tt.cards)

			snap, err := table.Deal(ctx, 1000, 5000)
			require.NoError(t, err)
			require.Equal(t, Player, snap.Phase)

			snap, err = table.Stand(ctx)
			require.NoError(t, err)
			assert.Equal(t, Settled, snap.Phase)
			assert.Equal(t, tt.outcome, snap.Settlement.Outcome)
			assert.Equal(t, tt.credit, snap.Settlement.Credit)
			assert.Len(t, snap.Dealer, tt.dealerCards)
			assert.GreaterOrEqual(t, snap.DealerValue.Total, 17)
		})
	}
}

func TestHitToBust(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLedger{}
	table := newTestTable(t, fake, "Ts 9d 6h 7c 2s Kd")

	_, err := table.Deal(ctx, 100, 1000)
	require.NoError(t, err)

	snap, err := table.Hit(ctx)
	require.NoError(t, err)
	assert.Equal(t, Player, snap.Phase)
	assert.Equal(t, 18, snap.PlayerValue.Total)

	snap, err = table.Hit(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settled, snap.Phase)
	assert.Equal(t, OutcomePlayerBust, snap.Settlement.Outcome)
	assert.Zero(t, snap.Settlement.Credit)
	assert.Len(t, snap.Dealer, 2, "dealer does not play after a bust")
	assert.Zero(t, fake.creditCount())
}

func TestThreeCardTwentyOneIsNotBlackjack(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLedger{}
	table := newTestTable(t, fake, "7s Td 7h 8c 7d")

	_, err := table.Deal(ctx, 100, 1000)
	require.NoError(t, err)
	snap, err := table.Hit(ctx)
	require.NoError(t, err)
	require.Equal(t, 21, snap.PlayerValue.Total)

	snap, err = table.Stand(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWin, snap.Settlement.Outcome)
	assert.Equal(t, 200, snap.Settlement.Credit, "even money, not 3:2")
}

func TestDoubleOnEleven(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryLedger(t, 10000)
	table := newTestTable(t, mem, "5s Td 6h 7c 9d")

	_, err := table.Deal(ctx, 1000, 10000)
	require.NoError(t, err)
	assert.Contains(t, table.ValidActions(), ActionDouble)

	snap, err := table.Double(ctx, 9000)
	require.NoError(t, err)

	assert.True(t, snap.Doubled)
	assert.Len(t, snap.Player, 3, "exactly one card after doubling")
	assert.Equal(t, 20, snap.PlayerValue.Total)
	assert.Equal(t, Settled, snap.Phase)
	assert.Equal(t, OutcomeWin, snap.Settlement.Outcome)
	assert.Equal(t, 2000, snap.Settlement.Staked)
	assert.Equal(t, 4000, snap.Settlement.Credit)
	assert.Equal(t, 2000, snap.Settlement.Net)
	assert.Equal(t, 12000, balanceOf(t, mem))
}

func TestDoubleToBust(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLedger{}
	table := newTestTable(t, fake, "Ts Td 6h 6c Kd")

	_, err := table.Deal(ctx, 500, 5000)
	require.NoError(t, err)
	snap, err := table.Double(ctx, 4500)
	require.NoError(t, err)

	assert.Equal(t, OutcomePlayerBust, snap.Settlement.Outcome)
	assert.Equal(t, 1000, snap.Settlement.Staked)
	assert.Equal(t, -1000, snap.Settlement.Net)
	assert.Equal(t, []int{500, 500}, fake.debits)
	assert.Len(t, snap.Dealer, 2)
}

func TestDoubleRestrictions(t *testing.T) {
	ctx := context.Background()

	t.Run("only on two cards", func(t *testing.T) {
		fake := &fakeLedger{}
		table := newTestTable(t, fake, "2s Td 3h 7c 4d")
		_, err := table.Deal(ctx, 100, 1000)
		require.NoError(t, err)
		_, err = table.Hit(ctx)
		require.NoError(t, err)
		assert.NotContains(t, table.ValidActions(), ActionDouble)

		_, err = table.Double(ctx, 1000)
		assert.ErrorIs(t, err, ErrActionNotAllowed)
		assert.Equal(t, 1, fake.debitCount())
	})

	t.Run("needs balance for a second wager", func(t *testing.T) {
		fake := &fakeLedger{}
		table := newTestTable(t, fake, "5s Td 6h 7c")
		_, err := table.Deal(ctx, 600, 1000)
		require.NoError(t, err)

		snap, err := table.Double(ctx, 400)
		assert.ErrorIs(t, err, ErrInvalidWager)
		assert.Equal(t, Player, snap.Phase)
		assert.Equal(t, 1, fake.debitCount())
	})

	t.Run("declined debit keeps the player phase", func(t *testing.T) {
		mem := newMemoryLedger(t, 1000)
		table := newTestTable(t, mem, "5s Td 6h 7c")
		_, err := table.Deal(ctx, 600, 1000)
		require.NoError(t, err)

		// The cached balance says yes, the ledger says no
		snap, err := table.Double(ctx, 1000)
		assert.ErrorIs(t, err, ErrDebitDeclined)
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		assert.Equal(t, Player, snap.Phase)
		assert.False(t, snap.Doubled)
		assert.Len(t, snap.Player, 2)
		assert.Equal(t, 400, balanceOf(t, mem))
	})
}

func TestInvalidWagerMakesNoLedgerCall(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLedger{}
	table := newTestTable(t, fake, "")
	before := table.Snapshot().ShoeRemaining

	snap, err := table.Deal(ctx, 50, 1000)
	assert.ErrorIs(t, err, ErrInvalidWager)
	assert.Equal(t, Betting, snap.Phase)

	_, err = table.Deal(ctx, 2000, 1000)
	assert.ErrorIs(t, err, ErrInvalidWager)

	assert.Zero(t, fake.debitCount())
	assert.Equal(t, before, table.Snapshot().ShoeRemaining)
}

func TestDebitDeclinedStaysInBetting(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryLedger(t, 150)
	table := newTestTable(t, mem, "")
	before := table.Snapshot().ShoeRemaining

	snap, err := table.Deal(ctx, 500, 1000)
	require.ErrorIs(t, err, ErrDebitDeclined)
	assert.False(t, errors.Is(err, ErrLedgerCallFailed))
	assert.Equal(t, Betting, snap.Phase)
	assert.Empty(t, snap.RoundID)
	assert.Equal(t, before, snap.ShoeRemaining, "no cards dealt")
	assert.Equal(t, 150, balanceOf(t, mem))

	// The table is still usable
	_, err = table.Deal(ctx, 100, 150)
	assert.NoError(t, err)
}

func TestDebitFailureIsLedgerCallFailed(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLedger{debitErr: errors.New("connection refused")}
	table := newTestTable(t, fake, "")

	snap, err := table.Deal(ctx, 100, 1000)
	require.ErrorIs(t, err, ErrLedgerCallFailed)
	assert.False(t, errors.Is(err, ErrDebitDeclined))
	assert.Equal(t, Betting, snap.Phase)
}

func TestCreditFailureStillSettles(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLedger{creditErr: errors.New("ledger unreachable")}
	table := newTestTable(t, fake, "As 9h Kd 7c")

	snap, err := table.Deal(ctx, 500, 1000)
	require.NoError(t, err, "credit failures do not fail the action")

	assert.Equal(t, Settled, snap.Phase)
	assert.Equal(t, OutcomePlayerBlackjack, snap.Settlement.Outcome)
	assert.Equal(t, 1250, snap.Settlement.Credit)
	require.Error(t, snap.Settlement.CreditErr)
	assert.ErrorIs(t, snap.Settlement.CreditErr, ErrLedgerCallFailed)
	assert.Equal(t, []Action{ActionNewRound}, table.ValidActions())
}

func TestLedgerTimeout(t *testing.T) {
	ctx := context.Background()
	mClock := quartz.NewMock(t)
	timeout := 2 * time.Second

	fake := &fakeLedger{}
	fake.onDebit = func(callCtx context.Context) error {
		mClock.Advance(timeout).MustWait(ctx)
		<-callCtx.Done()
		return callCtx.Err()
	}
	table := newTestTable(t, fake, "", WithClock(mClock), WithLedgerTimeout(timeout))

	snap, err := table.Deal(ctx, 100, 1000)
	require.ErrorIs(t, err, ErrLedgerCallFailed)
	assert.ErrorIs(t, err, errLedgerTimeout)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Betting, snap.Phase)
}

func TestConcurrentActionRejected(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})

	fake := &fakeLedger{}
	fake.onDebit = func(context.Context) error {
		close(entered)
		<-release
		return nil
	}
	table := newTestTable(t, fake, "Ts 9d 7h 8c", WithLedgerTimeout(0))

	done := make(chan error, 1)
	go func() {
		_, err := table.Deal(ctx, 100, 1000)
		done <- err
	}()

	<-entered
	_, err := table.Hit(ctx)
	assert.ErrorIs(t, err, ErrActionInProgress)
	_, err = table.Deal(ctx, 100, 1000)
	assert.ErrorIs(t, err, ErrActionInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Player, table.Phase())
	assert.Equal(t, 1, fake.debitCount())
}

func TestActionsRejectedOutOfPhase(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLedger{}
	table := newTestTable(t, fake, "Ts 9d 7h 8c")

	_, err := table.Hit(ctx)
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	_, err = table.Stand(ctx)
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	_, err = table.Double(ctx, 1000)
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	assert.Equal(t, []Action{ActionDeal}, table.ValidActions())

	_, err = table.Deal(ctx, 100, 1000)
	require.NoError(t, err)

	_, err = table.Deal(ctx, 100, 1000)
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	_, err = table.NewRound()
	assert.ErrorIs(t, err, ErrActionNotAllowed)
	assert.Equal(t, []Action{ActionHit, ActionStand, ActionDouble}, table.ValidActions())

	_, err = table.Stand(ctx)
	require.NoError(t, err)
	_, err = table.Hit(ctx)
	assert.ErrorIs(t, err, ErrActionNotAllowed)

	snap, err := table.NewRound()
	require.NoError(t, err)
	assert.Equal(t, Betting, snap.Phase)
	assert.Nil(t, snap.Settlement)
	assert.Equal(t, 1, fake.debitCount())
}

func TestSnapshotHidesHoleCard(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	table := newTestTable(t, &fakeLedger{}, "Ts 9d 7h Kc", WithEventSink(sink))

	snap, err := table.Deal(ctx, 100, 1000)
	require.NoError(t, err)

	assert.True(t, snap.HoleHidden)
	assert.Equal(t, deck.MustParseCards("9d"), []deck.Card(snap.Dealer))
	assert.Equal(t, 9, snap.DealerValue.Total)

	var dealt []CardDealtEvent
	for _, e := range sink.events {
		if d, ok := e.(CardDealtEvent); ok {
			dealt = append(dealt, d)
		}
	}
	require.Len(t, dealt, 4)
	assert.Equal(t, []Role{PlayerRole, DealerRole, PlayerRole, DealerRole},
		[]Role{dealt[0].Role, dealt[1].Role, dealt[2].Role, dealt[3].Role})
	assert.True(t, dealt[3].Hidden)
	assert.Equal(t, deck.Card{}, dealt[3].Card)

	snap, err = table.Stand(ctx)
	require.NoError(t, err)
	assert.False(t, snap.HoleHidden)
	assert.Len(t, snap.Dealer, 2)
	assert.Equal(t, 19, snap.DealerValue.Total)
}

func TestEventSequence(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	table := newTestTable(t, &fakeLedger{}, "Ts 6d 7h Kc 2s", WithEventSink(sink))

	_, err := table.Deal(ctx, 100, 1000)
	require.NoError(t, err)
	_, err = table.Stand(ctx)
	require.NoError(t, err)

	assert.Equal(t, []EventType{
		EventTypeRoundStarted,
		EventTypeCardDealt,
		EventTypeCardDealt,
		EventTypeCardDealt,
		EventTypeCardDealt,
		EventTypePlayerActed,
		EventTypeHoleRevealed,
		EventTypeCardDealt,
		EventTypeRoundSettled,
	}, sink.types())

	settled := sink.events[len(sink.events)-1].(RoundSettledEvent)
	assert.Equal(t, OutcomeLoss, settled.Settlement.Outcome)
	assert.Equal(t, 18, settled.Dealer.Value().Total)
}

func TestShoeReplenishedAtRoundStart(t *testing.T) {
	ctx := context.Background()
	rules := DefaultRules()
	rules.DeckCount = 1
	rules.ReshuffleThreshold = 20

	shoe := deck.NewShoe(1, randutil.New(8))
	for shoe.Remaining() > 10 {
		shoe.Draw()
	}
	sink := &recordingSink{}
	table := newTestTable(t, newMemoryLedger(t, 100000), "", WithRules(rules), WithShoe(shoe), WithEventSink(sink))

	snap, err := table.Deal(ctx, 100, 100000)
	require.NoError(t, err)
	assert.Equal(t, deck.CardsPerDeck-4, snap.ShoeRemaining)
	assert.Equal(t, 1, sink.count(EventTypeShoeReplenished))
	assert.Equal(t, EventTypeShoeReplenished, sink.events[0].EventType(), "replenish happens before the deal")
}

func TestShoeNeverReplenishedMidRound(t *testing.T) {
	ctx := context.Background()
	rules := DefaultRules()
	rules.DeckCount = 1
	rules.ReshuffleThreshold = 50

	// Low cards so the player can keep hitting without busting
	shoe := deck.NewStackedShoe(1, randutil.New(9), deck.MustParseCards("As Ts Ah 9h Ad 2s 2h")...)
	sink := &recordingSink{}
	table := newTestTable(t, &fakeLedger{}, "", WithRules(rules), WithShoe(shoe), WithEventSink(sink))

	snap, err := table.Deal(ctx, 100, 1000)
	require.NoError(t, err)
	require.Equal(t, Player, snap.Phase)
	assert.Equal(t, 48, snap.ShoeRemaining, "below threshold but mid-round")

	snap, err = table.Hit(ctx)
	require.NoError(t, err)
	snap, err = table.Hit(ctx)
	require.NoError(t, err)
	assert.Equal(t, Player, snap.Phase)
	assert.Equal(t, 46, snap.ShoeRemaining)
	assert.Zero(t, sink.count(EventTypeShoeReplenished))

	snap, err = table.Stand(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settled, snap.Phase)
	assert.Equal(t, 1, sink.count(EventTypeShoeReplenished))
	assert.Equal(t, deck.CardsPerDeck, snap.ShoeRemaining, "replenished once the round settled")
}

func TestRoundIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	table := newTestTable(t, &fakeLedger{}, "")
	seen := make(map[string]bool)
	for range 5 {
		snap, err := table.Deal(ctx, 100, 1000)
		require.NoError(t, err)
		if snap.Phase == Player {
			snap, err = table.Stand(ctx)
			require.NoError(t, err)
		}
		require.NotEmpty(t, snap.RoundID)
		assert.False(t, seen[snap.RoundID])
		seen[snap.RoundID] = true
		_, err = table.NewRound()
		require.NoError(t, err)
	}
}

func TestNewTableValidatesRules(t *testing.T) {
	rules := DefaultRules()
	rules.MinWager = 0
	_, err := NewTable("p", &fakeLedger{}, randutil.New(1), quietLogger(), WithRules(rules))
	assert.Error(t, err)

	_, err = NewTable("p", nil, randutil.New(1), quietLogger())
	assert.Error(t, err)

	table, err := NewTable("p", &fakeLedger{}, randutil.New(1), nil)
	require.NoError(t, err)
	assert.Equal(t, 312, table.Snapshot().ShoeRemaining)
}
