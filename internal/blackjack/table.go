package blackjack

import (
	"context"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/densistedon/internal/deck"
	"github.com/lox/densistedon/internal/ledger"
)

// DefaultLedgerTimeout bounds each debit and credit call
const DefaultLedgerTimeout = 5 * time.Second

// Ledger moves money in and out of a player's balance. Debit must fail with
// an error wrapping ledger.ErrInsufficientFunds when it declines for lack of
// funds; any other error is treated as the ledger being unavailable.
type Ledger interface {
	Debit(ctx context.Context, accountID string, amount int) error
	Credit(ctx context.Context, accountID string, amount int) error
}

// Table runs rounds for one player account. Actions are serialised: an action
// arriving while another is in flight fails with ErrActionInProgress.
type Table struct {
	mu sync.Mutex

	accountID string
	ledger    Ledger
	rules     Rules
	shoe      *deck.Shoe
	clock     quartz.Clock
	timeout   time.Duration
	logger    *log.Logger
	sink      EventSink

	round *Round
}

// Option configures a Table
type Option func(*Table)

// WithRules overrides DefaultRules
func WithRules(rules Rules) Option {
	return func(t *Table) { t.rules = rules }
}

// WithClock sets the clock used for ledger timeouts and timestamps
func WithClock(clock quartz.Clock) Option {
	return func(t *Table) { t.clock = clock }
}

// WithLedgerTimeout bounds each ledger call. Zero disables the bound.
func WithLedgerTimeout(d time.Duration) Option {
	return func(t *Table) { t.timeout = d }
}

// WithShoe supplies a prepared shoe instead of building one from the rules
func WithShoe(shoe *deck.Shoe) Option {
	return func(t *Table) { t.shoe = shoe }
}

// WithEventSink subscribes sink to table events
func WithEventSink(sink EventSink) Option {
	return func(t *Table) { t.sink = sink }
}

// NewTable creates a table for accountID. The rng drives the shoe shuffle.
func NewTable(accountID string, l Ledger, rng *rand.Rand, logger *log.Logger, opts ...Option) (*Table, error) {
	if l == nil {
		return nil, errors.New("ledger is required")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	t := &Table{
		accountID: accountID,
		ledger:    l,
		rules:     DefaultRules(),
		clock:     quartz.NewReal(),
		timeout:   DefaultLedgerTimeout,
		logger:    logger.WithPrefix("table").With("account", accountID),
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if t.shoe == nil {
		t.shoe = deck.NewShoe(t.rules.DeckCount, rng)
	}
	return t, nil
}

// AccountID returns the account the table debits and credits
func (t *Table) AccountID() string {
	return t.accountID
}

// Rules returns the table rules
func (t *Table) Rules() Rules {
	return t.rules
}

// Phase returns the phase of the current round, Betting if there is none
func (t *Table) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phaseLocked()
}

// Snapshot returns a copy of the current state. It waits for an in-flight
// action to finish.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return snapshotOf(t.round, t.shoe)
}

// ValidActions returns the actions the current phase accepts. Double is
// listed whenever the hand could be doubled; the balance is checked when it
// is attempted.
func (t *Table) ValidActions() []Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.phaseLocked() {
	case Betting:
		return []Action{ActionDeal}
	case Player:
		if len(t.round.Player) == 2 {
			return []Action{ActionHit, ActionStand, ActionDouble}
		}
		return []Action{ActionHit, ActionStand}
	case Settled:
		return []Action{ActionNewRound}
	default:
		return nil
	}
}

// Deal debits wager and deals the opening cards. available is the caller's
// view of the player's balance and is checked before the ledger is called.
// A natural on either side settles the round immediately.
func (t *Table) Deal(ctx context.Context, wager, available int) (Snapshot, error) {
	if !t.mu.TryLock() {
		return Snapshot{}, ErrActionInProgress
	}
	defer t.mu.Unlock()

	if phase := t.phaseLocked(); phase != Betting {
		return t.snapshotLocked(), fmt.Errorf("%w: %s during %s", ErrActionNotAllowed, ActionDeal, phase)
	}
	if err := t.rules.validateWager(wager, available); err != nil {
		return t.snapshotLocked(), err
	}

	t.replenishIfNeeded()

	if err := t.debit(ctx, wager); err != nil {
		return t.snapshotLocked(), err
	}

	r := newRound(wager, t.clock.Now())
	t.round = r
	t.emit(RoundStartedEvent{RoundID: r.ID, Wager: wager, timestamp: t.clock.Now()})
	t.logger.Info("Round started", "round", r.ID, "wager", wager)

	r.Phase = Dealt
	t.draw(r, PlayerRole)
	t.draw(r, DealerRole)
	t.draw(r, PlayerRole)
	t.draw(r, DealerRole)

	playerNatural, dealerNatural := r.Player.IsBlackjack(), r.Dealer.IsBlackjack()
	switch {
	case playerNatural && dealerNatural:
		t.settle(ctx, r, OutcomePush)
	case playerNatural:
		t.settle(ctx, r, OutcomePlayerBlackjack)
	case dealerNatural:
		t.settle(ctx, r, OutcomeDealerBlackjack)
	default:
		r.Phase = Player
	}
	return t.snapshotLocked(), nil
}

// Hit draws one card for the player. Going over 21 settles the round as a loss.
func (t *Table) Hit(ctx context.Context) (Snapshot, error) {
	if !t.mu.TryLock() {
		return Snapshot{}, ErrActionInProgress
	}
	defer t.mu.Unlock()

	r, err := t.requirePhase(ActionHit, Player)
	if err != nil {
		return t.snapshotLocked(), err
	}

	t.emit(PlayerActedEvent{RoundID: r.ID, Action: ActionHit, timestamp: t.clock.Now()})
	t.draw(r, PlayerRole)
	if r.Player.IsBust() {
		t.settle(ctx, r, OutcomePlayerBust)
	}
	return t.snapshotLocked(), nil
}

// Stand ends the player's turn; the dealer plays and the round settles.
func (t *Table) Stand(ctx context.Context) (Snapshot, error) {
	if !t.mu.TryLock() {
		return Snapshot{}, ErrActionInProgress
	}
	defer t.mu.Unlock()

	r, err := t.requirePhase(ActionStand, Player)
	if err != nil {
		return t.snapshotLocked(), err
	}

	t.emit(PlayerActedEvent{RoundID: r.ID, Action: ActionStand, timestamp: t.clock.Now()})
	t.playDealer(ctx, r)
	return t.snapshotLocked(), nil
}

// Double stakes a second wager on a two card hand, draws exactly one card and
// hands over to the dealer. available is checked against the extra wager.
func (t *Table) Double(ctx context.Context, available int) (Snapshot, error) {
	if !t.mu.TryLock() {
		return Snapshot{}, ErrActionInProgress
	}
	defer t.mu.Unlock()

	r, err := t.requirePhase(ActionDouble, Player)
	if err != nil {
		return t.snapshotLocked(), err
	}
	if len(r.Player) != 2 {
		return t.snapshotLocked(), fmt.Errorf("%w: %s with %d cards", ErrActionNotAllowed, ActionDouble, len(r.Player))
	}
	if available < r.Wager {
		return t.snapshotLocked(), fmt.Errorf("%w: doubling %d exceeds available balance of %d", ErrInvalidWager, r.Wager, available)
	}
	if err := t.debit(ctx, r.Wager); err != nil {
		return t.snapshotLocked(), err
	}

	r.Doubled = true
	t.emit(PlayerActedEvent{RoundID: r.ID, Action: ActionDouble, timestamp: t.clock.Now()})
	t.draw(r, PlayerRole)
	if r.Player.IsBust() {
		t.settle(ctx, r, OutcomePlayerBust)
	} else {
		t.playDealer(ctx, r)
	}
	return t.snapshotLocked(), nil
}

// NewRound clears a settled round and returns the table to Betting. The shoe
// is rebuilt here if it has run low.
func (t *Table) NewRound() (Snapshot, error) {
	if !t.mu.TryLock() {
		return Snapshot{}, ErrActionInProgress
	}
	defer t.mu.Unlock()

	switch phase := t.phaseLocked(); phase {
	case Betting, Settled:
	default:
		return t.snapshotLocked(), fmt.Errorf("%w: %s during %s", ErrActionNotAllowed, ActionNewRound, phase)
	}
	t.round = nil
	t.replenishIfNeeded()
	return t.snapshotLocked(), nil
}

func (t *Table) phaseLocked() Phase {
	if t.round == nil {
		return Betting
	}
	return t.round.Phase
}

func (t *Table) snapshotLocked() Snapshot {
	return snapshotOf(t.round, t.shoe)
}

func (t *Table) requirePhase(action Action, want Phase) (*Round, error) {
	if phase := t.phaseLocked(); phase != want {
		return nil, fmt.Errorf("%w: %s during %s", ErrActionNotAllowed, action, phase)
	}
	return t.round, nil
}

func (t *Table) draw(r *Round, role Role) {
	card := t.shoe.Draw()
	event := CardDealtEvent{RoundID: r.ID, Role: role, Card: card, timestamp: t.clock.Now()}
	if role == PlayerRole {
		r.Player = append(r.Player, card)
	} else {
		r.Dealer = append(r.Dealer, card)
		if len(r.Dealer) == 2 && r.holeHidden() {
			event.Card = deck.Card{}
			event.Hidden = true
		}
	}
	t.logger.Debug("Card dealt", "round", r.ID, "role", role, "card", card)
	t.emit(event)
}

func (t *Table) revealHole(r *Round) {
	if len(r.Dealer) < 2 || !r.holeHidden() {
		return
	}
	t.emit(HoleRevealedEvent{RoundID: r.ID, Card: r.Dealer[1], timestamp: t.clock.Now()})
}

func (t *Table) playDealer(ctx context.Context, r *Round) {
	t.revealHole(r)
	r.Phase = Dealer
	for dealerHits(r.Dealer.Value(), t.rules.DealerStandsOn) {
		t.draw(r, DealerRole)
	}
	t.settle(ctx, r, compareTotals(r.Player.Value(), r.Dealer.Value()))
}

// settle finalises the round and credits the payout. A failed credit is
// recorded on the settlement; the round is settled regardless.
func (t *Table) settle(ctx context.Context, r *Round, outcome Outcome) {
	t.revealHole(r)

	staked := r.EffectiveWager()
	credit := payout(outcome, r.Wager, staked)
	s := &Settlement{
		RoundID:   r.ID,
		Outcome:   outcome,
		Staked:    staked,
		Credit:    credit,
		Net:       credit - staked,
		SettledAt: t.clock.Now(),
	}
	r.Phase = Settled
	r.Settlement = s

	if credit > 0 {
		err := t.ledgerCall(ctx, func(ctx context.Context) error {
			return t.ledger.Credit(ctx, t.accountID, credit)
		})
		if err != nil {
			s.CreditErr = fmt.Errorf("%w: credit %d: %w", ErrLedgerCallFailed, credit, err)
			t.logger.Warn("Payout credit failed", "round", r.ID, "credit", credit, "error", err)
		}
	}

	t.logger.Info("Round settled",
		"round", r.ID,
		"outcome", outcome,
		"player", r.Player.Value().Total,
		"dealer", r.Dealer.Value().Total,
		"staked", staked,
		"credit", credit)

	t.emit(RoundSettledEvent{Settlement: *s, Player: r.Player, Dealer: r.Dealer, timestamp: t.clock.Now()})
	t.replenishIfNeeded()
}

func (t *Table) debit(ctx context.Context, amount int) error {
	err := t.ledgerCall(ctx, func(ctx context.Context) error {
		return t.ledger.Debit(ctx, t.accountID, amount)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		t.logger.Info("Debit declined", "amount", amount, "error", err)
		return fmt.Errorf("%w: %w", ErrDebitDeclined, err)
	default:
		t.logger.Error("Debit failed", "amount", amount, "error", err)
		return fmt.Errorf("%w: debit %d: %w", ErrLedgerCallFailed, amount, err)
	}
}

// ledgerCall runs fn with the table's ledger timeout layered over ctx
func (t *Table) ledgerCall(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	timer := t.clock.AfterFunc(t.timeout, func() {
		cancel(errLedgerTimeout)
	}, "ledger")
	defer timer.Stop()

	err := fn(ctx)
	if err != nil && errors.Is(context.Cause(ctx), errLedgerTimeout) {
		return fmt.Errorf("%w after %s: %w", errLedgerTimeout, t.timeout, err)
	}
	return err
}

func (t *Table) replenishIfNeeded() {
	if !t.shoe.NeedsReplenish(t.rules.ReshuffleThreshold) {
		return
	}
	t.shoe.Replenish()
	t.logger.Debug("Shoe replenished", "remaining", t.shoe.Remaining(), "shuffles", t.shoe.Shuffles())
	t.emit(ShoeReplenishedEvent{Remaining: t.shoe.Remaining(), Shuffles: t.shoe.Shuffles(), timestamp: t.clock.Now()})
}

func (t *Table) emit(event Event) {
	if t.sink != nil {
		t.sink.OnEvent(event)
	}
}
