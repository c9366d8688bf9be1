// Package simulator plays many automated blackjack rounds to measure a
// strategy's return against the house rules.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/densistedon/internal/blackjack"
	"github.com/lox/densistedon/internal/ledger"
	"github.com/lox/densistedon/internal/randutil"
	"github.com/lox/densistedon/internal/strategy"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for running simulations
type Config struct {
	// Rounds is the number of rounds each session plays at most
	Rounds int
	// Sessions is the number of independent tables run in parallel
	Sessions        int
	Wager           int
	StartingBalance int
	Strategy        string
	Seed            int64
	Rules           blackjack.Rules
	// Parallelism caps concurrently running sessions; zero uses GOMAXPROCS
	Parallelism int
}

// Validate checks a config before running it
func (c Config) Validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	if c.Sessions < 1 {
		return fmt.Errorf("sessions must be positive, got %d", c.Sessions)
	}
	if c.Wager < c.Rules.MinWager {
		return fmt.Errorf("wager %d is below the table minimum of %d", c.Wager, c.Rules.MinWager)
	}
	if c.StartingBalance < c.Wager {
		return fmt.Errorf("starting balance %d cannot cover a wager of %d", c.StartingBalance, c.Wager)
	}
	if _, err := strategy.ByName(c.Strategy, nil); err != nil {
		return err
	}
	return c.Rules.Validate()
}

// Run plays every session and merges their reports. Each session owns its
// own table, shoe and ledger account; nothing is shared between them except
// the concurrency-safe ledger.
func Run(ctx context.Context, cfg Config, logger *log.Logger) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, fmt.Errorf("invalid simulation config: %w", err)
	}
	logger = logger.WithPrefix("simulator")

	book := ledger.NewMemory()
	reports := make([]Report, cfg.Sessions)

	g, ctx := errgroup.WithContext(ctx)
	limit := cfg.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i := range cfg.Sessions {
		g.Go(func() error {
			report, err := runSession(ctx, cfg, i, book, logger)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	total := newReport(cfg.Strategy)
	for _, r := range reports {
		total.merge(r)
	}
	logger.Info("Simulation complete",
		"strategy", cfg.Strategy,
		"sessions", cfg.Sessions,
		"rounds", total.Rounds,
		"rtp", fmt.Sprintf("%.4f", total.ReturnToPlayer()))
	return total, nil
}

func runSession(ctx context.Context, cfg Config, index int, book *ledger.Memory, logger *log.Logger) (Report, error) {
	seed := cfg.Seed + int64(index)
	rng := randutil.New(seed)
	accountID := fmt.Sprintf("sim-%d", index)
	book.Open(accountID, cfg.StartingBalance)

	player, err := strategy.ByName(cfg.Strategy, rng)
	if err != nil {
		return Report{}, err
	}

	table, err := blackjack.NewTable(accountID, book, rng, logger.With("session", index),
		blackjack.WithRules(cfg.Rules),
		blackjack.WithClock(quartz.NewReal()),
		blackjack.WithLedgerTimeout(0))
	if err != nil {
		return Report{}, err
	}

	report := newReport(cfg.Strategy)
	for range cfg.Rounds {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		balance, err := book.Balance(ctx, accountID)
		if err != nil {
			return report, err
		}
		if balance < cfg.Wager {
			report.BrokeSessions++
			break
		}

		snap, err := table.Deal(ctx, cfg.Wager, balance)
		if err != nil {
			return report, err
		}
		for snap.Phase == blackjack.Player {
			decision := player.Decide(snap, table.ValidActions())
			snap, err = apply(ctx, table, book, accountID, decision.Action)
			if err != nil {
				return report, fmt.Errorf("apply %s: %w", decision.Action, err)
			}
		}
		if snap.Settlement == nil {
			return report, errors.New("round ended without a settlement")
		}
		report.add(*snap.Settlement, snap.Doubled)

		if _, err := table.NewRound(); err != nil {
			return report, err
		}
	}
	logger.Debug("Session finished", "session", index, "seed", seed, "rounds", report.Rounds, "net", report.Net)
	return report, nil
}

func apply(ctx context.Context, table *blackjack.Table, book *ledger.Memory, accountID string, action blackjack.Action) (blackjack.Snapshot, error) {
	switch action {
	case blackjack.ActionHit:
		return table.Hit(ctx)
	case blackjack.ActionDouble:
		balance, err := book.Balance(ctx, accountID)
		if err != nil {
			return blackjack.Snapshot{}, err
		}
		snap, err := table.Double(ctx, balance)
		if errors.Is(err, blackjack.ErrInvalidWager) {
			// Not enough left to double; play the hand out as a hit
			return table.Hit(ctx)
		}
		return snap, err
	default:
		return table.Stand(ctx)
	}
}
