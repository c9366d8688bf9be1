package main

import (
	"fmt"
	"os"

	"github.com/lox/densistedon/cmd/densistedon/shared"
	"github.com/lox/densistedon/internal/blackjack"
	"github.com/lox/densistedon/internal/randutil"
	"github.com/lox/densistedon/internal/tui"
)

// PlayCmd runs an interactive session
type PlayCmd struct {
	Seed *int64 `help:"Deterministic shuffle seed (optional)"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}

	// The UI owns the terminal, so logs go to a file
	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	logger, err := shared.SetupLogger(logFile, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	ctx := shared.SetupSignalHandler(logger)

	store, closeStore, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	balance, err := store.EnsureAccount(ctx, cfg.Ledger.Account, cfg.Ledger.StartingBalance)
	if err != nil {
		return fmt.Errorf("open account: %w", err)
	}

	seed := randutil.RandomSeed()
	if c.Seed != nil {
		seed = *c.Seed
	}
	timeout, err := cfg.LedgerTimeout()
	if err != nil {
		return err
	}

	events := tui.NewEventLog()
	table, err := blackjack.NewTable(cfg.Ledger.Account, store, randutil.New(seed), logger,
		blackjack.WithRules(cfg.Rules()),
		blackjack.WithLedgerTimeout(timeout),
		blackjack.WithEventSink(events),
	)
	if err != nil {
		return err
	}

	logger.Info("Starting session",
		"account", cfg.Ledger.Account,
		"balance", balance,
		"seed", seed,
		"decks", cfg.Table.Decks,
		"min_wager", cfg.Table.MinWager)

	model := tui.NewTUIModel(table, store, events, logger)
	model.AddLogEntry("=== Den Siste Don ===", tui.HeaderStyle)
	model.AddLogEntry(fmt.Sprintf("Account %s, balance %d", cfg.Ledger.Account, balance), tui.InfoStyle)
	model.AddLogEntry("Type a wager and press d or enter to deal", tui.InfoStyle)
	model.AddLogEntry("h hit, s stand, x double, n next round", tui.InfoStyle)

	return tui.Run(ctx, model)
}
