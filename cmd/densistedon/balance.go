package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lox/densistedon/cmd/densistedon/shared"
)

// BalanceCmd prints the account balance
type BalanceCmd struct {
	Entries int `short:"n" default:"10" help:"Recent ledger entries to show (0 for none)"`
}

func (c *BalanceCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	logger, err := shared.SetupLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	store, closeStore, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	account := cfg.Ledger.Account
	balance, err := store.EnsureAccount(ctx, account, cfg.Ledger.StartingBalance)
	if err != nil {
		return fmt.Errorf("open account: %w", err)
	}
	fmt.Printf("Account %s: %d\n", account, balance)

	if c.Entries <= 0 {
		return nil
	}
	entries, err := store.Entries(ctx, account, c.Entries)
	if err != nil {
		return fmt.Errorf("read entries: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tKIND\tAMOUNT\tBALANCE")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Amount, e.BalanceAfter)
	}
	return w.Flush()
}
