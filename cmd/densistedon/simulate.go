package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lox/densistedon/cmd/densistedon/shared"
	"github.com/lox/densistedon/internal/fileutil"
	"github.com/lox/densistedon/internal/randutil"
	"github.com/lox/densistedon/internal/simulator"
)

// SimulateCmd plays automated sessions and prints a report
type SimulateCmd struct {
	Rounds      int    `default:"10000" help:"Rounds per session"`
	Sessions    int    `default:"4" help:"Independent sessions to run"`
	Wager       int    `default:"0" help:"Flat wager per round (0 for the table minimum)"`
	Balance     int    `default:"1000000" help:"Starting balance per session"`
	Strategy    string `default:"basic" enum:"basic,dealer,cautious,random" help:"Strategy to play: basic, dealer, cautious, random"`
	Seed        *int64 `help:"Deterministic RNG seed (optional)"`
	Parallelism int    `default:"0" help:"Concurrent sessions (0 for GOMAXPROCS)"`
	Output      string `short:"o" type:"path" help:"Also write the report as JSON to this file"`
}

func (c *SimulateCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	logger, err := shared.SetupLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	ctx := shared.SetupSignalHandler(logger)

	seed := randutil.RandomSeed()
	if c.Seed != nil {
		seed = *c.Seed
	}
	wager := c.Wager
	if wager == 0 {
		wager = cfg.Table.MinWager
	}

	simCfg := simulator.Config{
		Rounds:          c.Rounds,
		Sessions:        c.Sessions,
		Wager:           wager,
		StartingBalance: c.Balance,
		Strategy:        c.Strategy,
		Seed:            seed,
		Rules:           cfg.Rules(),
		Parallelism:     c.Parallelism,
	}

	logger.Info("Starting simulation",
		"strategy", c.Strategy,
		"rounds", c.Rounds,
		"sessions", c.Sessions,
		"wager", wager,
		"seed", seed)

	start := time.Now()
	report, err := simulator.Run(ctx, simCfg, logger)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if c.Output != "" {
		if err := fileutil.WriteJSONAtomic(c.Output, report.Summary(), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("Wrote report", "path", c.Output)
	}

	fmt.Println(report.String())
	fmt.Printf("Completed in %s (%.0f rounds/sec)\n",
		elapsed.Round(time.Millisecond), float64(report.Rounds)/elapsed.Seconds())
	return nil
}
