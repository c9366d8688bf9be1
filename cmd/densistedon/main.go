package main

import (
	"github.com/alecthomas/kong"
	"github.com/lox/densistedon/internal/config"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command
type Globals struct {
	Config string `short:"c" default:"densistedon.hcl" type:"path" help:"Configuration file (missing file uses defaults)"`
	Debug  bool   `help:"Enable debug logging"`
}

// load reads the configuration and applies global flag overrides
func (g *Globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Play     PlayCmd          `cmd:"" default:"1" help:"Play blackjack in the terminal"`
	Simulate SimulateCmd      `cmd:"" help:"Measure a strategy over many automated rounds"`
	Balance  BalanceCmd       `cmd:"" help:"Show the account balance and recent ledger entries"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("densistedon"),
		kong.Description("Den Siste Don: single-player blackjack against the house"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
