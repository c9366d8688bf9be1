// Package config loads the densistedon configuration from an HCL file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/densistedon/internal/blackjack"
)

// Ledger drivers
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config represents the complete configuration
type Config struct {
	Table  *TableSettings  `hcl:"table,block"`
	Ledger *LedgerSettings `hcl:"ledger,block"`
	Log    *LogSettings    `hcl:"log,block"`
}

// TableSettings are the house rules
type TableSettings struct {
	Decks          int `hcl:"decks,optional"`
	MinWager       int `hcl:"min_wager,optional"`
	ReshuffleAt    int `hcl:"reshuffle_at,optional"`
	DealerStandsOn int `hcl:"dealer_stands_on,optional"`
}

// LedgerSettings pick and configure the balance store
type LedgerSettings struct {
	Driver          string `hcl:"driver,optional"`
	Path            string `hcl:"path,optional"`
	Account         string `hcl:"account,optional"`
	StartingBalance int    `hcl:"starting_balance,optional"`
	Timeout         string `hcl:"timeout,optional"`
}

// LogSettings configure the logger
type LogSettings struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
	// File receives the log while the terminal UI owns the screen
	File string `hcl:"file,optional"`
}

// envOverrides are applied on top of the file
type envOverrides struct {
	Decks           *int   `env:"DENSISTEDON_DECKS"`
	MinWager        *int   `env:"DENSISTEDON_MIN_WAGER"`
	LedgerDriver    string `env:"DENSISTEDON_LEDGER_DRIVER"`
	LedgerPath      string `env:"DENSISTEDON_LEDGER_PATH"`
	Account         string `env:"DENSISTEDON_ACCOUNT"`
	StartingBalance *int   `env:"DENSISTEDON_STARTING_BALANCE"`
	LedgerTimeout   string `env:"DENSISTEDON_LEDGER_TIMEOUT"`
	LogLevel        string `env:"DENSISTEDON_LOG_LEVEL"`
	LogFormat       string `env:"DENSISTEDON_LOG_FORMAT"`
	LogFile         string `env:"DENSISTEDON_LOG_FILE"`
}

// Default returns the default configuration
func Default() *Config {
	rules := blackjack.DefaultRules()
	return &Config{
		Table: &TableSettings{
			Decks:          rules.DeckCount,
			MinWager:       rules.MinWager,
			ReshuffleAt:    rules.ReshuffleThreshold,
			DealerStandsOn: rules.DealerStandsOn,
		},
		Ledger: &LedgerSettings{
			Driver:          DriverSQLite,
			Path:            "densistedon.db",
			Account:         "player",
			StartingBalance: 10000,
			Timeout:         blackjack.DefaultLedgerTimeout.String(),
		},
		Log: &LogSettings{
			Level:  "info",
			Format: "text",
			File:   "densistedon.log",
		},
	}
}

// Load reads filename, applies defaults and the process environment, and
// validates the result. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	return load(filename, env.Options{})
}

func load(filename string, opts env.Options) (*Config, error) {
	cfg, err := parseFile(filename)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(opts); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseFile(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills anything the file left unset
func (c *Config) applyDefaults() {
	def := Default()
	if c.Table == nil {
		c.Table = def.Table
	}
	if c.Ledger == nil {
		c.Ledger = def.Ledger
	}
	if c.Log == nil {
		c.Log = def.Log
	}

	if c.Table.Decks == 0 {
		c.Table.Decks = def.Table.Decks
	}
	if c.Table.MinWager == 0 {
		c.Table.MinWager = def.Table.MinWager
	}
	if c.Table.ReshuffleAt == 0 {
		c.Table.ReshuffleAt = def.Table.ReshuffleAt
	}
	if c.Table.DealerStandsOn == 0 {
		c.Table.DealerStandsOn = def.Table.DealerStandsOn
	}

	if c.Ledger.Driver == "" {
		c.Ledger.Driver = def.Ledger.Driver
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = def.Ledger.Path
	}
	if c.Ledger.Account == "" {
		c.Ledger.Account = def.Ledger.Account
	}
	if c.Ledger.StartingBalance == 0 {
		c.Ledger.StartingBalance = def.Ledger.StartingBalance
	}
	if c.Ledger.Timeout == "" {
		c.Ledger.Timeout = def.Ledger.Timeout
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Log.File == "" {
		c.Log.File = def.Log.File
	}
}

func (c *Config) applyEnv(opts env.Options) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Decks != nil {
		c.Table.Decks = *o.Decks
	}
	if o.MinWager != nil {
		c.Table.MinWager = *o.MinWager
	}
	if o.LedgerDriver != "" {
		c.Ledger.Driver = o.LedgerDriver
	}
	if o.LedgerPath != "" {
		c.Ledger.Path = o.LedgerPath
	}
	if o.Account != "" {
		c.Ledger.Account = o.Account
	}
	if o.StartingBalance != nil {
		c.Ledger.StartingBalance = *o.StartingBalance
	}
	if o.LedgerTimeout != "" {
		c.Ledger.Timeout = o.LedgerTimeout
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Log.Format = o.LogFormat
	}
	if o.LogFile != "" {
		c.Log.File = o.LogFile
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Rules().Validate(); err != nil {
		return fmt.Errorf("table: %w", err)
	}

	switch c.Ledger.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Ledger.Path) == "" {
			return errors.New("ledger: sqlite driver needs a path")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("ledger: unknown driver %q", c.Ledger.Driver)
	}
	if strings.TrimSpace(c.Ledger.Account) == "" {
		return errors.New("ledger: account is required")
	}
	if c.Ledger.StartingBalance < 0 {
		return fmt.Errorf("ledger: starting balance cannot be negative, got %d", c.Ledger.StartingBalance)
	}
	if _, err := c.LedgerTimeout(); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

// Rules maps the table block onto engine rules
func (c *Config) Rules() blackjack.Rules {
	return blackjack.Rules{
		DeckCount:          c.Table.Decks,
		MinWager:           c.Table.MinWager,
		ReshuffleThreshold: c.Table.ReshuffleAt,
		DealerStandsOn:     c.Table.DealerStandsOn,
	}
}

// LedgerTimeout parses the ledger call timeout
func (c *Config) LedgerTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Ledger.Timeout)
	if err != nil {
		return 0, fmt.Errorf("ledger: invalid timeout %q: %w", c.Ledger.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("ledger: timeout cannot be negative, got %s", d)
	}
	return d, nil
}
