package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/lox/densistedon/internal/config"
	"github.com/lox/densistedon/internal/ledger"
)

// openLedger opens the configured store. The returned close func is always
// safe to call.
func openLedger(cfg *config.Config, logger *log.Logger) (ledger.Store, func(), error) {
	switch cfg.Ledger.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory ledger, balances are lost on exit")
		return ledger.NewMemory(), func() {}, nil
	case config.DriverSQLite:
		store, err := ledger.OpenSQLite(cfg.Ledger.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("Opened sqlite ledger", "path", cfg.Ledger.Path)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close ledger", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
}
