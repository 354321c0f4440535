// Command finctl queries the ledger from the terminal using the same
// backend and configuration as the server.
package main

import (
	"context"
	"os"

	"finanzas/internal/backend"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	root := newRootCmd(openLedger)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openLedger validates the environment configuration and opens its backend.
// Logs go to stderr so command output stays machine-readable.
func openLedger(ctx context.Context, policy string) (*services.LedgerService, func() error, error) {
	cfg := config.Load()
	lc := log.DefaultConfig()
	lc.Component = log.ComponentCLI
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Output = os.Stderr
	logger := log.New(lc)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	opts, err := backend.OptionsFrom(cfg)
	if err != nil {
		return nil, nil, err
	}
	opened, err := backend.NewFactory(logger).Open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := cli.NewLedger(cfg, opened.Store, policy, logger)
	if err != nil {
		_ = opened.Close()
		return nil, nil, err
	}
	return ledger, opened.Close, nil
}
