package cli

import (
	"fmt"

	"finanzas/internal/cache"
	"finanzas/internal/config"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/period"
	"finanzas/internal/recurrence"
	"finanzas/internal/services"
)

// NewLedger builds the ledger service every binary computes through: the
// engine for the configured weekday locale, the named period policy (or
// PERIOD_POLICY when policy is empty) and a sum cache sized from config.
func NewLedger(cfg *config.Config, repo services.Repository, policy string, logger *log.Logger) (*services.LedgerService, error) {
	engine := recurrence.New(cfg.Weekdays())
	if policy == "" {
		policy = cfg.PeriodPolicy
	}
	p, err := period.ForName(policy, engine)
	if err != nil {
		return nil, fmt.Errorf("period policy: %w", err)
	}
	sums := cache.NewLRUCache[core.Money](cfg.CacheSize, cfg.CacheTTL)
	return services.NewLedgerService(repo, engine, p, logger, services.WithSumCache(sums)), nil
}
