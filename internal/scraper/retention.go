package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gridwatt/internal/store"
)

// RetentionPlanner decides how many trailing days of daily usage to
// request from the portal: the short 7-day window once the store already
// holds a full recent month, the 30-day backfill otherwise. The choice
// selects a UI widget, so it is load-bearing for what the table contains.
type RetentionPlanner struct {
	store       *store.Store // nil when database storage is disabled
	defaultDays int
	log         *zap.Logger
}

// NewRetentionPlanner builds a planner. Pass a nil store when database
// storage is disabled; the planner then always returns defaultDays.
func NewRetentionPlanner(st *store.Store, defaultDays int, log *zap.Logger) *RetentionPlanner {
	return &RetentionPlanner{store: st, defaultDays: defaultDays, log: log}
}

// Plan returns 7 or 30 for the given account.
func (p *RetentionPlanner) Plan(ctx context.Context, accountID string) int {
	if p.store == nil {
		return p.defaultDays
	}

	since := time.Now().AddDate(0, 0, -29)
	count, err := p.store.CountRecentDailyDates(ctx, accountID, since)
	if err != nil {
		p.log.Warn("recent daily count failed, falling back to configured window",
			zap.String("account", accountID), zap.Error(err))
		return p.defaultDays
	}

	if count >= 30 {
		return 7
	}
	return 30
}
