package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"gridwatt/internal/config"
	"gridwatt/internal/store"
	"gridwatt/pkg/models"
)

// RunContext carries everything one run needs: budgets, the ignore set,
// collaborators. It is created per run and discarded at run end; the
// package keeps no mutable state between runs.
type RunContext struct {
	Cfg    *config.Config
	Log    *zap.Logger
	Solver OffsetSolver
	Store  *store.Store // nil when database storage is disabled
	Ignore map[string]struct{}
	Now    func() time.Time
}

// AccountFigures is everything extracted for one account in one run.
type AccountFigures struct {
	Account        Account
	Balance        *float64
	YearlyUsage    *float64
	YearlyCharge   *float64
	LastDailyDate  *time.Time
	LastDailyUsage *float64
	Monthly        []models.MonthlyStats
	Daily          []models.DailyUsage
}

// Run performs one full scrape: login, enumerate accounts, extract and
// persist per account, strictly sequentially. Account selection mutates
// global portal state, so accounts are never processed concurrently.
func Run(ctx context.Context, rc *RunContext) ([]AccountFigures, error) {
	if rc.Now == nil {
		rc.Now = time.Now
	}

	session := NewSession(rc.Cfg, rc.Log, rc.Solver)
	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.Login(); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	rc.Log.Info("login succeeded")

	accounts, err := session.Accounts()
	if err != nil {
		var enumErr *EnumerationError
		if errors.As(err, &enumErr) {
			// The session is unusable; abort the whole run.
			return nil, err
		}
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	planner := NewRetentionPlanner(rc.Store, rc.Cfg.GetDataRetentionDays(), rc.Log)
	extractor := NewExtractor(session)

	var results []AccountFigures
	for _, account := range accounts {
		if _, skip := rc.Ignore[account.ID]; skip {
			rc.Log.Info("account ignored", zap.String("account", account.ID))
			continue
		}

		figures, err := scrapeAccount(ctx, rc, session, extractor, planner, account)
		if err != nil {
			rc.Log.Error("account scrape failed, continuing with next",
				zap.String("account", account.ID), zap.Error(err))
			continue
		}

		if rc.Store != nil {
			persistFigures(ctx, rc, figures)
		}
		results = append(results, *figures)
	}

	return results, nil
}

// scrapeAccount selects one account and pulls all its figures. Field
// failures are logged and leave the field absent; only navigation-level
// failures abort the account.
func scrapeAccount(ctx context.Context, rc *RunContext, session *Session, extractor *Extractor, planner *RetentionPlanner, account Account) (*AccountFigures, error) {
	log := rc.Log.With(zap.String("account", account.ID))

	if err := session.run(chromedp.Navigate(balanceURL)); err != nil {
		return nil, fmt.Errorf("opening balance page: %w", err)
	}
	if err := session.SelectAccount(account); err != nil {
		return nil, fmt.Errorf("selecting account: %w", err)
	}

	figures := &AccountFigures{Account: account}
	now := rc.Now()

	if balance, err := extractor.Balance(); err != nil {
		log.Warn("balance unreadable", zap.Error(err))
	} else {
		figures.Balance = &balance
		log.Info("balance read", zap.Float64("balance", balance))
	}

	if err := session.run(chromedp.Navigate(usageURL)); err != nil {
		return nil, fmt.Errorf("opening usage page: %w", err)
	}
	if err := session.SelectAccount(account); err != nil {
		return nil, fmt.Errorf("re-selecting account: %w", err)
	}

	if usage, charge, err := extractor.YearlyTotals(now); err != nil {
		log.Warn("yearly totals unreadable", zap.Error(err))
	} else {
		figures.YearlyUsage = usage
		figures.YearlyCharge = charge
	}

	if monthly, err := extractor.Monthly(account.ID, now); err != nil {
		log.Warn("monthly breakdown unreadable", zap.Error(err))
	} else {
		figures.Monthly = monthly
	}

	if date, usage, err := extractor.LatestDaily(); err != nil {
		log.Warn("latest daily usage unreadable", zap.Error(err))
	} else {
		figures.LastDailyDate = date
		figures.LastDailyUsage = usage
	}

	if rc.Store != nil {
		days := planner.Plan(ctx, account.ID)
		log.Info("fetching daily window", zap.Int("days", days))
		if daily, err := extractor.DailyWindow(account.ID, days); err != nil {
			log.Warn("daily window unreadable", zap.Error(err))
		} else {
			figures.Daily = daily
		}
	}

	return figures, nil
}

// persistFigures upserts everything collected for one account. Errors are
// logged per record and swallowed; one bad record never blocks siblings.
func persistFigures(ctx context.Context, rc *RunContext, figures *AccountFigures) {
	log := rc.Log.With(zap.String("account", figures.Account.ID))

	yearly := models.YearlyStats{
		AccountID:      figures.Account.ID,
		Year:           targetStatsYear(rc.Now()),
		TotalUsage:     figures.YearlyUsage,
		TotalCharge:    figures.YearlyCharge,
		Balance:        figures.Balance,
		LastDailyDate:  figures.LastDailyDate,
		LastDailyUsage: figures.LastDailyUsage,
	}
	if err := rc.Store.UpsertYearly(ctx, yearly); err != nil {
		log.Warn("yearly stats not persisted", zap.Error(err))
	}

	for _, m := range figures.Monthly {
		if err := rc.Store.UpsertMonthly(ctx, m); err != nil {
			log.Warn("monthly stats not persisted",
				zap.Int("year", m.Year), zap.Int("month", m.Month), zap.Error(err))
		}
	}

	for _, d := range figures.Daily {
		if err := rc.Store.UpsertDaily(ctx, d); err != nil {
			log.Warn("daily usage not persisted",
				zap.Time("date", d.Date), zap.Error(err))
		}
	}
}
