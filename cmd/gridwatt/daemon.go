package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridwatt/internal/config"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled scrapes twice a day",
	Long: `Runs one scrape immediately, then keeps scraping at two daily trigger
times twelve hours apart. The trigger times are jittered by up to ten minutes,
computed once at startup, so the runs do not land on the exact same second
every day. A failed run is retried a bounded number of times with a fresh
browser session each attempt; after that the daemon waits for the next
trigger. The process never exits because of a failed run.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	first, second, err := jitteredTriggers(cfg, rand.Intn(21)-10)
	if err != nil {
		return err
	}
	log.Info("daemon started",
		zap.String("first_trigger", first.Format("15:04")),
		zap.String("second_trigger", second.Format("15:04")))

	runWithRetries(cfg, log)

	for {
		next := nextTrigger(time.Now(), first, second)
		log.Info("sleeping until next trigger", zap.Time("next", next))
		time.Sleep(time.Until(next))
		runWithRetries(cfg, log)
	}
}

// jitteredTriggers computes the two daily trigger times: the configured
// start time shifted by jitterMinutes, and the same time twelve hours
// later. Only the clock components matter; the date is a placeholder.
func jitteredTriggers(cfg *config.Config, jitterMinutes int) (time.Time, time.Time, error) {
	base, err := time.Parse("15:04", cfg.GetJobStartTime())
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing job_start_time: %w", err)
	}
	first := base.Add(time.Duration(jitterMinutes) * time.Minute)
	second := first.Add(12 * time.Hour)
	return first, second, nil
}

// nextTrigger finds the earliest upcoming wall-clock occurrence of either
// trigger time after now.
func nextTrigger(now, first, second time.Time) time.Time {
	next := time.Time{}
	for _, trigger := range []time.Time{first, second} {
		candidate := time.Date(now.Year(), now.Month(), now.Day(),
			trigger.Hour(), trigger.Minute(), 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}

// runWithRetries wraps one scheduled run in the outer retry layer: a
// fresh session per attempt, bounded by the configured retry limit. All
// failures are logged and absorbed so the daemon lives on.
func runWithRetries(cfg *config.Config, log *zap.Logger) {
	limit := cfg.GetRetryTimesLimit()
	for attempt := 1; attempt <= limit; attempt++ {
		err := doRun(cfg, log)
		if err == nil {
			return
		}
		log.Error("run failed",
			zap.Int("attempt", attempt),
			zap.Int("remaining", limit-attempt),
			zap.Error(err))
	}
	log.Error("run abandoned until next trigger", zap.Int("attempts", limit))
}
