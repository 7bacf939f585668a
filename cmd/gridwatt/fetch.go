package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridwatt/internal/config"
	"gridwatt/internal/publisher"
	"gridwatt/internal/scraper"
)

var fetchVisible bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one scrape immediately",
	Long: `Performs a single scrape run: logs in, enumerates accounts, extracts
balance, yearly, monthly and daily figures, and persists them when database
storage is enabled.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchVisible, "visible", false, "Show browser window (for debugging)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if fetchVisible {
		cfg.BrowserVisible = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	return doRun(cfg, log)
}

// doRun executes one complete scrape run: store open/close, the scrape
// itself, and optional publishing. The store is released on every exit
// path, including early aborts.
func doRun(cfg *config.Config, log *zap.Logger) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	rc := &scraper.RunContext{
		Cfg:    cfg,
		Log:    log,
		Solver: scraper.NewHTTPSolver(cfg.Captcha.SolverURL),
		Store:  st,
		Ignore: cfg.IgnoreSet(),
	}

	figures, err := scraper.Run(context.Background(), rc)
	if err != nil {
		return fmt.Errorf("scrape run: %w", err)
	}
	log.Info("scrape run finished", zap.Int("accounts", len(figures)))

	if cfg.MQTT.Enabled {
		pub, err := publisher.New(cfg.MQTT)
		if err != nil {
			log.Error("mqtt publisher unavailable", zap.Error(err))
			return nil
		}
		defer pub.Close()
		for _, f := range figures {
			if err := pub.Publish(f); err != nil {
				log.Warn("publish failed", zap.String("account", f.Account.ID), zap.Error(err))
			}
		}
	}

	return nil
}
