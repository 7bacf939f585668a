package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridwatt/internal/config"
	"gridwatt/internal/logging"
	"gridwatt/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gridwatt",
	Short: "Scrape electricity usage and billing data from the utility portal",
	Long: `Gridwatt logs into the utility web portal with browser automation, solves
the slider captcha via an external inference endpoint, and collects balance,
yearly, monthly and daily usage figures for every account on the login,
storing them idempotently for later reporting.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the configuration file plus environment overrides
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// newLogger builds the process logger from the config level
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel)
}

// openStore opens the stats store when database storage is enabled,
// returning nil otherwise. Callers must Close a non-nil store on every
// exit path.
func openStore(cfg *config.Config) (*store.Store, error) {
	if !cfg.EnableDatabaseStorage {
		return nil, nil
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening stats store: %w", err)
	}
	return st, nil
}
