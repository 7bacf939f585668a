package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridwatt/internal/report"
	"gridwatt/internal/store"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only stats API",
	Long: `Exposes overview, daily and monthly read endpoints over the stored
stats. The API never writes; it is safe to run alongside the daemon.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default :8080 or report.listen from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening stats store: %w", err)
	}
	defer st.Close()

	listen := serveListen
	if listen == "" {
		listen = cfg.Report.Listen
	}
	if listen == "" {
		listen = ":8080"
	}

	router := report.NewRouter(st, log)
	log.Info("report API listening", zap.String("addr", listen))
	return router.Run(listen)
}
