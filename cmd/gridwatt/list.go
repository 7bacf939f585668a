package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gridwatt/internal/store"
)

var listAccount string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored usage stats",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listAccount, "account", "", "limit output to one account number")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening stats store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	yearly, err := st.LatestYearly(ctx, listAccount)
	if err != nil {
		return err
	}
	if yearly != nil {
		fmt.Printf("Account %s, year %d:\n", yearly.AccountID, yearly.Year)
		if yearly.Balance != nil {
			fmt.Printf("  balance:      %.2f\n", *yearly.Balance)
		}
		if yearly.TotalUsage != nil {
			fmt.Printf("  total usage:  %.2f kWh\n", *yearly.TotalUsage)
		}
		if yearly.TotalCharge != nil {
			fmt.Printf("  total charge: %.2f\n", *yearly.TotalCharge)
		}
		if yearly.LastDailyDate != nil && yearly.LastDailyUsage != nil {
			fmt.Printf("  last daily:   %s  %.2f kWh\n",
				yearly.LastDailyDate.Format("2006-01-02"), *yearly.LastDailyUsage)
		}
	}

	monthly, err := st.ListMonthly(ctx, listAccount)
	if err != nil {
		return err
	}
	if len(monthly) > 0 {
		fmt.Println("\nMonthly:")
		for _, m := range monthly {
			usage, charge := 0.0, 0.0
			if m.Usage != nil {
				usage = *m.Usage
			}
			if m.Charge != nil {
				charge = *m.Charge
			}
			fmt.Printf("  %04d-%02d  %8.2f kWh  %8.2f\n", m.Year, m.Month, usage, charge)
		}
	}

	daily, err := st.ListDaily(ctx, listAccount)
	if err != nil {
		return err
	}
	if len(daily) > 0 {
		fmt.Println("\nDaily:")
		for _, d := range daily {
			fmt.Printf("  %s  %8.2f kWh\n", d.Date.Format("2006-01-02"), d.Usage)
		}
	}

	if yearly == nil && len(monthly) == 0 && len(daily) == 0 {
		fmt.Println("No data stored yet")
	}

	return nil
}
