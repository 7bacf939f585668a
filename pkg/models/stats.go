package models

import "time"

// YearlyStats holds the per-year figures for one utility account.
// Pointer fields are nullable: a failed sub-extraction leaves them unset
// without invalidating the rest of the record.
type YearlyStats struct {
	AccountID      string     `json:"account_id"`
	Year           int        `json:"year"`
	TotalUsage     *float64   `json:"total_usage"`      // kWh
	TotalCharge    *float64   `json:"total_charge"`     // CNY
	Balance        *float64   `json:"balance"`          // CNY, negative means arrears
	LastDailyDate  *time.Time `json:"last_daily_date"`  // date of the newest daily reading
	LastDailyUsage *float64   `json:"last_daily_usage"` // kWh
}

// MonthlyStats holds one month's usage and charge for an account.
type MonthlyStats struct {
	AccountID string   `json:"account_id"`
	Year      int      `json:"year"`
	Month     int      `json:"month"` // 1-12
	Usage     *float64 `json:"usage"`
	Charge    *float64 `json:"charge"`
}

// DailyUsage is a single day's metered consumption for an account.
type DailyUsage struct {
	AccountID string    `json:"account_id"`
	Date      time.Time `json:"date"`
	Usage     float64   `json:"usage"` // kWh, never negative
}
