package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gridwatt/pkg/models"
)

// UpsertYearly writes one (account, year) row, replacing every column with
// the newly observed values. The whole write is a single statement.
func (s *Store) UpsertYearly(ctx context.Context, y models.YearlyStats) error {
	query := s.q(`
	INSERT INTO yearly_stats (account_id, year, total_usage, total_charge, balance, last_daily_date, last_daily_usage)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (account_id, year) DO UPDATE SET
		total_usage = excluded.total_usage,
		total_charge = excluded.total_charge,
		balance = excluded.balance,
		last_daily_date = excluded.last_daily_date,
		last_daily_usage = excluded.last_daily_usage
	`)

	var lastDate *string
	if y.LastDailyDate != nil {
		d := y.LastDailyDate.Format(dateLayout)
		lastDate = &d
	}

	_, err := s.db.ExecContext(ctx, query,
		y.AccountID, y.Year, y.TotalUsage, y.TotalCharge, y.Balance, lastDate, y.LastDailyUsage)
	if err != nil {
		return fmt.Errorf("upserting yearly stats: %w", err)
	}
	return nil
}

// UpsertMonthly writes one (account, year, month) row, last write wins.
func (s *Store) UpsertMonthly(ctx context.Context, m models.MonthlyStats) error {
	if m.Month < 1 || m.Month > 12 {
		return fmt.Errorf("month %d out of range", m.Month)
	}

	query := s.q(`
	INSERT INTO monthly_stats (account_id, year, month, usage, charge)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (account_id, year, month) DO UPDATE SET
		usage = excluded.usage,
		charge = excluded.charge
	`)

	_, err := s.db.ExecContext(ctx, query, m.AccountID, m.Year, m.Month, m.Usage, m.Charge)
	if err != nil {
		return fmt.Errorf("upserting monthly stats: %w", err)
	}
	return nil
}

// UpsertDaily writes one (account, date) row, last write wins.
func (s *Store) UpsertDaily(ctx context.Context, d models.DailyUsage) error {
	query := s.q(`
	INSERT INTO daily_usage (account_id, date, usage)
	VALUES (?, ?, ?)
	ON CONFLICT (account_id, date) DO UPDATE SET
		usage = excluded.usage
	`)

	_, err := s.db.ExecContext(ctx, query, d.AccountID, d.Date.Format(dateLayout), d.Usage)
	if err != nil {
		return fmt.Errorf("upserting daily usage: %w", err)
	}
	return nil
}

// CountRecentDailyDates returns how many distinct daily dates exist for the
// account within the trailing window ending today (inclusive).
func (s *Store) CountRecentDailyDates(ctx context.Context, accountID string, since time.Time) (int, error) {
	query := s.q(`
	SELECT COUNT(DISTINCT date)
	FROM daily_usage
	WHERE account_id = ? AND date >= ?
	`)

	var count int
	err := s.db.QueryRowContext(ctx, query, accountID, since.Format(dateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting recent daily dates: %w", err)
	}
	return count, nil
}

// LatestYearly returns the most recent yearly row, or nil when the table is
// empty. When accountID is non-empty the lookup is scoped to that account.
func (s *Store) LatestYearly(ctx context.Context, accountID string) (*models.YearlyStats, error) {
	query := `
	SELECT account_id, year, total_usage, total_charge, balance, last_daily_date, last_daily_usage
	FROM yearly_stats
	`
	args := []any{}
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY year DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, s.q(query), args...)

	var (
		y        models.YearlyStats
		lastDate sql.NullString
	)
	err := row.Scan(&y.AccountID, &y.Year, &y.TotalUsage, &y.TotalCharge, &y.Balance, &lastDate, &y.LastDailyUsage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying yearly stats: %w", err)
	}

	if lastDate.Valid && lastDate.String != "" {
		t, err := time.Parse(dateLayout, lastDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_daily_date: %w", err)
		}
		y.LastDailyDate = &t
	}

	return &y, nil
}

// ListDaily returns the daily series ordered by date ascending, optionally
// scoped to one account.
func (s *Store) ListDaily(ctx context.Context, accountID string) ([]models.DailyUsage, error) {
	query := `SELECT account_id, date, usage FROM daily_usage`
	args := []any{}
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying daily usage: %w", err)
	}
	defer rows.Close()

	var results []models.DailyUsage
	for rows.Next() {
		var (
			d       models.DailyUsage
			dateStr string
		)
		if err := rows.Scan(&d.AccountID, &dateStr, &d.Usage); err != nil {
			return nil, fmt.Errorf("scanning daily row: %w", err)
		}
		d.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing date: %w", err)
		}
		results = append(results, d)
	}

	return results, rows.Err()
}

// ListMonthly returns the monthly series ordered by year then month,
// optionally scoped to one account.
func (s *Store) ListMonthly(ctx context.Context, accountID string) ([]models.MonthlyStats, error) {
	query := `SELECT account_id, year, month, usage, charge FROM monthly_stats`
	args := []any{}
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY year ASC, month ASC`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying monthly stats: %w", err)
	}
	defer rows.Close()

	var results []models.MonthlyStats
	for rows.Next() {
		var m models.MonthlyStats
		if err := rows.Scan(&m.AccountID, &m.Year, &m.Month, &m.Usage, &m.Charge); err != nil {
			return nil, fmt.Errorf("scanning monthly row: %w", err)
		}
		results = append(results, m)
	}

	return results, rows.Err()
}
