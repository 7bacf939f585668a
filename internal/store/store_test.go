package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatt/internal/config"
	"gridwatt/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func ptr(v float64) *float64 { return &v }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestUpsertDailyIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	record := models.DailyUsage{AccountID: "12345", Date: date("2024-06-01"), Usage: 12.5}
	require.NoError(t, st.UpsertDaily(ctx, record))
	require.NoError(t, st.UpsertDaily(ctx, record))

	records, err := st.ListDaily(ctx, "12345")
	require.NoError(t, err)
	require.Len(t, records, 1, "writing the same record twice leaves one unchanged row")
	assert.Equal(t, 12.5, records[0].Usage)
}

func TestUpsertDailyLastWriteWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertDaily(ctx, models.DailyUsage{AccountID: "12345", Date: date("2024-06-01"), Usage: 12.5}))
	require.NoError(t, st.UpsertDaily(ctx, models.DailyUsage{AccountID: "12345", Date: date("2024-06-01"), Usage: 13.0}))

	records, err := st.ListDaily(ctx, "12345")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 13.0, records[0].Usage)
}

func TestUpsertMonthly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertMonthly(ctx, models.MonthlyStats{
		AccountID: "12345", Year: 2024, Month: 1, Usage: ptr(300), Charge: ptr(150),
	}))
	require.NoError(t, st.UpsertMonthly(ctx, models.MonthlyStats{
		AccountID: "12345", Year: 2024, Month: 2, Usage: ptr(280), Charge: ptr(140),
	}))
	// Re-observe January with a new charge; usage becomes absent.
	require.NoError(t, st.UpsertMonthly(ctx, models.MonthlyStats{
		AccountID: "12345", Year: 2024, Month: 1, Usage: nil, Charge: ptr(155),
	}))

	records, err := st.ListMonthly(ctx, "12345")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 1, records[0].Month)
	assert.Nil(t, records[0].Usage, "last write wins, even when the new value is absent")
	require.NotNil(t, records[0].Charge)
	assert.Equal(t, 155.0, *records[0].Charge)

	assert.Equal(t, 2, records[1].Month)
}

func TestUpsertMonthlyRejectsBadMonth(t *testing.T) {
	st := newTestStore(t)

	err := st.UpsertMonthly(context.Background(), models.MonthlyStats{
		AccountID: "12345", Year: 2024, Month: 13,
	})
	assert.Error(t, err)
}

func TestUpsertYearly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lastDate := date("2024-06-01")
	require.NoError(t, st.UpsertYearly(ctx, models.YearlyStats{
		AccountID:      "12345",
		Year:           2024,
		TotalUsage:     ptr(3200),
		TotalCharge:    ptr(1850.30),
		Balance:        ptr(128.50),
		LastDailyDate:  &lastDate,
		LastDailyUsage: ptr(9.8),
	}))

	// Second observation overwrites in place, still one row per (account, year).
	require.NoError(t, st.UpsertYearly(ctx, models.YearlyStats{
		AccountID: "12345",
		Year:      2024,
		Balance:   ptr(-42.10),
	}))

	yearly, err := st.LatestYearly(ctx, "12345")
	require.NoError(t, err)
	require.NotNil(t, yearly)
	assert.Equal(t, 2024, yearly.Year)
	require.NotNil(t, yearly.Balance)
	assert.Equal(t, -42.10, *yearly.Balance)
	assert.Nil(t, yearly.TotalUsage)
	assert.Nil(t, yearly.LastDailyDate)
}

func TestLatestYearlyPicksNewestYear(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertYearly(ctx, models.YearlyStats{AccountID: "12345", Year: 2023, Balance: ptr(1)}))
	require.NoError(t, st.UpsertYearly(ctx, models.YearlyStats{AccountID: "12345", Year: 2024, Balance: ptr(2)}))

	yearly, err := st.LatestYearly(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, yearly)
	assert.Equal(t, 2024, yearly.Year)
}

func TestLatestYearlyEmpty(t *testing.T) {
	st := newTestStore(t)

	yearly, err := st.LatestYearly(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, yearly)
}

func TestCountRecentDailyDates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 10; i++ {
		require.NoError(t, st.UpsertDaily(ctx, models.DailyUsage{
			AccountID: "12345",
			Date:      now.AddDate(0, 0, -i),
			Usage:     float64(i),
		}))
	}
	// Outside the window; must not count.
	require.NoError(t, st.UpsertDaily(ctx, models.DailyUsage{
		AccountID: "12345",
		Date:      now.AddDate(0, 0, -40),
		Usage:     1,
	}))
	// Different account; must not count.
	require.NoError(t, st.UpsertDaily(ctx, models.DailyUsage{
		AccountID: "99999",
		Date:      now,
		Usage:     1,
	}))

	count, err := st.CountRecentDailyDates(ctx, "12345", now.AddDate(0, 0, -29))
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestListDailyScopedToAccount(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertDaily(ctx, models.DailyUsage{AccountID: "a", Date: date("2024-06-02"), Usage: 2}))
	require.NoError(t, st.UpsertDaily(ctx, models.DailyUsage{AccountID: "a", Date: date("2024-06-01"), Usage: 1}))
	require.NoError(t, st.UpsertDaily(ctx, models.DailyUsage{AccountID: "b", Date: date("2024-06-01"), Usage: 3}))

	records, err := st.ListDaily(ctx, "a")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-06-01", records[0].Date.Format("2006-01-02"), "ordered by date ascending")

	all, err := st.ListDaily(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestPlaceholderRebind(t *testing.T) {
	s := &Store{driver: driverPostgres}
	assert.Equal(t, "SELECT $1, $2", s.q("SELECT ?, ?"))

	s = &Store{driver: driverSQLite}
	assert.Equal(t, "SELECT ?, ?", s.q("SELECT ?, ?"))
}
