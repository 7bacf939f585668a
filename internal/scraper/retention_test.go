package scraper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gridwatt/internal/config"
	"gridwatt/internal/store"
	"gridwatt/pkg/models"
)

func newRetentionStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "retention.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedDailyDates(t *testing.T, st *store.Store, accountID string, days int) {
	t.Helper()
	now := time.Now()
	for i := 0; i < days; i++ {
		require.NoError(t, st.UpsertDaily(context.Background(), models.DailyUsage{
			AccountID: accountID,
			Date:      now.AddDate(0, 0, -i),
			Usage:     float64(i),
		}))
	}
}

func TestPlanShortWindowWhenMonthIsFull(t *testing.T) {
	st := newRetentionStore(t)
	seedDailyDates(t, st, "12345", 30)

	p := NewRetentionPlanner(st, 30, zap.NewNop())
	assert.Equal(t, 7, p.Plan(context.Background(), "12345"))
}

func TestPlanBackfillWhenMonthIsSparse(t *testing.T) {
	st := newRetentionStore(t)
	seedDailyDates(t, st, "12345", 12)

	p := NewRetentionPlanner(st, 30, zap.NewNop())
	assert.Equal(t, 30, p.Plan(context.Background(), "12345"))
}

func TestPlanScopedPerAccount(t *testing.T) {
	st := newRetentionStore(t)
	seedDailyDates(t, st, "12345", 30)

	p := NewRetentionPlanner(st, 30, zap.NewNop())
	assert.Equal(t, 7, p.Plan(context.Background(), "12345"))
	assert.Equal(t, 30, p.Plan(context.Background(), "67890"), "another account's history does not shorten the window")
}

func TestPlanWithoutStore(t *testing.T) {
	p := NewRetentionPlanner(nil, 7, zap.NewNop())
	assert.Equal(t, 7, p.Plan(context.Background(), "12345"))
}
