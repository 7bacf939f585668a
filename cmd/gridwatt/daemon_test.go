package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatt/internal/config"
)

func TestJitteredTriggers(t *testing.T) {
	cfg := &config.Config{JobStartTime: "07:00"}

	first, second, err := jitteredTriggers(cfg, 10)
	require.NoError(t, err)
	assert.Equal(t, "07:10", first.Format("15:04"))
	assert.Equal(t, "19:10", second.Format("15:04"))
}

func TestJitteredTriggersNegativeJitter(t *testing.T) {
	cfg := &config.Config{JobStartTime: "07:00"}

	first, second, err := jitteredTriggers(cfg, -10)
	require.NoError(t, err)
	assert.Equal(t, "06:50", first.Format("15:04"))
	assert.Equal(t, "18:50", second.Format("15:04"))
}

func TestJitteredTriggersDefaultStartTime(t *testing.T) {
	first, _, err := jitteredTriggers(&config.Config{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "07:00", first.Format("15:04"))
}

func TestJitteredTriggersBadStartTime(t *testing.T) {
	_, _, err := jitteredTriggers(&config.Config{JobStartTime: "25:99"}, 0)
	assert.Error(t, err)
}

func TestNextTrigger(t *testing.T) {
	first, err := time.Parse("15:04", "07:00")
	require.NoError(t, err)
	second := first.Add(12 * time.Hour)

	tests := []struct {
		name string
		now  string
		want string
	}{
		{"before morning", "2024-06-01 05:00", "2024-06-01 07:00"},
		{"between triggers", "2024-06-01 09:30", "2024-06-01 19:00"},
		{"after evening", "2024-06-01 21:00", "2024-06-02 07:00"},
		{"exactly at trigger rolls forward", "2024-06-01 07:00", "2024-06-01 19:00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			now, err := time.ParseInLocation("2006-01-02 15:04", tc.now, time.UTC)
			require.NoError(t, err)

			next := nextTrigger(now, first, second)
			assert.Equal(t, tc.want, next.Format("2006-01-02 15:04"))
			assert.True(t, next.After(now))
		})
	}
}

func TestNextTriggerTwelveHoursApart(t *testing.T) {
	cfg := &config.Config{JobStartTime: "23:30"}
	first, second, err := jitteredTriggers(cfg, 5)
	require.NoError(t, err)

	assert.Equal(t, "23:35", first.Format("15:04"))
	assert.Equal(t, "11:35", second.Format("15:04"), "second trigger wraps past midnight")

	now, _ := time.ParseInLocation("2006-01-02 15:04", "2024-06-01 12:00", time.UTC)
	next := nextTrigger(now, first, second)
	assert.Equal(t, "2024-06-01 23:35", next.Format("2006-01-02 15:04"))
}
