package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetStatsYear(t *testing.T) {
	jan := time.Date(2025, time.January, 15, 8, 0, 0, 0, time.Local)
	assert.Equal(t, 2024, targetStatsYear(jan), "January runs report on the prior billing year")

	feb := time.Date(2025, time.February, 1, 8, 0, 0, 0, time.Local)
	assert.Equal(t, 2025, targetStatsYear(feb))

	dec := time.Date(2024, time.December, 31, 23, 0, 0, 0, time.Local)
	assert.Equal(t, 2024, targetStatsYear(dec))
}

func TestParseSignedAmount(t *testing.T) {
	v, err := parseSignedAmount("128.50", "当前余额")
	require.NoError(t, err)
	assert.Equal(t, 128.50, v)

	v, err = parseSignedAmount("42.10", "欠费金额")
	require.NoError(t, err)
	assert.Equal(t, -42.10, v, "arrears marker flips the sign")

	_, err = parseSignedAmount("n/a", "")
	assert.Error(t, err)
}

func TestParseMonthlyCells(t *testing.T) {
	cells := []string{
		"2024-01", "300", "150",
		"2024-02", "280", "140",
		"MAX",
		"2024-03", "260", // incomplete trailing group
	}

	rows := parseMonthlyCells(cells)
	require.Len(t, rows, 2)
	assert.Equal(t, monthCell{Label: "2024-01", Usage: "300", Charge: "150"}, rows[0])
	assert.Equal(t, monthCell{Label: "2024-02", Usage: "280", Charge: "140"}, rows[1])
}

func TestParseMonthlyCellsEmpty(t *testing.T) {
	assert.Empty(t, parseMonthlyCells(nil))
	assert.Empty(t, parseMonthlyCells([]string{"MAX"}))
	assert.Empty(t, parseMonthlyCells([]string{"2024-01", "300"}))
}

func TestParseMonthLabel(t *testing.T) {
	year, month, err := parseMonthLabel("2024-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 1, month)

	year, month, err = parseMonthLabel("2024年12月")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 12, month)

	_, _, err = parseMonthLabel("total")
	assert.Error(t, err)

	_, _, err = parseMonthLabel("2024-13")
	assert.Error(t, err, "month outside 1-12 is rejected")
}

func TestMonthlyStats(t *testing.T) {
	cells := []string{
		"2024-01", "300", "150",
		"2024-02", "280", "140",
		"MAX",
	}

	stats := monthlyStats("12345", cells)
	require.Len(t, stats, 2)

	assert.Equal(t, "12345", stats[0].AccountID)
	assert.Equal(t, 2024, stats[0].Year)
	assert.Equal(t, 1, stats[0].Month)
	require.NotNil(t, stats[0].Usage)
	assert.Equal(t, 300.0, *stats[0].Usage)
	require.NotNil(t, stats[0].Charge)
	assert.Equal(t, 150.0, *stats[0].Charge)

	assert.Equal(t, 2, stats[1].Month)
}

func TestMonthlyStatsSkipsBadLabels(t *testing.T) {
	cells := []string{
		"garbage", "300", "150",
		"2024-02", "280", "140",
	}

	stats := monthlyStats("12345", cells)
	require.Len(t, stats, 1, "a malformed label never blocks sibling rows")
	assert.Equal(t, 2, stats[0].Month)
}

func TestDailyUsageRecordsFiltersEmptyUsage(t *testing.T) {
	rows := []dailyRow{
		{Date: "2024-06-01", Usage: "12.5"},
		{Date: "2024-06-02", Usage: ""},
		{Date: "2024-06-03", Usage: "8.1"},
	}

	records := dailyUsageRecords("12345", rows)
	require.Len(t, records, 2, "empty usage cells are dropped, never stored as zero")
	assert.Equal(t, 12.5, records[0].Usage)
	assert.Equal(t, "2024-06-03", records[1].Date.Format("2006-01-02"))
}

func TestDailyUsageRecordsSkipsInvalidRows(t *testing.T) {
	rows := []dailyRow{
		{Date: "not-a-date", Usage: "5"},
		{Date: "2024-06-02", Usage: "oops"},
		{Date: "2024-06-03", Usage: "-1"},
		{Date: "2024-06-04", Usage: "0"},
	}

	records := dailyUsageRecords("12345", rows)
	require.Len(t, records, 1)
	assert.Equal(t, 0.0, records[0].Usage)
}

func TestParseFloatPtr(t *testing.T) {
	v := parseFloatPtr("1,850.30")
	require.NotNil(t, v)
	assert.Equal(t, 1850.30, *v)

	assert.Nil(t, parseFloatPtr(""))
	assert.Nil(t, parseFloatPtr("--"))
}

func TestLastNumberIn(t *testing.T) {
	assert.Equal(t, "1234567890", lastNumberIn("户号1: 1234567890"))
	assert.Equal(t, "", lastNumberIn("no digits here"))
}
