package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gridwatt/pkg/models"
)

const dateLayout = "2006-01-02"

var digitsRe = regexp.MustCompile(`\d+`)

// targetStatsYear maps a run's wall clock to the billing year it reports
// on. A January run still belongs to the previous year's cycle.
func targetStatsYear(now time.Time) int {
	if now.Month() == time.January {
		return now.Year() - 1
	}
	return now.Year()
}

// parseSignedAmount parses the balance figure, flipping the sign when the
// accompanying marker text carries the arrears marker.
func parseSignedAmount(num, marker string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", num, err)
	}
	if strings.Contains(marker, "欠费") {
		return -v, nil
	}
	return v, nil
}

// monthCell is one parsed row of the monthly breakdown table.
type monthCell struct {
	Label  string
	Usage  string
	Charge string
}

// parseMonthlyCells reshapes the flat cell list of the monthly table into
// (label, usage, charge) triples. The trailing "MAX" summary marker is
// dropped, as is any incomplete trailing group.
func parseMonthlyCells(cells []string) []monthCell {
	trimmed := make([]string, 0, len(cells))
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" || c == "MAX" {
			continue
		}
		trimmed = append(trimmed, c)
	}
	trimmed = trimmed[:len(trimmed)-len(trimmed)%3]

	rows := make([]monthCell, 0, len(trimmed)/3)
	for i := 0; i+3 <= len(trimmed); i += 3 {
		rows = append(rows, monthCell{
			Label:  trimmed[i],
			Usage:  trimmed[i+1],
			Charge: trimmed[i+2],
		})
	}
	return rows
}

// parseMonthLabel pulls (year, month) out of a table label like "2024-01"
// or "2024年1月".
func parseMonthLabel(label string) (int, int, error) {
	parts := digitsRe.FindAllString(label, -1)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("month label %q has no year-month pair", label)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month %d out of range in label %q", month, label)
	}
	return year, month, nil
}

// monthlyStats converts parsed cells into records, skipping rows whose
// label or figures do not parse. A bad month never blocks its siblings.
func monthlyStats(accountID string, cells []string) []models.MonthlyStats {
	rows := parseMonthlyCells(cells)
	stats := make([]models.MonthlyStats, 0, len(rows))
	for _, row := range rows {
		year, month, err := parseMonthLabel(row.Label)
		if err != nil {
			continue
		}
		stats = append(stats, models.MonthlyStats{
			AccountID: accountID,
			Year:      year,
			Month:     month,
			Usage:     parseFloatPtr(row.Usage),
			Charge:    parseFloatPtr(row.Charge),
		})
	}
	return stats
}

// parseFloatPtr parses a numeric cell, returning nil for anything that is
// not a clean number.
func parseFloatPtr(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// dailyRow is one row of the daily usage table as read from the page.
type dailyRow struct {
	Date  string `json:"date"`
	Usage string `json:"usage"`
}

// dailyUsageRecords converts table rows into records. Rows with an empty
// usage cell are observed on the source and must be dropped, never stored
// as zero; rows with unparseable dates or negative usage are skipped too.
func dailyUsageRecords(accountID string, rows []dailyRow) []models.DailyUsage {
	records := make([]models.DailyUsage, 0, len(rows))
	for _, row := range rows {
		usageStr := strings.TrimSpace(row.Usage)
		if usageStr == "" {
			continue
		}
		usage, err := strconv.ParseFloat(usageStr, 64)
		if err != nil || usage < 0 {
			continue
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(row.Date))
		if err != nil {
			continue
		}
		records = append(records, models.DailyUsage{
			AccountID: accountID,
			Date:      date,
			Usage:     usage,
		})
	}
	return records
}
