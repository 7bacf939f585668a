package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"gridwatt/pkg/models"
)

// Usage page selectors. The yearly/monthly figures live under the first
// tab, the daily table under the second.
const (
	balanceNumSel    = `.num`
	balanceMarkerSel = `.amttxt`

	yearTabXPath      = `//div[@class='el-tabs__nav is-top']/div[@id='tab-first']`
	dayTabXPath       = `//div[@class='el-tabs__nav is-top']/div[@id='tab-second']`
	yearPickerXPath   = `//*[@id="pane-first"]/div[1]/div/div[1]/div/div/input`
	yearTotalsJS      = `document.querySelector('ul.total') !== null`
	yearlyUsageXPath  = `//ul[@class='total']/li[1]/span`
	yearlyChargeXPath = `//ul[@class='total']/li[2]/span`

	monthlyTableJS = `document.querySelector("#pane-first .el-table__body-wrapper table tbody").innerText`

	latestDailyDateXPath  = `//div[@class='el-tab-pane dayd']//table/tbody/tr[1]/td[1]/div`
	latestDailyUsageXPath = `//div[@class='el-tab-pane dayd']//table/tbody/tr[1]/td[2]/div`

	sevenDayOptionXPath  = `//*[@id='pane-second']/div[1]/div/label[1]/span[1]`
	thirtyDayOptionXPath = `//*[@id='pane-second']/div[1]/div/label[2]/span[1]`

	dailyRowsJS = `Array.from(document.querySelectorAll("#pane-second .el-table__body-wrapper table tbody tr")).map(tr => {
		const tds = tr.querySelectorAll("td div");
		return {date: tds[0] ? tds[0].innerText.trim() : '', usage: tds[1] ? tds[1].innerText.trim() : ''};
	})`
)

// Extractor reads one account's figures from an authenticated session.
// Every figure is fetched independently; one unreadable figure never
// blocks the others.
type Extractor struct {
	s   *Session
	log *zap.Logger
}

// NewExtractor wraps a session for per-account extraction.
func NewExtractor(s *Session) *Extractor {
	return &Extractor{s: s, log: s.log}
}

// Balance reads the current balance from the balance page. The arrears
// marker flips the sign.
func (e *Extractor) Balance() (float64, error) {
	var num, marker string
	if err := e.s.run(
		chromedp.Text(balanceNumSel, &num, chromedp.ByQuery),
		chromedp.Text(balanceMarkerSel, &marker, chromedp.ByQuery),
	); err != nil {
		return 0, &FieldError{Field: "balance", Err: err}
	}

	v, err := parseSignedAmount(num, marker)
	if err != nil {
		return 0, &FieldError{Field: "balance", Err: err}
	}
	return v, nil
}

// YearlyTotals reads total usage and charge for the billing year. During
// January the displayed year is switched back to the prior one first.
func (e *Extractor) YearlyTotals(now time.Time) (*float64, *float64, error) {
	if err := e.switchDisplayedYear(now); err != nil {
		return nil, nil, &FieldError{Field: "yearly totals", Err: err}
	}
	if err := e.s.clickX(yearTabXPath); err != nil {
		return nil, nil, &FieldError{Field: "yearly totals", Err: err}
	}
	e.s.settle(1)
	if err := e.s.poll(yearTotalsJS); err != nil {
		return nil, nil, &FieldError{Field: "yearly totals", Err: err}
	}

	// The two figures fail independently.
	var usage, charge *float64
	var text string
	if err := e.s.run(chromedp.Text(yearlyUsageXPath, &text, chromedp.BySearch)); err == nil {
		usage = parseFloatPtr(text)
	} else {
		e.log.Warn("yearly usage unreadable", zap.Error(err))
	}
	text = ""
	if err := e.s.run(chromedp.Text(yearlyChargeXPath, &text, chromedp.BySearch)); err == nil {
		charge = parseFloatPtr(text)
	} else {
		e.log.Warn("yearly charge unreadable", zap.Error(err))
	}

	return usage, charge, nil
}

// Monthly reads the per-month breakdown table for the billing year.
func (e *Extractor) Monthly(accountID string, now time.Time) ([]models.MonthlyStats, error) {
	if err := e.s.clickX(yearTabXPath); err != nil {
		return nil, &FieldError{Field: "monthly breakdown", Err: err}
	}
	e.s.settle(1)
	if err := e.switchDisplayedYear(now); err != nil {
		return nil, &FieldError{Field: "monthly breakdown", Err: err}
	}
	if err := e.s.poll(yearTotalsJS); err != nil {
		return nil, &FieldError{Field: "monthly breakdown", Err: err}
	}

	var tableText string
	if err := e.s.run(chromedp.Evaluate(monthlyTableJS, &tableText)); err != nil {
		return nil, &FieldError{Field: "monthly breakdown", Err: err}
	}

	stats := monthlyStats(accountID, strings.Split(tableText, "\n"))
	if len(stats) == 0 {
		return nil, &FieldError{Field: "monthly breakdown", Err: fmt.Errorf("no parsable rows")}
	}
	return stats, nil
}

// LatestDaily reads the newest (date, usage) pair from the daily table,
// which the portal sorts newest first.
func (e *Extractor) LatestDaily() (*time.Time, *float64, error) {
	if err := e.s.clickX(dayTabXPath); err != nil {
		return nil, nil, &FieldError{Field: "latest daily usage", Err: err}
	}
	e.s.settle(1)

	var dateText, usageText string
	if err := e.s.run(
		chromedp.Text(latestDailyDateXPath, &dateText, chromedp.BySearch),
		chromedp.Text(latestDailyUsageXPath, &usageText, chromedp.BySearch),
	); err != nil {
		return nil, nil, &FieldError{Field: "latest daily usage", Err: err}
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(dateText))
	if err != nil {
		return nil, nil, &FieldError{Field: "latest daily usage", Err: err}
	}
	usage := parseFloatPtr(usageText)
	if usage == nil {
		return nil, nil, &FieldError{Field: "latest daily usage", Err: fmt.Errorf("usage %q is not numeric", usageText)}
	}
	return &date, usage, nil
}

// DailyWindow reads the trailing daily usage table after selecting the
// 7 or 30 day widget option. Choosing the wrong option silently yields a
// short table, so the caller decides days via the retention planner.
func (e *Extractor) DailyWindow(accountID string, days int) ([]models.DailyUsage, error) {
	if err := e.s.clickX(dayTabXPath); err != nil {
		return nil, &FieldError{Field: "daily window", Err: err}
	}
	e.s.settle(1)

	var optionXPath string
	switch days {
	case 7:
		optionXPath = sevenDayOptionXPath
	case 30:
		optionXPath = thirtyDayOptionXPath
	default:
		return nil, &FieldError{Field: "daily window", Err: fmt.Errorf("unsupported window %d days", days)}
	}
	if err := e.s.clickX(optionXPath); err != nil {
		return nil, &FieldError{Field: "daily window", Err: err}
	}
	e.s.settle(1)

	if err := e.s.run(chromedp.WaitVisible(latestDailyUsageXPath, chromedp.BySearch)); err != nil {
		return nil, &FieldError{Field: "daily window", Err: err}
	}

	var rows []dailyRow
	if err := e.s.run(chromedp.Evaluate(dailyRowsJS, &rows)); err != nil {
		return nil, &FieldError{Field: "daily window", Err: err}
	}

	return dailyUsageRecords(accountID, rows), nil
}

// switchDisplayedYear moves the year picker to the prior year when the run
// happens in January, matching the billing-cycle rollover.
func (e *Extractor) switchDisplayedYear(now time.Time) error {
	if now.Month() != time.January {
		return nil
	}
	if err := e.s.clickX(yearPickerXPath); err != nil {
		return fmt.Errorf("opening year picker: %w", err)
	}
	e.s.settle(1)
	yearXPath := fmt.Sprintf(`//span[text() = '%d']`, now.Year()-1)
	if err := e.s.clickX(yearXPath); err != nil {
		return fmt.Errorf("selecting prior year: %w", err)
	}
	e.s.settle(1)
	return nil
}
