package scraper

import (
	"fmt"
	"regexp"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Account identifies one utility account on the portal. Index is its
// position in the portal's native display order; selection happens by
// position, so the pair travels together and is re-validated before use.
type Account struct {
	ID    string
	Index int
}

const (
	accountDropdownSel = `.el-dropdown`
	accountDropdownJS  = `document.querySelector('.el-dropdown') !== null`
	accountMenuItemsJS = `Array.from(document.querySelectorAll('.el-dropdown-menu.el-popper li')).map(li => li.textContent)`
	confirmDialogJS    = `document.querySelector('.button_confirm') !== null`
	confirmButtonXPath = `//*[@id="app"]/div/div[2]/div/div/div/div[2]/div[2]/div/button`
	selectSuffixSel    = `.el-input__suffix`
	selectOptionsJS    = `Array.from(document.querySelectorAll('.el-select-dropdown__item')).map(li => li.textContent)`
	currentAccountJS   = `(document.querySelector('.el-select .el-input__inner') || {}).value || ''`
)

var accountNumberRe = regexp.MustCompile(`[0-9]+`)

// Accounts lists the account numbers reachable from the authenticated
// session, in display order. The ignore list is applied later by the
// runner, not here.
func (s *Session) Accounts() ([]Account, error) {
	if err := s.run(chromedp.Reload()); err != nil {
		return nil, &EnumerationError{Err: fmt.Errorf("reloading portal shell: %w", err)}
	}
	if err := s.poll(accountDropdownJS); err != nil {
		return nil, &EnumerationError{Err: fmt.Errorf("account selector never appeared: %w", err)}
	}
	if err := s.click(accountDropdownSel + " span"); err != nil {
		return nil, &EnumerationError{Err: fmt.Errorf("opening account dropdown: %w", err)}
	}
	// Entries render asynchronously; wait until at least one carries digits.
	if err := s.poll(`Array.from(document.querySelectorAll('.el-dropdown-menu.el-popper li')).some(li => /[0-9]/.test(li.textContent))`); err != nil {
		return nil, &EnumerationError{Err: fmt.Errorf("account entries never populated: %w", err)}
	}

	var texts []string
	if err := s.run(chromedp.Evaluate(accountMenuItemsJS, &texts)); err != nil {
		return nil, &EnumerationError{Err: fmt.Errorf("reading account entries: %w", err)}
	}

	accounts := make([]Account, 0, len(texts))
	for i, text := range texts {
		id := lastNumberIn(text)
		if id == "" {
			continue
		}
		accounts = append(accounts, Account{ID: id, Index: i})
	}
	if len(accounts) == 0 {
		return nil, &EnumerationError{Err: fmt.Errorf("no account numbers found in dropdown")}
	}

	s.log.Info("enumerated accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}

// SelectAccount switches the page's account selector to the given account.
// The option list is re-read first and the handle validated against the
// entry at its index, so enumeration-order drift fails loudly instead of
// silently scraping the wrong account.
func (s *Session) SelectAccount(a Account) error {
	var confirmPresent bool
	if err := s.run(chromedp.Evaluate(confirmDialogJS, &confirmPresent)); err == nil && confirmPresent {
		if err := s.clickX(confirmButtonXPath); err != nil {
			return fmt.Errorf("dismissing confirmation dialog: %w", err)
		}
	}

	if err := s.click(selectSuffixSel); err != nil {
		return fmt.Errorf("opening account selector: %w", err)
	}
	if err := s.poll(`document.querySelectorAll('.el-select-dropdown__item').length > 0`); err != nil {
		return fmt.Errorf("account options never appeared: %w", err)
	}

	var options []string
	if err := s.run(chromedp.Evaluate(selectOptionsJS, &options)); err != nil {
		return fmt.Errorf("reading account options: %w", err)
	}
	if a.Index >= len(options) {
		return fmt.Errorf("account index %d out of range (%d options)", a.Index, len(options))
	}
	if got := lastNumberIn(options[a.Index]); got != a.ID {
		return fmt.Errorf("account order drift: index %d is %q, expected %q", a.Index, got, a.ID)
	}

	clickJS := fmt.Sprintf(`document.querySelectorAll('.el-select-dropdown__item')[%d].click()`, a.Index)
	if err := s.run(chromedp.Evaluate(clickJS, nil)); err != nil {
		return fmt.Errorf("selecting account %s: %w", a.ID, err)
	}
	s.settle(1)
	return nil
}

// CurrentAccountID reads the account number the page selector shows now.
func (s *Session) CurrentAccountID() (string, error) {
	var text string
	if err := s.run(chromedp.Evaluate(currentAccountJS, &text)); err != nil {
		return "", fmt.Errorf("reading selected account: %w", err)
	}
	id := lastNumberIn(text)
	if id == "" {
		return "", fmt.Errorf("no account number in selector text %q", text)
	}
	return id, nil
}

// lastNumberIn extracts the trailing digit run from a dropdown entry like
// "户号1: 1234567890".
func lastNumberIn(text string) string {
	matches := accountNumberRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}
