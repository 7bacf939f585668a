package scraper

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Login form selectors. The portal is an element-ui SPA, so most anchors
// are framework classes rather than stable ids.
const (
	loginUserTabSel     = `.user`
	loadingMaskGoneJS   = `(() => { const m = document.querySelector('.el-loading-mask'); return !m || m.style.display === 'none'; })()`
	accountSelectorJS   = `document.querySelector('.el-dropdown') !== null`
	passwordTabXPath    = `//*[@id="login_box"]/div[1]/div[1]/div[2]/span`
	agreementXPath      = `//*[@id="login_box"]/div[2]/div[1]/form/div[1]/div[3]/div/span[2]`
	usernameXPath       = `(//input[@class='el-input__inner'])[1]`
	passwordXPath       = `(//input[@class='el-input__inner'])[2]`
	loginButtonSel      = `button.el-button.el-button--primary`
	smsTabXPath         = `//*[@id="login_box"]/div[1]/div[1]/div[3]/span`
	smsPhoneXPath       = `(//input[@class='el-input__inner'])[3]`
	smsSendCodeXPath    = `//*[@id="login_box"]/div[2]/div[2]/form/div[1]/div[2]/div[2]/div/a`
	smsCodeInputXPath   = `(//input[@class='el-input__inner'])[4]`
	smsLoginButtonXPath = `//*[@id="login_box"]/div[2]/div[2]/form/div[2]/div/button/span`
)

// Login authenticates the session. Password mode drives the slider-captcha
// verification loop; sms mode suspends for an out-of-band code.
func (s *Session) Login() error {
	url, err := s.currentURL()
	if err != nil {
		return fmt.Errorf("reading current url: %w", err)
	}
	if !strings.HasPrefix(url, loginURL) {
		if err := s.run(chromedp.Navigate(loginURL)); err != nil {
			return fmt.Errorf("navigating to login page: %w", err)
		}
	}

	// A leftover cookie can land us straight on the authenticated shell.
	var authenticated bool
	if err := s.run(chromedp.Evaluate(accountSelectorJS, &authenticated)); err == nil && authenticated {
		s.log.Info("session already authenticated, skipping login")
		return nil
	}

	if err := s.poll(loadingMaskGoneJS); err != nil {
		return fmt.Errorf("waiting for login page to settle: %w", err)
	}
	if err := s.click(loginUserTabSel); err != nil {
		return fmt.Errorf("opening account login pane: %w", err)
	}

	if s.cfg.LoginMode == "sms" {
		return s.loginWithSMSCode()
	}
	return s.loginWithPassword()
}

// loginWithPassword submits credentials and then runs the captcha loop:
// solve, drag, settle, and check whether the portal left the login page.
func (s *Session) loginWithPassword() error {
	if err := s.clickX(passwordTabXPath); err != nil {
		return fmt.Errorf("switching to password login: %w", err)
	}
	if err := s.clickX(agreementXPath); err != nil {
		return fmt.Errorf("accepting service agreement: %w", err)
	}

	if err := s.run(
		chromedp.WaitVisible(usernameXPath, chromedp.BySearch),
		chromedp.SendKeys(usernameXPath, s.cfg.PhoneNumber, chromedp.BySearch),
		chromedp.SendKeys(passwordXPath, s.cfg.Password, chromedp.BySearch),
	); err != nil {
		return fmt.Errorf("filling credentials: %w", err)
	}

	if err := s.click(loginButtonSel); err != nil {
		return fmt.Errorf("submitting login form: %w", err)
	}
	s.settle(2)

	limit := s.cfg.GetRetryTimesLimit()
	return retryCaptcha(limit, func(attempt int) (bool, error) {
		if err := s.clickX(passwordTabXPath); err != nil {
			return false, fmt.Errorf("refocusing login pane: %w", err)
		}

		image, err := s.captureCaptcha()
		if err != nil {
			return false, err
		}
		offset, err := s.solver.Solve(s.ctx, image)
		if err != nil {
			return false, err
		}
		distance := offset * offsetCompensation
		s.log.Info("solved slider captcha",
			zap.Int("attempt", attempt),
			zap.Float64("offset", offset),
			zap.Float64("distance", distance))

		if err := s.dragSlider(distance); err != nil {
			return false, err
		}
		s.settle(1)

		url, err := s.currentURL()
		if err != nil {
			return false, err
		}
		if url == loginURL {
			// Still on the login page: verification rejected the drag.
			s.log.Warn("captcha verification failed, resubmitting", zap.Int("attempt", attempt))
			if err := s.click(loginButtonSel); err != nil {
				return false, fmt.Errorf("resubmitting login form: %w", err)
			}
			s.settle(2)
			return false, nil
		}
		return true, nil
	}, func(attempt int, err error) {
		s.log.Warn("captcha attempt errored", zap.Int("attempt", attempt), zap.Error(err))
	})
}

// retryCaptcha drives the bounded verification loop. attempt reports true
// once the portal has left the login page; errors count against the budget
// the same as rejected drags. At most one attempt is ever in flight.
func retryCaptcha(limit int, attempt func(n int) (bool, error), onError func(n int, err error)) error {
	for n := 1; n <= limit; n++ {
		ok, err := attempt(n)
		if err != nil {
			onError(n, err)
			continue
		}
		if ok {
			return nil
		}
	}
	return ErrLoginFailed
}

// loginWithSMSCode requests a one-time code and suspends on stdin until the
// operator types it in, bounded by its own timeout.
func (s *Session) loginWithSMSCode() error {
	if err := s.clickX(smsTabXPath); err != nil {
		return fmt.Errorf("switching to sms login: %w", err)
	}
	if err := s.run(
		chromedp.WaitVisible(smsPhoneXPath, chromedp.BySearch),
		chromedp.SendKeys(smsPhoneXPath, s.cfg.PhoneNumber, chromedp.BySearch),
	); err != nil {
		return fmt.Errorf("entering phone number: %w", err)
	}
	if err := s.clickX(smsSendCodeXPath); err != nil {
		return fmt.Errorf("requesting sms code: %w", err)
	}

	code, err := readCodeWithTimeout(os.Stdin, s.cfg.GetSMSCodeWait())
	if err != nil {
		return fmt.Errorf("waiting for sms code: %w", err)
	}

	if err := s.run(chromedp.SendKeys(smsCodeInputXPath, code, chromedp.BySearch)); err != nil {
		return fmt.Errorf("entering sms code: %w", err)
	}
	if err := s.clickX(smsLoginButtonXPath); err != nil {
		return fmt.Errorf("submitting sms login: %w", err)
	}
	s.settle(2)

	url, err := s.currentURL()
	if err != nil {
		return err
	}
	if url == loginURL {
		return ErrLoginFailed
	}
	return nil
}

// readCodeWithTimeout reads one line from r, giving up after the timeout.
func readCodeWithTimeout(r *os.File, timeout time.Duration) (string, error) {
	type result struct {
		code string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		fmt.Fprint(os.Stderr, "enter sms verification code: ")
		line, err := bufio.NewReader(r).ReadString('\n')
		ch <- result{strings.TrimSpace(line), err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", res.err
		}
		if res.code == "" {
			return "", fmt.Errorf("empty code")
		}
		return res.code, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no code entered within %s", timeout)
	}
}
