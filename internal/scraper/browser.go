package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"gridwatt/internal/config"
)

// Portal URLs. Login, balance and usage are separate SPA routes; account
// selection is a global control on each of them.
const (
	loginURL   = "https://www.95598.cn/osgweb/login"
	balanceURL = "https://www.95598.cn/osgweb/userAcc"
	usageURL   = "https://www.95598.cn/osgweb/electricityCharge"
)

// runTimeout bounds one whole browser session including all accounts.
const runTimeout = 30 * time.Minute

// Session owns one browser for the duration of one run. All portal
// interaction goes through it; it is not safe for concurrent use and the
// pipeline never shares it between goroutines.
type Session struct {
	cfg    *config.Config
	log    *zap.Logger
	solver OffsetSolver

	ctx     context.Context
	cancels []context.CancelFunc
}

// NewSession prepares a session; the browser starts on Start.
func NewSession(cfg *config.Config, log *zap.Logger, solver OffsetSolver) *Session {
	return &Session{cfg: cfg, log: log, solver: solver}
}

// Start launches the browser and opens the portal's login page.
func (s *Session) Start(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !s.cfg.BrowserVisible),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	s.cancels = append(s.cancels, cancel)

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	s.cancels = append(s.cancels, cancel)

	browserCtx, cancel = context.WithTimeout(browserCtx, runTimeout)
	s.cancels = append(s.cancels, cancel)

	s.ctx = browserCtx

	if err := chromedp.Run(s.ctx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}
	s.log.Info("opened login page", zap.String("url", loginURL))
	return nil
}

// Close tears the browser down. Safe to call on every exit path.
func (s *Session) Close() {
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
	s.cancels = nil
}

// run executes actions with the configured implicit-wait ceiling, so a
// stuck UI wait surfaces as a timeout instead of hanging the run.
func (s *Session) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.GetImplicitWait())
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// poll blocks until the JS expression turns truthy, bounded by the
// implicit-wait ceiling. Every extraction step funnels its waits through
// this single primitive.
func (s *Session) poll(expr string) error {
	return s.run(chromedp.Poll(expr, nil, chromedp.WithPollingTimeout(s.cfg.GetImplicitWait())))
}

// settle pauses for n wait units, mirroring the portal's animation delays.
func (s *Session) settle(n int) {
	time.Sleep(time.Duration(n) * s.cfg.GetRetryWaitUnit())
}

// currentURL reads the browser's current location.
func (s *Session) currentURL() (string, error) {
	var url string
	if err := s.run(chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// clickX clicks an element located by XPath once it is present.
func (s *Session) clickX(xpath string) error {
	return s.run(
		chromedp.WaitVisible(xpath, chromedp.BySearch),
		chromedp.Click(xpath, chromedp.BySearch),
	)
}

// click clicks an element located by CSS selector once it is present.
func (s *Session) click(sel string) error {
	return s.run(
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	)
}
