// Package scraper drives a logged-in browser session over the board game
// site and stages what it finds as raw rows.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/browser"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/config"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/metrics"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/retry"
)

// Scrape errors.
var (
	ErrNavigation = errors.New("navigation failed")
	ErrLogin      = errors.New("login failed")
	ErrStructure  = errors.New("unexpected page structure")
)

// Login page selectors and markers.
var (
	loginPageMarker   = browser.CSS("gg-login-page")
	cookieButton      = browser.ElementWithText("button", "I'm OK with that")
	usernameInput     = browser.CSS("input#inputUsername")
	passwordInput     = browser.CSS("input#inputPassword")
	loginSubmit       = browser.CSS("button.btn-primary")
	loggedInMarker    = browser.CSS("gg-avatar-letter > span")
	cookieIdleTimeout = 10 * time.Second
	loginVerifyWait   = 10 * time.Second
)

// Human-like pauses around the login form.
const (
	loginPauseMin  = 2 * time.Second
	loginPauseMax  = 5 * time.Second
	typePauseMin   = 500 * time.Millisecond
	typePauseMax   = 1000 * time.Millisecond
	loginSettle    = 3 * time.Second
	settlePauseMin = 500 * time.Millisecond
	settlePauseMax = 1000 * time.Millisecond
)

// Credentials authenticate the session.
type Credentials struct {
	Username string
	Password string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSleep replaces the pause function, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SessionOption {
	return func(s *Session) {
		s.sleep = sleep
	}
}

// Session wraps a page with bounded-retry navigation, login and randomized pauses.
type Session struct {
	page    browser.Page
	cfg     config.ScraperConfig
	log     logger.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewSession creates a Session over page. m may be nil.
func NewSession(page browser.Page, cfg config.ScraperConfig, log logger.Logger, m *metrics.Metrics, opts ...SessionOption) *Session {
	s := &Session{
		page:    page,
		cfg:     cfg,
		log:     log,
		metrics: m,
		sleep:   retry.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Page returns the underlying page.
func (s *Session) Page() browser.Page {
	return s.page
}

// URL resolves a site-relative path against the configured base URL.
func (s *Session) URL(path string) string {
	return strings.TrimSuffix(s.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Goto navigates to url, retrying failed attempts after a random backoff.
// The last failure is returned wrapped in ErrNavigation.
func (s *Session) Goto(ctx context.Context, url string) error {
	cfg := retry.Config{
		MaxAttempts: s.cfg.NavigationAttempts,
		Backoff:     retry.RandomBackoff(s.cfg.BackoffMin, s.cfg.BackoffMax),
		IsRetryable: retry.Always,
		OnRetry: func(attempt int, err error) {
			s.metrics.Navigation(metrics.NavigationRetried)
			s.log.Warn("Navigation failed, retrying",
				logger.String("url", url),
				logger.Int("attempt", attempt),
				logger.Int("max_attempts", s.cfg.NavigationAttempts),
				logger.Error(err),
			)
		},
	}

	err := retry.Retry(ctx, cfg, func(ctx context.Context) error {
		return s.page.Navigate(ctx, url)
	})
	if err != nil {
		s.metrics.Navigation(metrics.NavigationFailed)
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}

	s.metrics.Navigation(metrics.NavigationOK)
	return nil
}

// SleepRandom pauses for a random duration in [low, high].
func (s *Session) SleepRandom(ctx context.Context, low, high time.Duration) error {
	return s.sleep(ctx, retry.RandomBackoff(low, high)(0))
}

// Settle pauses briefly after a navigation so late content can render.
func (s *Session) Settle(ctx context.Context) error {
	return s.SleepRandom(ctx, settlePauseMin, settlePauseMax)
}

// Login signs in through the login form. A missing marker is reported as
// ErrLogin and is not retried.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("%w: credentials are not configured", ErrLogin)
	}

	if err := s.Goto(ctx, s.URL("/login")); err != nil {
		return err
	}

	found, err := s.page.Exists(ctx, loginPageMarker)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}
	if !found {
		return fmt.Errorf("%w: login page not found", ErrLogin)
	}

	clicked, err := s.page.Click(ctx, cookieButton)
	if err != nil {
		s.log.Warn("Failed to accept cookie banner", logger.Error(err))
	}
	if clicked {
		if err = s.page.WaitIdle(ctx, cookieIdleTimeout); err != nil {
			s.log.Warn("Page not idle after cookie banner", logger.Error(err))
		}
	}

	if err = s.SleepRandom(ctx, loginPauseMin, loginPauseMax); err != nil {
		return err
	}
	if err = s.fillForm(ctx, creds); err != nil {
		return err
	}

	if err = s.page.WaitForSelector(ctx, loggedInMarker, loginVerifyWait); err != nil {
		return fmt.Errorf("%w: avatar not found: %w", ErrLogin, err)
	}

	return s.sleep(ctx, loginSettle)
}

func (s *Session) fillForm(ctx context.Context, creds Credentials) error {
	if err := s.page.Fill(ctx, usernameInput, creds.Username); err != nil {
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}
	if err := s.SleepRandom(ctx, typePauseMin, typePauseMax); err != nil {
		return err
	}
	if err := s.page.Fill(ctx, passwordInput, creds.Password); err != nil {
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}
	if err := s.SleepRandom(ctx, typePauseMin, typePauseMax); err != nil {
		return err
	}

	clicked, err := s.page.Click(ctx, loginSubmit)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}
	if !clicked {
		return fmt.Errorf("%w: submit button not found", ErrLogin)
	}

	return s.SleepRandom(ctx, typePauseMin, typePauseMax)
}
