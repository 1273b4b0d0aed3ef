package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/config"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

// Manager owns the Chrome process, or the connection to a remote one.
type Manager struct {
	cfg config.BrowserConfig
	log logger.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewManager creates a Manager. Call Start before opening pages.
func NewManager(cfg config.BrowserConfig, log logger.Logger) *Manager {
	return &Manager{cfg: cfg, log: log}
}

// Start launches Chrome, or connects to cfg.RemoteURL when set.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return nil
	}

	wsURL := m.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Context(ctx).
			Headless(!m.cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		m.log.Info("Launched local chrome", logger.Bool("headful", m.cfg.Headful))
	} else {
		m.log.Info("Connecting to remote chrome", logger.String("url", wsURL))
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		_ = m.cleanup()
		return fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b

	return nil
}

// NewPage opens a tab. Pages are stealth pages unless disabled in config.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()

	if b == nil {
		return nil, ErrNotStarted
	}

	var (
		page *rod.Page
		err  error
	)
	if m.cfg.DisableStealth {
		page, err = b.Page(proto.TargetCreateTarget{})
	} else {
		page, err = stealth.Page(b)
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	p := newRodPage(page, m.cfg.OperationTimeout, m.cfg.NavigationTimeout)
	if m.cfg.BlockImages {
		router, err := blockResources(page,
			proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia, proto.NetworkResourceTypeFont)
		if err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("browser: block resources: %w", err)
		}
		p.router = router
	}

	return p, nil
}

// Close shuts the browser down. The Manager can be started again.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanup()
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}

// blockResources fails requests for the given resource types. The returned
// router runs until it is stopped.
func blockResources(page *rod.Page, types ...proto.NetworkResourceType) (*rod.HijackRouter, error) {
	blocked := make(map[proto.NetworkResourceType]bool, len(types))
	for _, t := range types {
		blocked[t] = true
	}

	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, err
	}
	go router.Run()
	return router, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
