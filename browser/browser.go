// Package browser is the local browser-driven extraction provider: a
// headless Chrome managed through go-rod, used for config.mode=browser
// when no external backend is configured. It renders the page, then
// derives items from the rendered DOM (main content via readability,
// links via goquery).
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/skylarkhq/gleaner/config"
	"github.com/skylarkhq/gleaner/models"
)

// Engine manages the browser lifecycle and the page pool. It is safe
// for concurrent use.
type Engine struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	cfg         config.BrowserConfig
	activePages atomic.Int32
}

// NewEngine launches a headless browser and initialises the reusable
// page pool.
func NewEngine(cfg config.BrowserConfig) (*Engine, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// Mask the most common automation tells before any page loads.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	pool := rod.NewPagePool(cfg.MaxPages)
	slog.Info("page pool created", "maxPages", cfg.MaxPages)

	return &Engine{
		browser:  b,
		pagePool: pool,
		cfg:      cfg,
	}, nil
}

// Name implements the fallback provider interface.
func (e *Engine) Name() string { return "browser" }

// Ready reports whether the engine holds a live browser connection.
func (e *Engine) Ready(ctx context.Context) bool {
	return e != nil && e.browser != nil
}

// Run renders the page and extracts items from the rendered DOM.
// Workflow hints are ignored by the local engine; they only matter to
// the external backend.
func (e *Engine) Run(ctx context.Context, pageURL string, maxItems int, workflow []string) ([]models.Item, error) {
	html, title, err := e.render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return itemsFromRendered(html, title, pageURL, maxItems)
}

// render navigates a pooled page to the URL and returns the rendered
// HTML and title.
//
// Ordering constraints: stealth injection and the hijack router must be
// installed before Navigate or they do not apply to the load; the
// cleanup defer uses the original page reference (without the request
// context) so pool return succeeds even after the context expires.
func (e *Engine) render(ctx context.Context, pageURL string) (string, string, error) {
	e.activePages.Add(1)
	defer e.activePages.Add(-1)

	page, err := e.pagePool.Get(func() (*rod.Page, error) {
		return e.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return "", "", fmt.Errorf("browser: acquire page: %w", err)
	}
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		e.pagePool.Put(page)
	}()

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	// Send a plausible Referer so the landing looks like a search visit.
	if u, parseErr := url.Parse(pageURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{
				"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
			},
		}.Call(page)
	}

	router := mountHijack(page, e.cfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	navTimeout := e.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 15 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(pageURL); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", "", fmt.Errorf("browser: navigation timed out: %w", err)
		}
		return "", "", fmt.Errorf("browser: navigate: %w", err)
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	html, err := p.HTML()
	if err != nil {
		return "", "", fmt.Errorf("browser: extract html: %w", err)
	}

	title := ""
	if res, evalErr := p.Eval(`() => document.title`); evalErr == nil {
		title = res.Value.Str()
	}
	return html, title, nil
}

// Stats returns a snapshot of the pool's current state.
func (e *Engine) Stats() *models.PoolStats {
	return &models.PoolStats{
		MaxPages:    e.cfg.MaxPages,
		ActivePages: int(e.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process. Call on
// graceful shutdown to prevent zombie Chrome processes.
func (e *Engine) Close() {
	slog.Info("browser shutting down: draining page pool")
	e.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	e.browser.MustClose()
	slog.Info("browser shutdown complete")
}
