package capture

import (
	"context"
	"errors"
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

	"github.com/use-agent/pagediff/config"
	"github.com/use-agent/pagediff/models"
)

// PageRequest describes one page capture: a URL rendered at a specific
// viewport.
type PageRequest struct {
	URL      string
	Viewport models.Viewport
	Timeout  time.Duration
	Stealth  bool
	BlockAds bool
}

// PageCapture is everything taken from one rendered page: the full-page
// PNG screenshot plus the raw material for the structural diff.
type PageCapture struct {
	URL        string
	FinalURL   string
	Title      string
	HTML       string
	Screenshot []byte // PNG, full page height
	StatusCode int
	Viewport   models.Viewport
}

// Capturer manages the global browser lifecycle and the page pool.
// It is safe for concurrent use.
type Capturer struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	captureCfg  config.CaptureConfig
	stylesheets *stylesheetFetcher
	activePages atomic.Int32
	startTime   time.Time
}

// NewCapturer launches a headless browser and initialises the reusable
// page pool.
func NewCapturer(browserCfg config.BrowserConfig, captureCfg config.CaptureConfig) (*Capturer, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	// Screenshots must not depend on GPU rasterization differences
	// between hosts.
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("force-color-profile"), "srgb")
	l.Set(flags.Flag("hide-scrollbars"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCompareError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewCompareError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	pool := rod.NewPagePool(browserCfg.MaxPages)
	slog.Info("page pool created", "maxPages", browserCfg.MaxPages)

	return &Capturer{
		browser:     browser,
		pagePool:    pool,
		browserCfg:  browserCfg,
		captureCfg:  captureCfg,
		stylesheets: newStylesheetFetcher(captureCfg),
		startTime:   time.Now(),
	}, nil
}

// Stats returns a snapshot of the pool's current state.
func (c *Capturer) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    c.browserCfg.MaxPages,
		ActivePages: int(c.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (c *Capturer) Close() {
	slog.Info("capturer shutting down: draining page pool")
	c.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	slog.Info("capturer shutting down: closing browser")
	c.browser.MustClose()
	slog.Info("capturer shutdown complete")
}

// CapturePage renders one URL at one viewport and extracts the full-page
// screenshot, the rendered HTML, and the page's effective CSS text.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Timeout guard     – hard deadline on the entire operation
//  2. Acquire page      – borrow a tab from the pool (or create one)
//  3. DEFER: cleanup    – about:blank + return to pool (leak prevention)
//  4. Stealth injection – mask navigator.webdriver etc. (before navigation!)
//  5. Hijack mount      – block ad/tracking domains (before navigation!)
//  6. Context binding   – propagate timeout to all Rod operations
//  7. Viewport          – device metrics must be set before navigation so
//     media queries resolve against the target size on first layout
//  8. Navigate
//  9. Wait              – DOM stable, then a settle delay for late paints
//  10. Screenshot       – full page height, PNG
//  11. Extract          – rendered HTML, title, final URL
func (c *Capturer) CapturePage(ctx context.Context, req *PageRequest) (*PageCapture, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.captureCfg.DefaultTimeout
	}
	if timeout > c.captureCfg.MaxTimeout {
		timeout = c.captureCfg.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// ── 2. Acquire page from pool ─────────────────────────────────────
	c.activePages.Add(1)
	defer c.activePages.Add(-1)

	page, acquireErr := c.pagePool.Get(func() (*rod.Page, error) {
		return c.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, models.NewCompareError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}

	// ── 3. CRITICAL DEFER: prevent DOM memory leak + guarantee pool return
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank",
				"error", navErr,
			)
		}
		c.pagePool.Put(page)
	}()

	// ── 4. Stealth injection ──────────────────────────────────────────
	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 4b. Google Referer so both captures arrive the same way ──────
	if u, parseErr := url.Parse(req.URL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}

	// ── 5. Mount hijack router (blocks ad/tracking domains) ──────────
	router := setupHijack(page, req.BlockAds)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 6. Bind request context to page ───────────────────────────────
	p := page.Context(ctx)

	// ── 7. Viewport ───────────────────────────────────────────────────
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             req.Viewport.Width,
		Height:            req.Viewport.Height,
		DeviceScaleFactor: 1,
		Mobile:            req.Viewport.Width < 500,
	}); err != nil {
		return nil, models.NewCompareError(
			models.ErrCodeCapture,
			"failed to set viewport",
			err,
		)
	}

	// ── 8. Navigate ───────────────────────────────────────────────────
	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to target URL failed")
	}

	// ── 9. Wait strategy ──────────────────────────────────────────────
	// NOTE: WaitRequestIdle uses the Fetch domain which conflicts with
	// HijackRequests on Chromium 145+. Use WaitDOMStable instead, then a
	// settle delay so late images and web fonts get to paint before the
	// screenshot.
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}
	if c.captureCfg.SettleDelay > 0 {
		select {
		case <-time.After(c.captureCfg.SettleDelay):
		case <-ctx.Done():
			return nil, categorizeError(ctx.Err(), "capture timed out while settling")
		}
	}

	// ── 9b. Freeze animations so the two screenshots race nothing ────
	freezeAnimations(p)

	// ── 9c. Collect status code via JS (best-effort) ─────────────────
	// performance.getEntriesByType("navigation") yields the HTTP status
	// without needing CDP event listeners.
	var statusCode int
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	// ── 10. Full-page screenshot ──────────────────────────────────────
	screenshot, shotErr := p.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if shotErr != nil {
		return nil, categorizeError(shotErr, "failed to capture screenshot")
	}

	// ── 11. Extract rendered HTML ─────────────────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &PageCapture{
		URL:        req.URL,
		FinalURL:   finalURL,
		Title:      title,
		HTML:       rawHTML,
		Screenshot: screenshot,
		StatusCode: statusCode,
		Viewport:   req.Viewport,
	}, nil
}

// freezeAnimations disables CSS animations, transitions and smooth
// scrolling so a pair of captures can't differ on animation phase, and
// pins carousels and videos at their current frame.
func freezeAnimations(p *rod.Page) {
	const js = `() => {
		const style = document.createElement('style');
		style.textContent = ` + "`" + `
			*, *::before, *::after {
				animation-play-state: paused !important;
				transition: none !important;
				caret-color: transparent !important;
				scroll-behavior: auto !important;
			}
		` + "`" + `;
		document.head.appendChild(style);
		document.querySelectorAll('video').forEach(v => { try { v.pause(); } catch(e) {} });
	}`
	_, _ = p.Eval(js)
}

// evalStringOrEmpty evaluates a JS expression and returns the string
// result, swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed CompareErrors so the API
// layer can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.CompareError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCompareError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCompareError(models.ErrCodeTimeout, "capture canceled", err)
	default:
		return models.NewCompareError(models.ErrCodeNavigation, msg, err)
	}
}
