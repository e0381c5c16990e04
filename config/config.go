package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/pagediff/models"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Capture   CaptureConfig
	Diff      DiffConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Webhook   WebhookConfig
	Report    ReportConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 8

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// CaptureConfig controls per-page capture behavior.
type CaptureConfig struct {
	// DefaultTimeout is the per-capture timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// SettleDelay is the extra wait after DOM stability before the
	// screenshot, letting late images and web fonts paint.
	SettleDelay time.Duration // default: 500ms

	// StylesheetTimeout is the deadline for fetching one external
	// stylesheet. Fetch failures omit that stylesheet's text.
	StylesheetTimeout time.Duration // default: 10s

	// MaxStylesheetBytes caps one fetched stylesheet body.
	MaxStylesheetBytes int64 // default: 5 MB

	// Viewports are the presets compared when a request doesn't override
	// them. Format: "name:WIDTHxHEIGHT" comma-separated.
	Viewports []models.Viewport
}

// DiffConfig carries the comparison-core tunables.
type DiffConfig struct {
	// StripHeight is the height in pixels of one alignment strip.
	StripHeight int // default: 100

	// MaxShift bounds the vertical alignment search, in pixels.
	MaxShift int // default: 120

	// CoarseX / CoarseY are the sampling strides for the alignment score
	// (every CoarseX-th column, every CoarseY-th row).
	CoarseX int // default: 4
	CoarseY int // default: 4

	// Threshold is the per-pixel difference sensitivity (0-1).
	Threshold float64 // default: 0.1

	// AntiAlias enables anti-aliased edge suppression.
	AntiAlias bool // default: true

	// Result-list caps.
	MaxClassChanges   int // default: 60
	MaxElementChanges int // default: 40
	MaxContentChanges int // default: 50
	MaxSelectorDiffs  int // default: 50
	MaxPerSelector    int // default: 20
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the comparison response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 200
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// WebhookConfig controls outbound webhook delivery.
type WebhookConfig struct {
	// Secret signs webhook payloads with HMAC-SHA256 when non-empty.
	Secret string
}

// ReportConfig controls on-disk report persistence.
type ReportConfig struct {
	// Dir is the root directory for per-comparison HTML reports and
	// diff PNGs, one subdirectory per job. Empty disables persistence.
	Dir string
}

// DefaultViewports are the presets used when PAGEDIFF_VIEWPORTS is unset.
var DefaultViewports = []models.Viewport{
	{Name: "desktop", Width: 1440, Height: 900},
	{Name: "tablet", Width: 768, Height: 1024},
	{Name: "mobile", Width: 375, Height: 812},
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PAGEDIFF_HOST", "0.0.0.0"),
			Port: envIntOr("PAGEDIFF_PORT", 8080),
			Mode: envOr("PAGEDIFF_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("PAGEDIFF_HEADLESS", true),
			MaxPages:   envIntOr("PAGEDIFF_MAX_PAGES", 8),
			NoSandbox:  envBoolOr("PAGEDIFF_NO_SANDBOX", false),
			BrowserBin: os.Getenv("PAGEDIFF_BROWSER_BIN"),
		},
		Capture: CaptureConfig{
			DefaultTimeout:     envDurationOr("PAGEDIFF_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:         envDurationOr("PAGEDIFF_MAX_TIMEOUT", 120*time.Second),
			SettleDelay:        envDurationOr("PAGEDIFF_SETTLE_DELAY", 500*time.Millisecond),
			StylesheetTimeout:  envDurationOr("PAGEDIFF_STYLESHEET_TIMEOUT", 10*time.Second),
			MaxStylesheetBytes: int64(envIntOr("PAGEDIFF_MAX_STYLESHEET_BYTES", 5<<20)),
			Viewports:          envViewportsOr("PAGEDIFF_VIEWPORTS", DefaultViewports),
		},
		Diff: DiffConfig{
			StripHeight:       envIntOr("PAGEDIFF_STRIP_HEIGHT", 100),
			MaxShift:          envIntOr("PAGEDIFF_MAX_SHIFT", 120),
			CoarseX:           envIntOr("PAGEDIFF_COARSE_X", 4),
			CoarseY:           envIntOr("PAGEDIFF_COARSE_Y", 4),
			Threshold:         envFloatOr("PAGEDIFF_THRESHOLD", 0.1),
			AntiAlias:         envBoolOr("PAGEDIFF_ANTIALIAS", true),
			MaxClassChanges:   envIntOr("PAGEDIFF_MAX_CLASS_CHANGES", 60),
			MaxElementChanges: envIntOr("PAGEDIFF_MAX_ELEMENT_CHANGES", 40),
			MaxContentChanges: envIntOr("PAGEDIFF_MAX_CONTENT_CHANGES", 50),
			MaxSelectorDiffs:  envIntOr("PAGEDIFF_MAX_SELECTOR_DIFFS", 50),
			MaxPerSelector:    envIntOr("PAGEDIFF_MAX_PER_SELECTOR", 20),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGEDIFF_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PAGEDIFF_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGEDIFF_RATE_RPS", 2.0),
			Burst:             envIntOr("PAGEDIFF_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PAGEDIFF_CACHE_MAX_ENTRIES", 200),
		},
		Log: LogConfig{
			Level:  envOr("PAGEDIFF_LOG_LEVEL", "info"),
			Format: envOr("PAGEDIFF_LOG_FORMAT", "json"),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("PAGEDIFF_WEBHOOK_SECRET"),
		},
		Report: ReportConfig{
			Dir: os.Getenv("PAGEDIFF_REPORT_DIR"),
		},
	}
}

// envViewportsOr parses a "name:WIDTHxHEIGHT,name:WIDTHxHEIGHT" list.
// Malformed entries are skipped; an empty result falls back.
func envViewportsOr(key string, fallback []models.Viewport) []models.Viewport {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var result []models.Viewport
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		idx := strings.IndexByte(part, ':')
		if idx <= 0 {
			continue
		}
		dims := strings.SplitN(part[idx+1:], "x", 2)
		if len(dims) != 2 {
			continue
		}
		w, werr := strconv.Atoi(strings.TrimSpace(dims[0]))
		h, herr := strconv.Atoi(strings.TrimSpace(dims[1]))
		if werr != nil || herr != nil || w <= 0 || h <= 0 {
			continue
		}
		result = append(result, models.Viewport{Name: part[:idx], Width: w, Height: h})
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
