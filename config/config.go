package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Exec      ExecConfig
	Browser   BrowserConfig
	WebAgent  WebAgentConfig
	Store     StoreConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetchConfig controls the page fetcher.
type FetchConfig struct {
	// MaxTimeout caps the fetch phase independently of the caller's
	// requested timeout. The fetch never runs longer than this.
	MaxTimeout time.Duration // default: 30s

	// MaxBodyBytes limits how much of a response body is read.
	MaxBodyBytes int64 // default: 10 MB

	// Proxy is an optional proxy URL applied to all fetches.
	Proxy string
}

// ExecConfig controls request execution bounds.
type ExecConfig struct {
	// DefaultTimeout is applied when the request carries none.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the hard ceiling; caller timeouts are clamped to it.
	MaxTimeout time.Duration // default: 120s

	// MaxItems is the absolute cap on max_items.
	MaxItems int // default: 500

	// FallbackThreshold is the item count below which the generated
	// plan's structural fallback selectors run.
	FallbackThreshold int // default: 5
}

// BrowserConfig controls the optional local Rod browser engine, used for
// config.mode=browser when no external backend is configured.
type BrowserConfig struct {
	// Enabled toggles launching a local headless Chrome at startup.
	Enabled bool // default: false

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 5

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path.
	Bin string

	// Proxy is the default proxy URL for browser traffic.
	Proxy string

	// BlockedResourceTypes lists resource types to block during
	// navigation. default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// NavigationTimeout bounds page.Navigate alone.
	NavigationTimeout time.Duration // default: 15s
}

// WebAgentConfig controls the external browser-driven extraction backend.
type WebAgentConfig struct {
	// BaseURL of the backend. Empty disables the webagent provider.
	BaseURL string

	// ProbeTimeout bounds the reachability check, independent of the
	// main request budget.
	ProbeTimeout time.Duration // default: 3s

	// RequestTimeout bounds each endpoint attempt.
	RequestTimeout time.Duration // default: 60s

	// MaxSteps is forwarded to the backend, clamped to [1, 10].
	MaxSteps int // default: 5
}

// StoreConfig controls the persistence collaborator.
type StoreConfig struct {
	// Endpoint is the row-insert URL. Empty disables persistence.
	Endpoint string

	// Secret signs insert request bodies (HMAC-SHA256).
	Secret string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     // default: true
	APIKeys []string // valid keys; empty list means open access
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("GLEANER_HOST", "0.0.0.0"),
			Port: envIntOr("GLEANER_PORT", 8080),
			Mode: envOr("GLEANER_MODE", "release"),
		},
		Fetch: FetchConfig{
			MaxTimeout:   envDurationOr("GLEANER_FETCH_TIMEOUT", 30*time.Second),
			MaxBodyBytes: int64(envIntOr("GLEANER_FETCH_MAX_BODY", 10<<20)),
			Proxy:        os.Getenv("GLEANER_PROXY"),
		},
		Exec: ExecConfig{
			DefaultTimeout:    envDurationOr("GLEANER_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:        envDurationOr("GLEANER_MAX_TIMEOUT", 120*time.Second),
			MaxItems:          envIntOr("GLEANER_MAX_ITEMS", 500),
			FallbackThreshold: envIntOr("GLEANER_FALLBACK_THRESHOLD", 5),
		},
		Browser: BrowserConfig{
			Enabled:   envBoolOr("GLEANER_BROWSER_ENABLED", false),
			Headless:  envBoolOr("GLEANER_HEADLESS", true),
			MaxPages:  envIntOr("GLEANER_MAX_PAGES", 5),
			NoSandbox: envBoolOr("GLEANER_NO_SANDBOX", false),
			Bin:       os.Getenv("GLEANER_BROWSER_BIN"),
			Proxy:     os.Getenv("GLEANER_BROWSER_PROXY"),
			BlockedResourceTypes: envSliceOr("GLEANER_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			NavigationTimeout: envDurationOr("GLEANER_NAV_TIMEOUT", 15*time.Second),
		},
		WebAgent: WebAgentConfig{
			BaseURL:        os.Getenv("GLEANER_WEBAGENT_URL"),
			ProbeTimeout:   envDurationOr("GLEANER_WEBAGENT_PROBE_TIMEOUT", 3*time.Second),
			RequestTimeout: envDurationOr("GLEANER_WEBAGENT_TIMEOUT", 60*time.Second),
			MaxSteps:       envIntOr("GLEANER_WEBAGENT_MAX_STEPS", 5),
		},
		Store: StoreConfig{
			Endpoint: os.Getenv("GLEANER_STORE_ENDPOINT"),
			Secret:   os.Getenv("GLEANER_STORE_SECRET"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("GLEANER_AUTH_ENABLED", true),
			APIKeys: envSliceOr("GLEANER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("GLEANER_RATE_RPS", 5.0),
			Burst:             envIntOr("GLEANER_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("GLEANER_LOG_LEVEL", "info"),
			Format: envOr("GLEANER_LOG_FORMAT", "json"),
		},
	}
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
