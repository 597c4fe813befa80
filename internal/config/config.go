// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/codescope/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Backend configuration for the analysis service.
	Backend BackendConfig

	// Monitor configuration for job lifecycle tracking.
	Monitor MonitorConfig

	// Chat configuration.
	Chat ChatConfig

	// History configuration for the local job history store.
	History HistoryConfig
}

// BackendConfig contains analysis-service connection settings.
type BackendConfig struct {
	// BaseURL is the HTTP base URL of the analysis backend.
	BaseURL string

	// WSBaseURL is the WebSocket base URL for the progress channel.
	// When empty it is derived from BaseURL (http->ws, https->wss).
	WSBaseURL string

	// Timeout is the per-request timeout for API calls.
	Timeout time.Duration

	// UploadTimeout is the timeout for multipart uploads, which can
	// carry large file sets.
	UploadTimeout time.Duration

	// MaxRetries is the number of retries on transient failures.
	MaxRetries int
}

// MonitorConfig contains job monitor settings.
type MonitorConfig struct {
	// PollInterval is the period of the status polling backstop.
	PollInterval time.Duration

	// ResultsTimeout bounds the post-completion results fetch.
	ResultsTimeout time.Duration
}

// ChatConfig contains chat view settings.
type ChatConfig struct {
	// Timeout bounds one chat message round trip.
	Timeout time.Duration

	// TypingInterval is the tick period of the local reveal animation
	// for assistant replies. Replies arrive whole; this is cosmetic.
	TypingInterval time.Duration
}

// HistoryConfig contains local job history settings.
type HistoryConfig struct {
	// Path is the sqlite database file location.
	Path string

	// MaxEntries caps the number of retained jobs; oldest are pruned.
	MaxEntries int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	home, _ := os.UserHomeDir()
	defaultHistory := filepath.Join(home, ".codescope", "history.db")

	cfg := &Config{
		Backend: BackendConfig{
			BaseURL:       getEnvOrDefault("CODESCOPE_BACKEND_URL", "http://localhost:8000"),
			WSBaseURL:     os.Getenv("CODESCOPE_BACKEND_WS_URL"),
			Timeout:       getDurationOrDefault("CODESCOPE_TIMEOUT", 30*time.Second),
			UploadTimeout: getDurationOrDefault("CODESCOPE_UPLOAD_TIMEOUT", 2*time.Minute),
			MaxRetries:    getIntOrDefault("CODESCOPE_MAX_RETRIES", 2),
		},
		Monitor: MonitorConfig{
			PollInterval:   getDurationOrDefault("CODESCOPE_POLL_INTERVAL", 2*time.Second),
			ResultsTimeout: getDurationOrDefault("CODESCOPE_RESULTS_TIMEOUT", 30*time.Second),
		},
		Chat: ChatConfig{
			Timeout:        getDurationOrDefault("CODESCOPE_CHAT_TIMEOUT", 60*time.Second),
			TypingInterval: getDurationOrDefault("CODESCOPE_TYPING_INTERVAL", 20*time.Millisecond),
		},
		History: HistoryConfig{
			Path:       getEnvOrDefault("CODESCOPE_HISTORY_PATH", defaultHistory),
			MaxEntries: getIntOrDefault("CODESCOPE_HISTORY_MAX", 50),
		},
	}

	if cfg.Backend.WSBaseURL == "" {
		cfg.Backend.WSBaseURL = deriveWSBaseURL(cfg.Backend.BaseURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("%w: CODESCOPE_BACKEND_URL is required", domain.ErrInvalidConfig)
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: CODESCOPE_BACKEND_URL must be a valid URL", domain.ErrInvalidConfig)
	}

	if c.Backend.Timeout < time.Second {
		return fmt.Errorf("%w: CODESCOPE_TIMEOUT must be at least 1 second", domain.ErrInvalidConfig)
	}

	if c.Backend.UploadTimeout < time.Second {
		return fmt.Errorf("%w: CODESCOPE_UPLOAD_TIMEOUT must be at least 1 second", domain.ErrInvalidConfig)
	}

	if c.Monitor.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("%w: CODESCOPE_POLL_INTERVAL must be at least 100ms", domain.ErrInvalidConfig)
	}

	if c.History.MaxEntries < 1 {
		return fmt.Errorf("%w: CODESCOPE_HISTORY_MAX must be at least 1", domain.ErrInvalidConfig)
	}

	return nil
}

// deriveWSBaseURL maps an HTTP base URL to its WebSocket counterpart.
func deriveWSBaseURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}

// Helper functions for reading environment variables

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		// Try parsing as seconds first (e.g., "15")
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		// Try parsing as duration string (e.g., "15s", "1m")
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
