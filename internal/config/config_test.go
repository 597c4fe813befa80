package config

import (
	"errors"
	"testing"
	"time"

	"github.com/codescope/internal/domain"
)

func validConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:       "http://localhost:8000",
			WSBaseURL:     "ws://localhost:8000",
			Timeout:       30 * time.Second,
			UploadTimeout: 2 * time.Minute,
			MaxRetries:    2,
		},
		Monitor: MonitorConfig{
			PollInterval:   2 * time.Second,
			ResultsTimeout: 30 * time.Second,
		},
		Chat: ChatConfig{
			Timeout:        time.Minute,
			TypingInterval: 20 * time.Millisecond,
		},
		History: HistoryConfig{
			Path:       "/tmp/history.db",
			MaxEntries: 50,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "malformed base URL",
			mutate:  func(c *Config) { c.Backend.BaseURL = "not a url" },
			wantErr: true,
		},
		{
			name:    "timeout too small",
			mutate:  func(c *Config) { c.Backend.Timeout = 100 * time.Millisecond },
			wantErr: true,
		},
		{
			name:    "upload timeout too small",
			mutate:  func(c *Config) { c.Backend.UploadTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "poll interval too small",
			mutate:  func(c *Config) { c.Monitor.PollInterval = 10 * time.Millisecond },
			wantErr: true,
		},
		{
			name:    "history cap too small",
			mutate:  func(c *Config) { c.History.MaxEntries = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestDeriveWSBaseURL(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
	}{
		{"http://localhost:8000", "ws://localhost:8000"},
		{"https://analysis.example.com", "wss://analysis.example.com"},
		{"ws://already-ws:9000", "ws://already-ws:9000"},
	}

	for _, tt := range tests {
		if got := deriveWSBaseURL(tt.baseURL); got != tt.want {
			t.Errorf("deriveWSBaseURL(%q) = %q, want %q", tt.baseURL, got, tt.want)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q, want default", cfg.Backend.BaseURL)
	}
	if cfg.Backend.WSBaseURL != "ws://localhost:8000" {
		t.Errorf("WSBaseURL = %q, want derived ws URL", cfg.Backend.WSBaseURL)
	}
	if cfg.Monitor.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.Monitor.PollInterval)
	}
}
