package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Dashboard.FreshMinutes != 5 {
		t.Errorf("FreshMinutes = %d, want 5", cfg.Dashboard.FreshMinutes)
	}
	if cfg.Dashboard.ExpiryMinutes != 30 {
		t.Errorf("ExpiryMinutes = %d, want 30", cfg.Dashboard.ExpiryMinutes)
	}
	if cfg.Dashboard.SeriesLibraryLimit != 2 {
		t.Errorf("SeriesLibraryLimit = %d, want 2", cfg.Dashboard.SeriesLibraryLimit)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Logging.Level = %q, want INFO", cfg.Logging.Level)
	}
	if cfg.Logging.File == "" {
		t.Error("Logging.File is empty, want a default path")
	}
}

func TestTTLAccessors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Dashboard.FreshMinutes = 7
	cfg.Dashboard.ExpiryMinutes = 45

	if got := cfg.FreshTTL(); got != 7*time.Minute {
		t.Errorf("FreshTTL() = %v, want 7m", got)
	}
	if got := cfg.ExpiryTTL(); got != 45*time.Minute {
		t.Errorf("ExpiryTTL() = %v, want 45m", got)
	}
}

func TestIsConfigured(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.IsConfigured() {
		t.Error("IsConfigured() = true for empty server config")
	}

	cfg.Server.URL = "http://librarian.local:9090"
	if cfg.IsConfigured() {
		t.Error("IsConfigured() = true without API key")
	}

	cfg.Server.APIKey = "token"
	if !cfg.IsConfigured() {
		t.Error("IsConfigured() = false with URL and API key set")
	}
}
