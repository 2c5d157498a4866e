package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8082" {
		t.Errorf("Port = %q, want 8082", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if cfg.RequestsPerMinute != 120 {
		t.Errorf("RequestsPerMinute = %d, want 120", cfg.RequestsPerMinute)
	}
	if cfg.ReportCacheTTL != 30*time.Second {
		t.Errorf("ReportCacheTTL = %v, want 30s", cfg.ReportCacheTTL)
	}
	if cfg.ReportCacheSize != 256 {
		t.Errorf("ReportCacheSize = %d, want 256", cfg.ReportCacheSize)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "pretty")
	t.Setenv("REQUESTS_PER_MINUTE", "10")
	t.Setenv("REPORT_CACHE_TTL", "5s")
	t.Setenv("REPORT_CACHE_SIZE", "16")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "pretty" {
		t.Errorf("LogFormat = %q, want pretty", cfg.LogFormat)
	}
	if cfg.RequestsPerMinute != 10 {
		t.Errorf("RequestsPerMinute = %d, want 10", cfg.RequestsPerMinute)
	}
	if cfg.ReportCacheTTL != 5*time.Second {
		t.Errorf("ReportCacheTTL = %v, want 5s", cfg.ReportCacheTTL)
	}
	if cfg.ReportCacheSize != 16 {
		t.Errorf("ReportCacheSize = %d, want 16", cfg.ReportCacheSize)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("REQUESTS_PER_MINUTE", "lots")
	t.Setenv("REPORT_CACHE_TTL", "soon")

	cfg := Load()
	if cfg.RequestsPerMinute != 120 {
		t.Errorf("RequestsPerMinute = %d, want the 120 default", cfg.RequestsPerMinute)
	}
	if cfg.ReportCacheTTL != 30*time.Second {
		t.Errorf("ReportCacheTTL = %v, want the 30s default", cfg.ReportCacheTTL)
	}
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Helper()
		cfg := Load()
		cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "test.db")
		return cfg
	}

	t.Run("defaults pass", func(t *testing.T) {
		if err := base(t).Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("non-numeric port", func(t *testing.T) {
		cfg := base(t)
		cfg.Port = "http"
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "invalid port") {
			t.Fatalf("expected a port error, got %v", err)
		}
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := base(t)
		cfg.Port = "70000"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected an error for port 70000")
		}
	})

	t.Run("empty database path", func(t *testing.T) {
		cfg := base(t)
		cfg.SQLiteDBPath = ""
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "database path") {
			t.Fatalf("expected a database path error, got %v", err)
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := base(t)
		cfg.LogLevel = "verbose"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected an error for log level verbose")
		}
	})

	t.Run("bad log format", func(t *testing.T) {
		cfg := base(t)
		cfg.LogFormat = "json5"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected an error for log format json5")
		}
	})

	t.Run("collects every failure", func(t *testing.T) {
		cfg := base(t)
		cfg.Port = "zero"
		cfg.LogLevel = "loud"
		cfg.RequestsPerMinute = 0
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected an error")
		}
		for _, want := range []string{"invalid port", "invalid log level", "requests per minute"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q missing %q", err, want)
			}
		}
	})

	t.Run("sub-second cache TTL", func(t *testing.T) {
		cfg := base(t)
		cfg.ReportCacheTTL = 100 * time.Millisecond
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected an error for a sub-second TTL")
		}
	})
}
