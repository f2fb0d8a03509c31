package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8009" {
		t.Errorf("expected port 8009, got %s", cfg.Port)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("expected 2s poll interval, got %s", cfg.PollInterval)
	}
	if cfg.StateTTL != 24*time.Hour {
		t.Errorf("expected 24h state TTL, got %s", cfg.StateTTL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("expected wildcard CORS origin, got %v", cfg.CORSOrigins)
	}
	if cfg.RunMigrations {
		t.Error("migrations should be opt-in")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RUN_MIGRATIONS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %s", cfg.PollInterval)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if !cfg.RunMigrations {
		t.Error("expected RUN_MIGRATIONS=true to be honoured")
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "0s")
	if _, err := Load(); err == nil {
		t.Error("expected error for zero poll interval")
	}

	t.Setenv("POLL_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected parse error for malformed duration")
	}
}
