package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.StudioName != "Studio XV" {
		t.Errorf("expected default studio name, got %s", cfg.StudioName)
	}
	if cfg.Timezone != "Europe/London" {
		t.Errorf("expected Europe/London default, got %s", cfg.Timezone)
	}
	if cfg.BookingsTable != "bookings" {
		t.Errorf("expected default bookings table, got %s", cfg.BookingsTable)
	}
	if cfg.ReminderPollInterval != 15*time.Minute {
		t.Errorf("expected 15m poll interval, got %s", cfg.ReminderPollInterval)
	}
	if cfg.ReminderPageSize != 50 {
		t.Errorf("expected page size 50, got %d", cfg.ReminderPageSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_abc")
	t.Setenv("REMINDER_POLL_INTERVAL", "5m")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port override, got %s", cfg.Port)
	}
	if cfg.StripeSecretKey != "sk_test_abc" {
		t.Errorf("expected stripe key override, got %s", cfg.StripeSecretKey)
	}
	if cfg.ReminderPollInterval != 5*time.Minute {
		t.Errorf("expected 5m poll interval, got %s", cfg.ReminderPollInterval)
	}
	if !cfg.RedisTLS {
		t.Error("expected redis TLS enabled")
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://studioxv.co.uk, https://www.studioxv.co.uk,")

	cfg := Load()
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.CORSAllowedOrigins[1] != "https://www.studioxv.co.uk" {
		t.Errorf("expected trimmed origin, got %q", cfg.CORSAllowedOrigins[1])
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("REMINDER_POLL_INTERVAL", "not-a-duration")

	cfg := Load()
	if cfg.ReminderPollInterval != 15*time.Minute {
		t.Errorf("expected fallback to 15m, got %s", cfg.ReminderPollInterval)
	}
}
