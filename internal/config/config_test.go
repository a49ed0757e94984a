package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LoginMaxAttempts != 5 {
		t.Errorf("LoginMaxAttempts = %d, want 5", cfg.LoginMaxAttempts)
	}
	if cfg.LoginWindowSeconds != 900 {
		t.Errorf("LoginWindowSeconds = %d, want 900", cfg.LoginWindowSeconds)
	}
	if cfg.RememberMeDays != 30 {
		t.Errorf("RememberMeDays = %d, want 30", cfg.RememberMeDays)
	}
	if cfg.SessionIdleMinutes != 30 {
		t.Errorf("SessionIdleMinutes = %d, want 30", cfg.SessionIdleMinutes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("LOGIN_WINDOW_SECONDS", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.LoginMaxAttempts != 3 {
		t.Errorf("LoginMaxAttempts = %d, want 3", cfg.LoginMaxAttempts)
	}
	if cfg.LoginWindowSeconds != 60 {
		t.Errorf("LoginWindowSeconds = %d, want 60", cfg.LoginWindowSeconds)
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("LOGIN_MAX_ATTEMPTS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LoginMaxAttempts != 5 {
		t.Errorf("LoginMaxAttempts = %d, want default 5", cfg.LoginMaxAttempts)
	}
}

func TestValidateReleaseMode(t *testing.T) {
	cfg := &Config{
		GinMode:            "release",
		LoginMaxAttempts:   5,
		LoginWindowSeconds: 900,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing SESSION_SECRET in release mode")
	}

	cfg.SessionSecret = "secret"
	cfg.DatabaseURL = "postgres://localhost/sentinel"
	cfg.SessionRedisURL = "redis://127.0.0.1:6379/1"
	cfg.QueueRedisURL = "redis://127.0.0.1:6379/0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	cfg := &Config{
		GinMode:            "debug",
		LoginMaxAttempts:   0,
		LoginWindowSeconds: 900,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero LOGIN_MAX_ATTEMPTS")
	}

	cfg.LoginMaxAttempts = 5
	cfg.LoginWindowSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative LOGIN_WINDOW_SECONDS")
	}
}
