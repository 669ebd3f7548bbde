package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg := Load()

	if cfg.LockoutMaxAttempts != 5 {
		t.Errorf("expected 5 lockout attempts, got %d", cfg.LockoutMaxAttempts)
	}
	if cfg.LockoutWindow != 10*time.Minute {
		t.Errorf("expected 10m lockout window, got %s", cfg.LockoutWindow)
	}
	if cfg.SessionIdleTimeout != 30*time.Minute {
		t.Errorf("expected 30m idle timeout, got %s", cfg.SessionIdleTimeout)
	}
	if len(cfg.JWTSecret) != 32 {
		t.Errorf("expected generated 32 char secret, got %d chars", len(cfg.JWTSecret))
	}
	if cfg.DeferBlockedDisclosure {
		t.Error("expected blocked disclosure before credential check by default")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("LOCKOUT_WINDOW", "15m")
	if got := getEnvDuration("LOCKOUT_WINDOW", time.Minute); got != 15*time.Minute {
		t.Errorf("expected 15m, got %s", got)
	}

	t.Setenv("LOCKOUT_WINDOW", "120")
	if got := getEnvDuration("LOCKOUT_WINDOW", time.Minute); got != 2*time.Minute {
		t.Errorf("expected 2m from seconds, got %s", got)
	}

	t.Setenv("LOCKOUT_WINDOW", "soon")
	if got := getEnvDuration("LOCKOUT_WINDOW", time.Minute); got != time.Minute {
		t.Errorf("expected default for garbage, got %s", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("DEFER_BLOCKED_DISCLOSURE", "yes")
	if !getEnvBool("DEFER_BLOCKED_DISCLOSURE", false) {
		t.Error("expected yes to parse as true")
	}
	t.Setenv("DEFER_BLOCKED_DISCLOSURE", "nope")
	if getEnvBool("DEFER_BLOCKED_DISCLOSURE", true) {
		t.Error("expected unknown value to parse as false")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cfg.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("expected short JWT secret to be rejected")
	}

	cfg.JWTSecret = generateRandomSecret(MinJWTSecretLength)
	cfg.LockoutMaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected zero lockout attempts to be rejected")
	}
}
