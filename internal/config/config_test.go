package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.AssignmentScope != ScopePerTask {
		t.Errorf("assignment scope = %q, want %q", cfg.AssignmentScope, ScopePerTask)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("allowed origins = %v, want 2 defaults", cfg.AllowedOrigins)
	}
	if cfg.Production() {
		t.Error("default environment should not be production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CASITA_PORT", "9000")
	t.Setenv("CASITA_ENV", "production")
	t.Setenv("CASITA_ALLOWED_ORIGINS", "https://casita.example.com, https://app.example.com")
	t.Setenv("CASITA_ASSIGNMENT_SCOPE", "per-user-day")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("port = %q, want 9000", cfg.Port)
	}
	if !cfg.Production() {
		t.Error("expected production mode")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://app.example.com" {
		t.Errorf("allowed origins = %v", cfg.AllowedOrigins)
	}
	if cfg.AssignmentScope != ScopePerUserDay {
		t.Errorf("assignment scope = %q, want %q", cfg.AssignmentScope, ScopePerUserDay)
	}
}

func TestLoadRejectsUnknownScope(t *testing.T) {
	t.Setenv("CASITA_ASSIGNMENT_SCOPE", "per-galaxy")

	cfg := Load()
	if cfg.AssignmentScope != ScopePerTask {
		t.Errorf("assignment scope = %q, want fallback %q", cfg.AssignmentScope, ScopePerTask)
	}
}
