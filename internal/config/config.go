// Package config builds the process configuration once at startup.
// Components receive *Config explicitly; there is no ambient global.
package config

import (
	"os"
	"strings"
)

// Assignment-scope policy for individual tasks. PerTask allows one active
// assignment per (task, user, day); PerUserDay tightens that to one active
// individual-task assignment per (user, day) across all tasks.
const (
	ScopePerTask    = "per-task"
	ScopePerUserDay = "per-user-day"
)

type Config struct {
	Port            string
	DBPath          string
	JWTSecret       string
	AllowedOrigins  []string
	Environment     string // "development" or "production"
	UploadDir       string
	AssignmentScope string
	LogLevel        string

	// First-run provisioning: when set and no superadmin exists yet, an
	// account with these credentials is created at startup.
	BootstrapUsername string
	BootstrapPassword string
}

// Load reads configuration from environment variables, applying defaults
// suitable for local development.
func Load() *Config {
	cfg := &Config{
		Port:            envOr("CASITA_PORT", "8080"),
		DBPath:          envOr("CASITA_DB_PATH", "casita.db"),
		JWTSecret:       envOr("CASITA_JWT_SECRET", "dev-secret-change-me"),
		Environment:     envOr("CASITA_ENV", "development"),
		UploadDir:       envOr("CASITA_UPLOAD_DIR", "uploads"),
		AssignmentScope: envOr("CASITA_ASSIGNMENT_SCOPE", ScopePerTask),
		LogLevel:        envOr("CASITA_LOG_LEVEL", "info"),

		BootstrapUsername: os.Getenv("CASITA_BOOTSTRAP_USERNAME"),
		BootstrapPassword: os.Getenv("CASITA_BOOTSTRAP_PASSWORD"),
	}

	origins := envOr("CASITA_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if cfg.AssignmentScope != ScopePerUserDay {
		cfg.AssignmentScope = ScopePerTask
	}
	return cfg
}

// Production reports whether the process runs with production cookie policy
// (Secure, SameSite=None for cross-site frontends).
func (c *Config) Production() bool {
	return c.Environment == "production"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
