package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Secrets carried in .env
	if c.Google.ClientID == "" {
		errs = append(errs, "GOOGLE_CLIENT_ID is required")
	}
	if c.Supabase.URL == "" {
		errs = append(errs, "SUPABASE_URL is required")
	} else if u, err := url.Parse(c.Supabase.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "SUPABASE_URL must be an absolute URL")
	}
	if c.Supabase.ServiceRoleKey == "" {
		errs = append(errs, "SUPABASE_SERVICE_ROLE_KEY is required")
	}
	if c.JWT.Secret == PlaceholderJWTSecret {
		errs = append(errs, "JWT_SECRET still has the placeholder value")
	} else if len(c.JWT.Secret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.Quota.DailyLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_DAILY_LIMIT must be at least 1, got %d", c.Quota.DailyLimit))
	}

	if c.DB.Password == "" {
		slog.Warn("DB_PASSWORD is empty")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

// ValidateDeploy checks the settings the deployers write to disk.
func (c *Config) ValidateDeploy() error {
	var errs []string
	d := c.Deploy

	if d.AppName == "" || strings.ContainsAny(d.AppName, "/ ") {
		errs = append(errs, fmt.Sprintf("DEPLOY_APP_NAME must be a plain name, got %q", d.AppName))
	}
	for _, p := range []struct{ key, path string }{
		{"DEPLOY_APP_DIR", d.AppDir},
		{"DEPLOY_UNIT_PATH", d.UnitPath},
		{"DEPLOY_NGINX_SITE_PATH", d.NginxSitePath},
		{"DEPLOY_NGINX_ENABLED_DIR", d.NginxEnabledDir},
	} {
		if !strings.HasPrefix(p.path, "/") {
			errs = append(errs, fmt.Sprintf("%s must be an absolute path, got %q", p.key, p.path))
		}
	}
	if d.UpstreamPort < 1 || d.UpstreamPort > 65535 {
		errs = append(errs, fmt.Sprintf("DEPLOY_UPSTREAM_PORT must be 1–65535, got %d", d.UpstreamPort))
	}
	if !strings.HasPrefix(d.HealthPath, "/") {
		errs = append(errs, fmt.Sprintf("DEPLOY_HEALTH_PATH must start with /, got %q", d.HealthPath))
	}
	if d.HealthWait < 0 {
		errs = append(errs, "DEPLOY_HEALTH_WAIT must not be negative")
	}
	if d.HealthTimeout <= 0 {
		errs = append(errs, "DEPLOY_HEALTH_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return errors.New("deploy config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
