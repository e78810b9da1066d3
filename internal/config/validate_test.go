package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		DB: DBConfig{
			Host: "db.example.supabase.co", Port: 5432, User: "postgres",
			Password: "secret", Name: "postgres", SSLMode: "require", MaxConns: 10,
		},
		Redis:    RedisConfig{Host: "localhost", Port: 6379},
		Quota:    QuotaConfig{DailyLimit: 3, BurstPerMinute: 10},
		Google:   GoogleConfig{ClientID: "1234.apps.googleusercontent.com"},
		Supabase: SupabaseConfig{URL: "https://example.supabase.co", ServiceRoleKey: "service-role"},
		JWT:      JWTConfig{Secret: "jwt-secret-that-is-at-least-32-characters"},
		Deploy: DeployConfig{
			AppName:         "stockagent",
			AppDir:          "/opt/stockagent",
			UnitPath:        "/etc/systemd/system/stockagent.service",
			NginxSitePath:   "/etc/nginx/sites-available/stockagent",
			NginxEnabledDir: "/etc/nginx/sites-enabled",
			UpstreamPort:    8000,
			HealthPath:      "/health",
			HealthWait:      10 * time.Second,
			HealthTimeout:   5 * time.Second,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_PlaceholderJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Secret = PlaceholderJWTSecret
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "placeholder") {
		t.Fatalf("expected placeholder error, got: %v", err)
	}
}

func TestValidate_JWTSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Secret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got: %v", err)
	}
}

func TestValidate_SupabaseURLMustBeAbsolute(t *testing.T) {
	cfg := validConfig()
	cfg.Supabase.URL = "example.supabase.co"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "absolute URL") {
		t.Fatalf("expected absolute URL error, got: %v", err)
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.DB.Port = 99999
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected port validation errors")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected SERVER_PORT error in: %v", err)
	}
	if !strings.Contains(err.Error(), "DB_PORT") {
		t.Errorf("expected DB_PORT error in: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 0},
		DB:     DBConfig{Port: 5432},
		Redis:  RedisConfig{Port: 6379},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"GOOGLE_CLIENT_ID", "SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", "JWT_SECRET", "SERVER_PORT", "QUOTA_DAILY_LIMIT"} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}

func TestValidateDeploy_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateDeploy(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateDeploy_RelativePaths(t *testing.T) {
	cfg := validConfig()
	cfg.Deploy.UnitPath = "stockagent.service"
	cfg.Deploy.HealthPath = "health"
	err := cfg.ValidateDeploy()
	if err == nil {
		t.Fatal("expected deploy validation errors")
	}
	for _, substr := range []string{"DEPLOY_UNIT_PATH", "DEPLOY_HEALTH_PATH"} {
		if !strings.Contains(err.Error(), substr) {
			t.Errorf("expected %q in error: %v", substr, err)
		}
	}
}

func TestValidateDeploy_StableErrorOrder(t *testing.T) {
	cfg := validConfig()
	cfg.Deploy.AppDir = "opt/stockagent"
	cfg.Deploy.UnitPath = "unit"
	cfg.Deploy.NginxSitePath = "site"
	cfg.Deploy.NginxEnabledDir = "enabled"

	first := cfg.ValidateDeploy()
	if first == nil {
		t.Fatal("expected deploy validation errors")
	}
	for i := 0; i < 20; i++ {
		if got := cfg.ValidateDeploy(); got.Error() != first.Error() {
			t.Fatalf("error text changed between runs:\n%v\n%v", first, got)
		}
	}

	msg := first.Error()
	keys := []string{"DEPLOY_APP_DIR", "DEPLOY_UNIT_PATH", "DEPLOY_NGINX_SITE_PATH", "DEPLOY_NGINX_ENABLED_DIR"}
	prev := -1
	for _, k := range keys {
		idx := strings.Index(msg, k+" must")
		if idx <= prev {
			t.Fatalf("expected %s after the previous key in: %v", k, msg)
		}
		prev = idx
	}
}

func TestValidateDeploy_AppNameWithSlash(t *testing.T) {
	cfg := validConfig()
	cfg.Deploy.AppName = "../etc"
	err := cfg.ValidateDeploy()
	if err == nil || !strings.Contains(err.Error(), "DEPLOY_APP_NAME") {
		t.Fatalf("expected DEPLOY_APP_NAME error, got: %v", err)
	}
}
