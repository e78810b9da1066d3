package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// PlaceholderJWTSecret is the value shipped in example env files. It must never reach production.
const PlaceholderJWTSecret = "your-jwt-secret-change-this"

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Log       LogConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Quota     QuotaConfig
	Google    GoogleConfig
	Supabase  SupabaseConfig
	JWT       JWTConfig
	APIKeys   APIKeysConfig
	Deploy    DeployConfig
	Monitor   MonitorConfig
}

type ServerConfig struct {
	Host string
	Port int
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional. An empty URL disables event publishing.
type NATSConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type QuotaConfig struct {
	DailyLimit     int
	BurstPerMinute int
}

type GoogleConfig struct {
	ClientID string
}

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
}

type JWTConfig struct {
	Secret string
}

// APIKeysConfig holds third-party keys consumed by the agent process.
type APIKeysConfig struct {
	OpenAI       string
	AlphaVantage string
	Finnhub      string
}

type DeployConfig struct {
	AppName         string
	AppDir          string
	ServiceUser     string
	BinaryPath      string
	EnvFile         string
	UnitPath        string
	NginxSitePath   string
	NginxEnabledDir string
	ServerName      string
	UpstreamPort    int
	HealthPath      string
	HealthURL       string
	HealthWait      time.Duration
	HealthTimeout   time.Duration
	ComposeFile     string
	MemoryMax       string
	Packages        []string
}

// HealthProbeURL is the URL the deployers check after startup.
func (c DeployConfig) HealthProbeURL() string {
	if c.HealthURL != "" {
		return c.HealthURL
	}
	return fmt.Sprintf("http://127.0.0.1:%d%s", c.UpstreamPort, c.HealthPath)
}

type MonitorConfig struct {
	TopProcesses   int
	JournalLines   int
	SampleInterval time.Duration
}

func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads envPath (if present) then the process environment, which wins.
func LoadFile(envPath string) (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(envPath), dotenv.ParserEnv("", ".", envKey))

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		RateLimit: RateLimitConfig{
			Requests: k.Int("rate.limit.requests"),
		},
		Quota: QuotaConfig{
			DailyLimit:     k.Int("quota.daily.limit"),
			BurstPerMinute: k.Int("quota.burst.per.minute"),
		},
		Google: GoogleConfig{
			ClientID: k.String("google.client.id"),
		},
		Supabase: SupabaseConfig{
			URL:            k.String("supabase.url"),
			ServiceRoleKey: k.String("supabase.service.role.key"),
		},
		JWT: JWTConfig{
			Secret: k.String("jwt.secret"),
		},
		APIKeys: APIKeysConfig{
			OpenAI:       k.String("openai.api.key"),
			AlphaVantage: k.String("alpha.vantage.api.key"),
			Finnhub:      k.String("finnhub.api.key"),
		},
		Deploy: DeployConfig{
			AppName:         k.String("deploy.app.name"),
			AppDir:          k.String("deploy.app.dir"),
			ServiceUser:     k.String("deploy.service.user"),
			BinaryPath:      k.String("deploy.binary.path"),
			EnvFile:         k.String("deploy.env.file"),
			UnitPath:        k.String("deploy.unit.path"),
			NginxSitePath:   k.String("deploy.nginx.site.path"),
			NginxEnabledDir: k.String("deploy.nginx.enabled.dir"),
			ServerName:      k.String("deploy.server.name"),
			UpstreamPort:    k.Int("deploy.upstream.port"),
			HealthPath:      k.String("deploy.health.path"),
			HealthURL:       k.String("deploy.health.url"),
			ComposeFile:     k.String("deploy.compose.file"),
			MemoryMax:       k.String("deploy.memory.max"),
			Packages:        strings.Fields(k.String("deploy.packages")),
		},
		Monitor: MonitorConfig{
			TopProcesses: k.Int("monitor.top.processes"),
			JournalLines: k.Int("monitor.journal.lines"),
		},
	}

	applyDefaults(cfg)

	// Parse durations
	if cfg.RateLimit.Window, err = parseDuration(k, "rate.limit.window", "1m"); err != nil {
		return nil, err
	}
	if cfg.Deploy.HealthWait, err = parseDuration(k, "deploy.health.wait", "10s"); err != nil {
		return nil, err
	}
	if cfg.Deploy.HealthTimeout, err = parseDuration(k, "deploy.health.timeout", "5s"); err != nil {
		return nil, err
	}
	if cfg.Monitor.SampleInterval, err = parseDuration(k, "monitor.sample.interval", "30s"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "postgres"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "postgres"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "require"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 10
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 60
	}
	if cfg.Quota.DailyLimit == 0 {
		cfg.Quota.DailyLimit = 3
	}
	if cfg.Quota.BurstPerMinute == 0 {
		cfg.Quota.BurstPerMinute = 10
	}

	d := &cfg.Deploy
	if d.AppName == "" {
		d.AppName = "stockagent"
	}
	if d.AppDir == "" {
		d.AppDir = "/opt/" + d.AppName
	}
	if d.ServiceUser == "" {
		d.ServiceUser = d.AppName
	}
	if d.BinaryPath == "" {
		d.BinaryPath = "./bin/api"
	}
	if d.EnvFile == "" {
		d.EnvFile = ".env"
	}
	if d.UnitPath == "" {
		d.UnitPath = "/etc/systemd/system/" + d.AppName + ".service"
	}
	if d.NginxSitePath == "" {
		d.NginxSitePath = "/etc/nginx/sites-available/" + d.AppName
	}
	if d.NginxEnabledDir == "" {
		d.NginxEnabledDir = "/etc/nginx/sites-enabled"
	}
	if d.ServerName == "" {
		d.ServerName = "_"
	}
	if d.UpstreamPort == 0 {
		d.UpstreamPort = cfg.Server.Port
	}
	if d.HealthPath == "" {
		d.HealthPath = "/health"
	}
	if d.ComposeFile == "" {
		d.ComposeFile = "docker-compose.yml"
	}
	if d.MemoryMax == "" {
		d.MemoryMax = "1536M"
	}
	if len(d.Packages) == 0 {
		d.Packages = []string{"nginx", "curl", "ca-certificates"}
	}

	if cfg.Monitor.TopProcesses == 0 {
		cfg.Monitor.TopProcesses = 10
	}
	if cfg.Monitor.JournalLines == 0 {
		cfg.Monitor.JournalLines = 20
	}
}

func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", "."))
}

func parseDuration(k *koanf.Koanf, key, fallback string) (time.Duration, error) {
	raw := k.String(key)
	if raw == "" {
		raw = fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
