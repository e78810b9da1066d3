package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stockagent/stockagent/internal/api"
	"github.com/stockagent/stockagent/internal/config"
	"github.com/stockagent/stockagent/internal/database"
	"github.com/stockagent/stockagent/internal/events"
	"github.com/stockagent/stockagent/internal/health"
	mw "github.com/stockagent/stockagent/internal/middleware"
	"github.com/stockagent/stockagent/internal/monitor"
	"github.com/stockagent/stockagent/internal/quota"
	iredis "github.com/stockagent/stockagent/internal/redis"
	"github.com/stockagent/stockagent/internal/server"
	"github.com/stockagent/stockagent/internal/users"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting stock recommendation api", "version", version)

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional
	var (
		natsClient *events.Client
		publisher  *events.Publisher
	)
	if cfg.NATS.URL != "" {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = events.NewPublisher(natsClient.JetStream())
	} else {
		slog.Warn("NATS_URL not set, events disabled")
	}

	// Latest deploy record
	deployStore := events.NewDeployStore(redisClient)
	if natsClient != nil {
		consumer := events.NewDeployConsumer(natsClient.JetStream(), deployStore)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("deploy consumer stopped", "error", err)
			}
		}()
	}

	// Host sampling
	sampler := monitor.NewSampler(monitor.NewCollector(cfg.Monitor.TopProcesses), publisher, cfg.Monitor.SampleInterval)
	go sampler.Run(ctx)

	// Daily quota rollover
	userSvc := users.NewService(users.NewRepository(pool), cfg.Quota.DailyLimit)
	go userSvc.RunDailyReset(ctx, nil)

	// Readiness
	checker := health.NewChecker()
	checker.Register("database", func(ctx context.Context) error {
		return database.HealthCheck(ctx, pool)
	})
	checker.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	if natsClient != nil {
		checker.Register("nats", func(context.Context) error {
			if !natsClient.Healthy() {
				return events.ErrDisconnected
			}
			return nil
		})
	} else {
		checker.Register("nats", nil)
	}

	rateLimiter := mw.NewRateLimiter(
		quota.NewLimiter(redisClient, "stockagent:ratelimit:"),
		cfg.RateLimit.Requests,
		cfg.RateLimit.Window,
	)

	router := api.NewRouter(checker, deployStore, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimiter:        rateLimiter.Middleware,
		Version:            version,
		DailyLimit:         userSvc.DailyLimit(),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
