package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/stockagent/stockagent/internal/database"
	"github.com/stockagent/stockagent/internal/events"
	iredis "github.com/stockagent/stockagent/internal/redis"
)

// connections opened lazily by subcommands and closed by close.
type connections struct {
	pool  *pgxpool.Pool
	redis *goredis.Client
	nats  *events.Client
}

func (a *app) postgres(ctx context.Context, c *connections) (*pgxpool.Pool, error) {
	if c.pool != nil {
		return c.pool, nil
	}
	pool, err := database.NewPostgresPool(ctx, a.cfg.DB)
	if err != nil {
		return nil, err
	}
	c.pool = pool
	return pool, nil
}

// optionalRedis returns nil when Redis is unreachable.
func (a *app) optionalRedis(ctx context.Context, c *connections) *goredis.Client {
	if c.redis != nil {
		return c.redis
	}
	rdb, err := iredis.NewClient(ctx, a.cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, continuing without it", "error", err)
		return nil
	}
	c.redis = rdb
	return rdb
}

// publisher returns a nil-safe publisher. Without NATS_URL events are dropped.
func (a *app) publisher(ctx context.Context, c *connections) *events.Publisher {
	if a.cfg.NATS.URL == "" {
		return nil
	}
	if c.nats == nil {
		client, err := events.NewClient(ctx, a.cfg.NATS)
		if err != nil {
			slog.Warn("nats unavailable, events disabled", "error", err)
			return nil
		}
		c.nats = client
	}
	return events.NewPublisher(c.nats.JetStream())
}

func (c *connections) close() {
	if c.nats != nil {
		c.nats.Close()
	}
	if c.redis != nil {
		c.redis.Close()
	}
	if c.pool != nil {
		c.pool.Close()
	}
}
