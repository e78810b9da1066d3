package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter implements a Redis sorted-set sliding window.
// Each key holds one member per accepted request, scored by its time in ms.
type Limiter struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewLimiter creates a limiter whose keys are namespaced by prefix.
func NewLimiter(rdb redis.Cmdable, prefix string) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix, now: time.Now}
}

// Allow checks whether key is under max requests in the trailing window.
// If under the limit it records the request and returns true.
func (l *Limiter) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	k := l.prefix + key
	now := l.now()
	windowStart := now.Add(-window).UnixMilli()

	pipe := l.rdb.Pipeline()

	// Remove entries older than the window
	pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(windowStart, 10))

	// Count current entries in the window
	countCmd := pipe.ZCard(ctx, k)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limiter pipeline (clean+count): %w", err)
	}

	count := countCmd.Val()
	if count >= int64(max) {
		return false, nil
	}

	// Under limit: add new entry and refresh TTL
	pipe2 := l.rdb.Pipeline()
	member := fmt.Sprintf("%d:%d", now.UnixNano(), count)
	pipe2.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	pipe2.Expire(ctx, k, window+time.Second)

	if _, err := pipe2.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limiter pipeline (add): %w", err)
	}

	return true, nil
}

// Usage returns the number of requests recorded for key in the trailing window.
func (l *Limiter) Usage(ctx context.Context, key string, window time.Duration) (int, error) {
	k := l.prefix + key
	now := l.now()
	from := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)
	to := strconv.FormatInt(now.UnixMilli(), 10)

	count, err := l.rdb.ZCount(ctx, k, from, to).Result()
	if err != nil {
		return 0, fmt.Errorf("getting window usage: %w", err)
	}
	return int(count), nil
}
