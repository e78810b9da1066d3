package users

import (
	"context"
	"log/slog"
	"time"
)

// untilNextDay returns the time left until the next UTC midnight.
func untilNextDay(now time.Time) time.Duration {
	return StartOfDay(now).Add(24 * time.Hour).Sub(now)
}

// RunDailyReset zeroes stale counters at startup and after every UTC midnight
// until ctx is cancelled. Counters also roll over lazily on consumption, so a
// missed run only leaves stale numbers in listings.
func (s *Service) RunDailyReset(ctx context.Context, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	for {
		if _, err := s.ResetStale(ctx, now()); err != nil && ctx.Err() == nil {
			slog.Error("resetting stale quotas", "error", err)
		}

		timer := time.NewTimer(untilNextDay(now()) + time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
