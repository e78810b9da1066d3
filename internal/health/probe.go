package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrUnhealthy = errors.New("service is not healthy")

// Probe performs single HTTP liveness checks.
type Probe struct {
	client  *http.Client
	timeout time.Duration
	sleep   func(context.Context, time.Duration) error
}

func NewProbe(timeout time.Duration) *Probe {
	return &Probe{
		client:  &http.Client{},
		timeout: timeout,
		sleep:   Sleep,
	}
}

// Check issues one GET to url. Any 2xx answer is healthy.
func (p *Probe) Check(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %d", ErrUnhealthy, url, resp.StatusCode)
	}
	return nil
}

// WaitAndCheck sleeps for wait, then checks url exactly once. There is no retry.
func (p *Probe) WaitAndCheck(ctx context.Context, url string, wait time.Duration) error {
	if err := p.sleep(ctx, wait); err != nil {
		return err
	}
	return p.Check(ctx, url)
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
