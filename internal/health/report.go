package health

import (
	"context"
	"sort"
	"time"
)

// Status values reported per component.
const (
	StatusHealthy       = "healthy"
	StatusUnhealthy     = "unhealthy"
	StatusDegraded      = "degraded"
	StatusNotConfigured = "not configured"
)

// CheckFunc returns nil when the dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Checker aggregates dependency checks into a readiness report.
type Checker struct {
	checks map[string]CheckFunc
	now    func() time.Time
}

func NewChecker() *Checker {
	return &Checker{checks: make(map[string]CheckFunc), now: time.Now}
}

// Register adds a named dependency. A nil fn is reported as not configured.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.checks[name] = fn
}

// Report is the JSON body of the readiness endpoint.
type Report struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Healthy reports whether every configured component passed.
func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Run executes every check with the given per-check timeout.
func (c *Checker) Run(ctx context.Context, timeout time.Duration) Report {
	report := Report{
		Status:     StatusHealthy,
		Timestamp:  c.now().UTC(),
		Components: make(map[string]string, len(c.checks)),
	}

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fn := c.checks[name]
		if fn == nil {
			report.Components[name] = StatusNotConfigured
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := fn(cctx)
		cancel()
		if err != nil {
			report.Components[name] = StatusUnhealthy
			report.Status = StatusDegraded
			continue
		}
		report.Components[name] = StatusHealthy
	}
	return report
}
