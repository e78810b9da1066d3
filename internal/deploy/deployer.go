// Package deploy installs and starts the service, either directly on a
// systemd host or through docker compose, and verifies it with one health check.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/stockagent/stockagent/internal/config"
	"github.com/stockagent/stockagent/internal/console"
	"github.com/stockagent/stockagent/internal/events"
)

var (
	ErrNotRoot           = errors.New("deployment must run as root")
	ErrMissingTool       = errors.New("required tool not found")
	ErrNginxConfig       = errors.New("nginx configuration test failed")
	ErrHealthCheckFailed = errors.New("health check failed")
)

// Deployment modes recorded in events.
const (
	ModeBareMetal = "baremetal"
	ModeContainer = "container"
)

// HealthChecker waits a fixed period and probes url once.
type HealthChecker interface {
	WaitAndCheck(ctx context.Context, url string, wait time.Duration) error
}

// EventPublisher receives the outcome of every deployment.
type EventPublisher interface {
	PublishDeploy(ctx context.Context, event events.DeployEvent) error
}

// Options carries what both deployers need.
type Options struct {
	Config    config.DeployConfig
	Runner    Runner
	Health    HealthChecker
	Publisher EventPublisher
	Out       *console.Printer
	Version   string

	// Migrate, when set, runs after the application is installed.
	Migrate func(ctx context.Context) error
}

func (o *Options) defaults() {
	if o.Runner == nil {
		o.Runner = ExecRunner{}
	}
	if o.Out == nil {
		o.Out = console.Discard
	}
}

// checkHealth is the final step of both deployers.
func checkHealth(o Options) Step {
	return Step{
		Name: "Checking service health",
		Run: func(ctx context.Context) error {
			url := o.Config.HealthProbeURL()
			o.Out.Info("Waiting %s before probing %s", o.Config.HealthWait, url)
			if err := o.Health.WaitAndCheck(ctx, url, o.Config.HealthWait); err != nil {
				return fmt.Errorf("%w: %v", ErrHealthCheckFailed, err)
			}
			o.Out.Success("Service is healthy")
			return nil
		},
	}
}

// finish publishes the deploy event and converts the plan result to an error.
func finish(ctx context.Context, o Options, mode string, res Result) error {
	event := events.DeployEvent{
		ID:         uuid.NewString(),
		Mode:       mode,
		Host:       hostname(),
		Version:    o.Version,
		Status:     events.StatusSucceeded,
		Steps:      res.Completed,
		HealthURL:  o.Config.HealthProbeURL(),
		StartedAt:  res.StartedAt.UTC(),
		FinishedAt: res.FinishedAt.UTC(),
	}
	if res.Err != nil {
		event.Status = events.StatusFailed
		event.FailedStep = res.FailedStep
		event.Error = res.Err.Error()
	}

	if o.Publisher != nil {
		// The deployment outcome stands even if the event cannot be sent.
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := o.Publisher.PublishDeploy(pubCtx, event); err != nil {
			slog.Warn("failed to publish deploy event", "error", err)
		}
	}

	if res.Err != nil {
		o.Out.Error("Deployment failed at %q", res.FailedStep)
		return res.Err
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
