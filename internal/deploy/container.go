package deploy

import (
	"context"
	"fmt"
	"strings"
)

// Container deploys the service with docker compose.
type Container struct {
	opts    Options
	compose []string
}

func NewContainer(opts Options) *Container {
	opts.defaults()
	return &Container{opts: opts}
}

func (c *Container) Deploy(ctx context.Context) (Result, error) {
	c.opts.Out.Header("Deploying %s (containers)", c.opts.Config.AppName)
	res := NewPlan(c.opts.Out, c.Steps()...).Execute(ctx)
	if err := finish(ctx, c.opts, ModeContainer, res); err != nil {
		return res, err
	}
	c.opts.Out.Success("Containers for %s are up", c.opts.Config.AppName)
	c.opts.Out.Plain("  Logs:   %s logs -f\n", strings.Join(c.composeCmd(), " "))
	c.opts.Out.Plain("  Health: %s\n", c.opts.Config.HealthProbeURL())
	return res, nil
}

func (c *Container) Steps() []Step {
	return []Step{
		{Name: "Checking container tooling", Run: c.detectTooling},
		{Name: "Verifying environment file", Run: func(context.Context) error {
			_, err := verifyEnv(c.opts.Config.EnvFile)
			return err
		}},
		{Name: "Building images", Run: c.runCompose("build")},
		{Name: "Starting containers", Run: c.runCompose("up", "-d")},
		checkHealth(c.opts),
		{Name: "Listing containers", Run: c.listContainers},
	}
}

// detectTooling prefers the docker compose plugin and falls back to docker-compose.
func (c *Container) detectTooling(ctx context.Context) error {
	r := c.opts.Runner
	if _, err := r.LookPath("docker"); err != nil {
		return fmt.Errorf("%w: docker", ErrMissingTool)
	}
	if _, err := r.Run(ctx, "docker", "compose", "version"); err == nil {
		c.compose = []string{"docker", "compose"}
		return nil
	}
	if _, err := r.LookPath("docker-compose"); err == nil {
		c.compose = []string{"docker-compose"}
		return nil
	}
	return fmt.Errorf("%w: docker compose plugin or docker-compose", ErrMissingTool)
}

func (c *Container) composeCmd() []string {
	if len(c.compose) == 0 {
		return []string{"docker", "compose"}
	}
	return c.compose
}

func (c *Container) execCompose(ctx context.Context, args ...string) ([]byte, error) {
	cmd := c.composeCmd()
	full := append(append([]string{}, cmd[1:]...), "-f", c.opts.Config.ComposeFile)
	full = append(full, args...)
	return c.opts.Runner.Run(ctx, cmd[0], full...)
}

func (c *Container) runCompose(args ...string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.execCompose(ctx, args...)
		return err
	}
}

func (c *Container) listContainers(ctx context.Context) error {
	out, err := c.execCompose(ctx, "ps")
	if err != nil {
		return err
	}
	c.opts.Out.Plain("%s\n", strings.TrimSpace(string(out)))
	return nil
}
