package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockagent/stockagent/internal/database"
	"github.com/stockagent/stockagent/internal/deploy"
	"github.com/stockagent/stockagent/internal/health"
)

type deployFlags struct {
	binary      string
	composeFile string
	migrate     bool
	healthWait  time.Duration
}

func (f *deployFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.healthWait, "health-wait", 0, "override the wait before the health check")
}

func (a *app) deployOptions(ctx context.Context, c *connections, f deployFlags) (deploy.Options, error) {
	if f.binary != "" {
		a.cfg.Deploy.BinaryPath = f.binary
	}
	if f.composeFile != "" {
		a.cfg.Deploy.ComposeFile = f.composeFile
	}
	if f.healthWait > 0 {
		a.cfg.Deploy.HealthWait = f.healthWait
	}
	if err := a.cfg.ValidateDeploy(); err != nil {
		return deploy.Options{}, err
	}

	opts := deploy.Options{
		Config:  a.cfg.Deploy,
		Runner:  deploy.ExecRunner{},
		Health:  health.NewProbe(a.cfg.Deploy.HealthTimeout),
		Out:     a.out,
		Version: version,
	}
	if pub := a.publisher(ctx, c); pub != nil {
		opts.Publisher = pub
	}
	if f.migrate {
		dsn := a.cfg.DB.DSN()
		opts.Migrate = func(context.Context) error {
			return database.RunMigrations(dsn)
		}
	}
	return opts, nil
}

func (a *app) deployCmd() *cobra.Command {
	var f deployFlags
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Install and start the service under systemd behind nginx (requires root)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &connections{}
			defer c.close()

			opts, err := a.deployOptions(cmd.Context(), c, f)
			if err != nil {
				return err
			}
			_, err = deploy.NewBareMetal(opts).Deploy(cmd.Context())
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.binary, "binary", "", "path of the api binary to install")
	cmd.Flags().BoolVar(&f.migrate, "migrate", false, "apply database migrations before starting the service")
	return cmd
}

func (a *app) deployContainerCmd() *cobra.Command {
	var f deployFlags
	cmd := &cobra.Command{
		Use:   "deploy-container",
		Short: "Build and start the service with docker compose",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &connections{}
			defer c.close()

			opts, err := a.deployOptions(cmd.Context(), c, f)
			if err != nil {
				return err
			}
			_, err = deploy.NewContainer(opts).Deploy(cmd.Context())
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&f.composeFile, "file", "f", "", "compose file (default from DEPLOY_COMPOSE_FILE)")
	return cmd
}
