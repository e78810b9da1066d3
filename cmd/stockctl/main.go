// Command stockctl deploys, monitors and maintains the stock recommendation service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stockagent/stockagent/internal/config"
	"github.com/stockagent/stockagent/internal/console"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

type app struct {
	envFile string
	noColor bool

	cfg *config.Config
	out *console.Printer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := a.rootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		out := a.out
		if out == nil {
			out = console.Stdout()
		}
		out.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stockctl",
		Short:         "Operate the stock recommendation agent",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(a.envFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if a.noColor {
				a.out = console.New(cmd.OutOrStdout(), true)
			} else {
				a.out = console.Stdout()
			}
			setupLogger(cfg.Log)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "path to the .env file")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		a.deployCmd(),
		a.deployContainerCmd(),
		a.monitorCmd(),
		a.healthcheckCmd(),
		a.migrateCmd(),
		a.schemaCmd(),
		a.usersCmd(),
		a.historyCmd(),
	)
	return root
}

// setupLogger sends diagnostics to stderr so they do not interleave with reports.
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
		opts.Level = slog.LevelWarn
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
