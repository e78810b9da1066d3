package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockagent/stockagent/internal/deploy"
	"github.com/stockagent/stockagent/internal/events"
	"github.com/stockagent/stockagent/internal/health"
	"github.com/stockagent/stockagent/internal/monitor"
)

func (a *app) monitorCmd() *cobra.Command {
	var (
		service   string
		noService bool
		publish   bool
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print memory, processes, disk, service status, logs, ports and uptime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if service == "" {
				service = a.cfg.Deploy.AppName
			}

			snap, err := monitor.NewCollector(a.cfg.Monitor.TopProcesses).Snapshot(ctx)
			if err != nil {
				return err
			}

			var svc *monitor.ServiceStatus
			if !noService {
				st := monitor.NewServiceInspector(deploy.ExecRunner{}, a.cfg.Monitor.JournalLines).Inspect(ctx, service)
				svc = &st
			}

			monitor.Render(a.out, snap, svc)

			if publish {
				c := &connections{}
				defer c.close()
				event := events.MonitorEvent{
					Host:              snap.Host.Hostname,
					MemoryUsedPercent: snap.Memory.UsedPercent,
					Load1:             snap.Load.Load1,
					ServiceActive:     svc != nil && svc.Active,
					Timestamp:         snap.Taken,
				}
				if d, ok := snap.RootDisk(); ok {
					event.DiskUsedPercent = d.UsedPercent
				}
				if err := a.publisher(ctx, c).PublishMonitor(ctx, event); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "systemd unit to inspect (default: DEPLOY_APP_NAME)")
	cmd.Flags().BoolVar(&noService, "no-service", false, "skip systemd and journal sections")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish a monitor event to NATS")
	return cmd
}

func (a *app) healthcheckCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "healthcheck [url]",
		Short: "Probe the health endpoint once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := a.cfg.Deploy.HealthProbeURL()
			if len(args) == 1 {
				url = args[0]
			}
			probe := health.NewProbe(a.cfg.Deploy.HealthTimeout)
			if err := probe.WaitAndCheck(cmd.Context(), url, wait); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			a.out.Success("%s is healthy", url)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait before probing")
	return cmd
}
