package monitor

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/stockagent/stockagent/internal/events"
	"github.com/stockagent/stockagent/internal/metrics"
)

// MonitorPublisher receives one summary per sample.
type MonitorPublisher interface {
	PublishMonitor(ctx context.Context, event events.MonitorEvent) error
}

// Sampler records host gauges on a fixed interval inside the API process.
type Sampler struct {
	collector *Collector
	publisher MonitorPublisher
	interval  time.Duration
	self      *process.Process
}

func NewSampler(collector *Collector, publisher MonitorPublisher, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s := &Sampler{collector: collector, publisher: publisher, interval: interval}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.self = p
	}
	return s
}

// Run samples immediately and then every interval until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	slog.Info("host sampler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sample(ctx)
		select {
		case <-ctx.Done():
			slog.Info("host sampler stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Sampler) sample(ctx context.Context) {
	snap, err := s.collector.Snapshot(ctx)
	if err != nil {
		return
	}
	Record(snap)

	if s.self != nil {
		if mi, err := s.self.MemoryInfoWithContext(ctx); err == nil {
			metrics.ProcessRSSBytes.Set(float64(mi.RSS))
		}
	}

	if s.publisher == nil {
		return
	}
	event := events.MonitorEvent{
		Host:              snap.Host.Hostname,
		MemoryUsedPercent: snap.Memory.UsedPercent,
		Load1:             snap.Load.Load1,
		ServiceActive:     true,
		Timestamp:         snap.Taken,
	}
	if d, ok := snap.RootDisk(); ok {
		event.DiskUsedPercent = d.UsedPercent
	}
	if err := s.publisher.PublishMonitor(ctx, event); err != nil {
		slog.Warn("failed to publish monitor event", "error", err)
	}
}

// Record copies snap into the Prometheus host gauges.
func Record(snap Snapshot) {
	metrics.HostMemoryUsedPercent.Set(snap.Memory.UsedPercent)
	metrics.HostSwapUsedPercent.Set(snap.Memory.SwapPercent)
	metrics.HostLoad1.Set(snap.Load.Load1)
	metrics.HostUptimeSeconds.Set(snap.Host.Uptime.Seconds())
	for _, d := range snap.Disks {
		metrics.HostDiskUsedPercent.WithLabelValues(d.Mountpoint).Set(d.UsedPercent)
	}
}
