package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// Filesystems that never hold application data.
var ignoredFstypes = map[string]bool{
	"tmpfs":    true,
	"devtmpfs": true,
	"squashfs": true,
	"proc":     true,
	"sysfs":    true,
	"cgroup":   true,
	"cgroup2":  true,
	"nsfs":     true,
	"devpts":   true,
}

// Collector reads host state through gopsutil.
type Collector struct {
	topN int
	now  func() time.Time
}

func NewCollector(topN int) *Collector {
	if topN <= 0 {
		topN = 10
	}
	return &Collector{topN: topN, now: time.Now}
}

// Snapshot collects every section. Sections that fail are recorded in
// Snapshot.Problems; only a cancelled context aborts the whole snapshot.
func (c *Collector) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Taken: c.now().UTC()}

	sections := []struct {
		name string
		fn   func(context.Context, *Snapshot) error
	}{
		{"host", collectHost},
		{"memory", collectMemory},
		{"load", collectLoad},
		{"processes", c.collectProcesses},
		{"disks", collectDisks},
		{"listeners", collectListeners},
	}
	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return snap, err
		}
		if err := s.fn(ctx, &snap); err != nil {
			slog.Warn("monitor section unavailable", "section", s.name, "error", err)
			snap.Problems = append(snap.Problems, fmt.Sprintf("%s: %v", s.name, err))
		}
	}
	return snap, nil
}

func collectHost(ctx context.Context, snap *Snapshot) error {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Host = HostInfo{
		Hostname: info.Hostname,
		Platform: fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion),
		Kernel:   info.KernelVersion,
		Uptime:   time.Duration(info.Uptime) * time.Second,
		BootTime: time.Unix(int64(info.BootTime), 0).UTC(),
	}
	return nil
}

func collectMemory(ctx context.Context, snap *Snapshot) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Memory.Total = vm.Total
	snap.Memory.Used = vm.Used
	snap.Memory.Available = vm.Available
	snap.Memory.UsedPercent = vm.UsedPercent

	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	snap.Memory.SwapTotal = swap.Total
	snap.Memory.SwapUsed = swap.Used
	snap.Memory.SwapPercent = swap.UsedPercent
	return nil
}

func collectLoad(ctx context.Context, snap *Snapshot) error {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Load = Load{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	return nil
}

func (c *Collector) collectProcesses(ctx context.Context, snap *Snapshot) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return err
	}

	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		mi, err := p.MemoryInfoWithContext(ctx)
		if err != nil || mi == nil {
			// Exited or not readable; skip.
			continue
		}
		name, _ := p.NameWithContext(ctx)
		user, _ := p.UsernameWithContext(ctx)
		pct, _ := p.MemoryPercentWithContext(ctx)
		out = append(out, Process{PID: p.Pid, Name: name, User: user, RSS: mi.RSS, MemoryPercent: pct})
	}

	snap.Processes = topByRSS(out, c.topN)
	return nil
}

func topByRSS(procs []Process, n int) []Process {
	sort.Slice(procs, func(i, j int) bool {
		if procs[i].RSS == procs[j].RSS {
			return procs[i].PID < procs[j].PID
		}
		return procs[i].RSS > procs[j].RSS
	})
	if len(procs) > n {
		procs = procs[:n]
	}
	return procs
}

func collectDisks(ctx context.Context, snap *Snapshot) error {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, p := range parts {
		if ignoredFstypes[p.Fstype] || seen[p.Mountpoint] {
			continue
		}
		seen[p.Mountpoint] = true

		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || u.Total == 0 {
			continue
		}
		snap.Disks = append(snap.Disks, Disk{
			Mountpoint:  p.Mountpoint,
			Device:      p.Device,
			Fstype:      p.Fstype,
			Total:       u.Total,
			Used:        u.Used,
			UsedPercent: u.UsedPercent,
		})
	}
	sort.Slice(snap.Disks, func(i, j int) bool { return snap.Disks[i].Mountpoint < snap.Disks[j].Mountpoint })
	return nil
}

func collectListeners(ctx context.Context, snap *Snapshot) error {
	conns, err := net.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return err
	}
	snap.Listeners = listening(conns)

	names := make(map[int32]string)
	for i, l := range snap.Listeners {
		if l.PID == 0 {
			continue
		}
		name, ok := names[l.PID]
		if !ok {
			if p, err := process.NewProcessWithContext(ctx, l.PID); err == nil {
				name, _ = p.NameWithContext(ctx)
			}
			names[l.PID] = name
		}
		snap.Listeners[i].Process = name
	}
	return nil
}

// listening keeps LISTEN sockets, one per address and port, ordered by port.
func listening(conns []net.ConnectionStat) []Listener {
	seen := make(map[string]bool)
	var out []Listener
	for _, c := range conns {
		if c.Status != "LISTEN" {
			continue
		}
		key := fmt.Sprintf("%s:%d", c.Laddr.IP, c.Laddr.Port)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Listener{Address: c.Laddr.IP, Port: c.Laddr.Port, PID: c.Pid})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Port == out[j].Port {
			return out[i].Address < out[j].Address
		}
		return out[i].Port < out[j].Port
	})
	return out
}
