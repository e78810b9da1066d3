package monitor

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/stockagent/stockagent/internal/console"
)

// Usage above these percentages is printed as a warning.
const (
	warnMemoryPercent = 85
	warnDiskPercent   = 90
)

// Render prints snap and, when given, svc as a sectioned report.
func Render(p *console.Printer, snap Snapshot, svc *ServiceStatus) {
	p.Header("Host")
	p.Plain("  Hostname: %s\n", snap.Host.Hostname)
	p.Plain("  Platform: %s (kernel %s)\n", snap.Host.Platform, snap.Host.Kernel)
	p.Plain("  Uptime:   %s\n", formatUptime(snap.Host.Uptime))
	p.Plain("  Load:     %.2f %.2f %.2f\n", snap.Load.Load1, snap.Load.Load5, snap.Load.Load15)

	p.Header("Memory")
	m := snap.Memory
	line := fmt.Sprintf("Used %s of %s (%.1f%%), %s available",
		humanize.IBytes(m.Used), humanize.IBytes(m.Total), m.UsedPercent, humanize.IBytes(m.Available))
	if m.UsedPercent >= warnMemoryPercent {
		p.Warn("%s", line)
	} else {
		p.Info("%s", line)
	}
	if m.SwapTotal > 0 {
		p.Info("Swap %s of %s (%.1f%%)", humanize.IBytes(m.SwapUsed), humanize.IBytes(m.SwapTotal), m.SwapPercent)
	} else {
		p.Info("No swap configured")
	}

	p.Header("Top processes by memory")
	p.Plain("  %-8s %-12s %-10s %6s  %s\n", "PID", "USER", "RSS", "MEM%", "COMMAND")
	for _, proc := range snap.Processes {
		p.Plain("  %-8d %-12s %-10s %6.1f  %s\n", proc.PID, truncate(proc.User, 12), humanize.IBytes(proc.RSS), proc.MemoryPercent, proc.Name)
	}

	p.Header("Disk usage")
	for _, d := range snap.Disks {
		line := fmt.Sprintf("%-20s %s of %s (%.1f%%) on %s", d.Mountpoint,
			humanize.IBytes(d.Used), humanize.IBytes(d.Total), d.UsedPercent, d.Device)
		if d.UsedPercent >= warnDiskPercent {
			p.Warn("%s", line)
		} else {
			p.Info("%s", line)
		}
	}

	if svc != nil {
		p.Header("Service %s", svc.Name)
		if svc.Active {
			p.Success("%s is %s", svc.Name, svc.State)
		} else {
			p.Error("%s is %s", svc.Name, svc.State)
		}
		if svc.Status != "" {
			p.Plain("%s\n", svc.Status)
		}

		p.Header("Recent logs")
		if len(svc.Journal) == 0 {
			p.Info("No journal entries")
		}
		for _, l := range svc.Journal {
			p.Plain("  %s\n", l)
		}
	}

	p.Header("Listening ports")
	for _, l := range snap.Listeners {
		proc := l.Process
		if proc == "" {
			proc = "-"
		}
		p.Plain("  %-6d %-40s %s\n", l.Port, l.Address, proc)
	}

	for _, problem := range snap.Problems {
		p.Warn("Unavailable: %s", problem)
	}
	p.Plain("\nSnapshot taken %s\n", snap.Taken.Format(time.RFC3339))
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
