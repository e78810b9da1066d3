// Package monitor collects a point-in-time view of the host running the
// service: memory, processes, disks, load, uptime and listening ports.
package monitor

import "time"

type Snapshot struct {
	Taken     time.Time
	Host      HostInfo
	Memory    Memory
	Load      Load
	Processes []Process
	Disks     []Disk
	Listeners []Listener
	// Problems lists sections that could not be collected.
	Problems []string
}

type HostInfo struct {
	Hostname string
	Platform string
	Kernel   string
	Uptime   time.Duration
	BootTime time.Time
}

type Memory struct {
	Total       uint64
	Used        uint64
	Available   uint64
	UsedPercent float64
	SwapTotal   uint64
	SwapUsed    uint64
	SwapPercent float64
}

type Load struct {
	Load1  float64
	Load5  float64
	Load15 float64
}

type Process struct {
	PID           int32
	Name          string
	User          string
	RSS           uint64
	MemoryPercent float32
}

type Disk struct {
	Mountpoint  string
	Device      string
	Fstype      string
	Total       uint64
	Used        uint64
	UsedPercent float64
}

type Listener struct {
	Address string
	Port    uint32
	PID     int32
	Process string
}

// RootDisk returns the disk mounted at /, or the fullest disk when / is absent.
func (s Snapshot) RootDisk() (Disk, bool) {
	var fullest Disk
	found := false
	for _, d := range s.Disks {
		if d.Mountpoint == "/" {
			return d, true
		}
		if !found || d.UsedPercent > fullest.UsedPercent {
			fullest = d
			found = true
		}
	}
	return fullest, found
}
