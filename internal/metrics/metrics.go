package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockagent_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockagent_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockagent_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		},
	)

	HealthChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockagent_health_checks_total",
			Help: "Readiness checks served, by overall status.",
		},
		[]string{"status"},
	)

	HostMemoryUsedPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockagent_host_memory_used_percent",
			Help: "Host memory in use, percent.",
		},
	)

	HostSwapUsedPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockagent_host_swap_used_percent",
			Help: "Host swap in use, percent.",
		},
	)

	HostDiskUsedPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stockagent_host_disk_used_percent",
			Help: "Disk usage per mountpoint, percent.",
		},
		[]string{"mountpoint"},
	)

	HostLoad1 = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockagent_host_load1",
			Help: "One-minute load average.",
		},
	)

	HostUptimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockagent_host_uptime_seconds",
			Help: "Host uptime in seconds.",
		},
	)

	ProcessRSSBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockagent_process_rss_bytes",
			Help: "Resident set size of the API process.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RateLimitedTotal,
		HealthChecksTotal,
		HostMemoryUsedPercent,
		HostSwapUsedPercent,
		HostDiskUsedPercent,
		HostLoad1,
		HostUptimeSeconds,
		ProcessRSSBytes,
	)
}
