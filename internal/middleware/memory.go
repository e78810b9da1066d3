package middleware

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/stockagent/stockagent/internal/metrics"
)

// MemoryUsage records the process RSS after each request and logs it at debug level.
func MemoryUsage() func(http.Handler) http.Handler {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Warn("memory usage middleware disabled", "error", err)
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			mi, err := self.MemoryInfoWithContext(r.Context())
			if err != nil {
				return
			}
			metrics.ProcessRSSBytes.Set(float64(mi.RSS))
			slog.Debug("memory usage",
				"rss_mb", float64(mi.RSS)/1024/1024,
				"path", r.URL.Path,
			)
		})
	}
}
