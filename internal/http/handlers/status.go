package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type processStats struct {
	PID           int32   `json:"pid"`
	Goroutines    int     `json:"goroutines"`
	RSSBytes      uint64  `json:"rssBytes"`
	CPUPercent    float64 `json:"cpuPercent"`
	Threads       int32   `json:"threads"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
	HostMemoryPct float64 `json:"hostMemoryUsedPercent"`
}

// Status reports service version, connected WebSocket clients and process stats.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"version":          a.version,
		"connectedClients": a.hub.Count(),
		"process":          a.processStats(r),
	})
}

// processStats collects what gopsutil can read; unreadable fields stay zero.
func (a *API) processStats(r *http.Request) processStats {
	ctx := r.Context()
	stats := processStats{PID: int32(os.Getpid()), Goroutines: runtime.NumGoroutine()}

	proc, err := process.NewProcessWithContext(ctx, stats.PID)
	if err != nil {
		a.logger.Debug().Err(err).Msg("process stats unavailable")
		return stats
	}
	if info, err := proc.MemoryInfoWithContext(ctx); err == nil && info != nil {
		stats.RSSBytes = info.RSS
	}
	if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = pct
	}
	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		stats.Threads = threads
	}
	if created, err := proc.CreateTimeWithContext(ctx); err == nil && created > 0 {
		stats.UptimeSeconds = int64(time.Since(time.UnixMilli(created)).Seconds())
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		stats.HostMemoryPct = vm.UsedPercent
	}
	return stats
}
