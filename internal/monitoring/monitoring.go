// Package monitoring serves liveness and Prometheus metrics endpoints while a
// long batch analysis runs.
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/probelab/saeprobe/internal/logger"
)

// Status is the /health payload.
type Status struct {
	Status    string        `json:"status"`
	Tool      string        `json:"tool"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    time.Duration `json:"uptime"`
	GoVersion string        `json:"go_version"`
	NumCPU    int           `json:"num_cpu"`
	MemoryMB  int           `json:"memory_mb"`
}

// Monitor exposes /health, /healthz and /metrics for one tool run.
type Monitor struct {
	tool      string
	startTime time.Time
	server    *http.Server
}

func NewMonitor(tool string) *Monitor {
	return &Monitor{
		tool:      tool,
		startTime: time.Now(),
	}
}

// Start serves in the background. Errors other than a clean shutdown are
// logged, not fatal; a dead metrics endpoint must not kill the analysis.
func (m *Monitor) Start(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/healthz", m.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	m.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("monitoring endpoint starting", "addr", addr, "tool", m.tool)
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("monitoring endpoint failed", "error", err)
		}
	}()
}

// Stop shuts the endpoint down.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Status{
		Status:    "healthy",
		Tool:      m.tool,
		Timestamp: time.Now(),
		Uptime:    time.Since(m.startTime),
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
		MemoryMB:  int(ms.Alloc / 1024 / 1024),
	})
}
