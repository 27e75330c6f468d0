package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/NERVsystems/co2mcp/pkg/version"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Connection states.
const (
	ConnConnected    = "connected"
	ConnDegraded     = "degraded"
	ConnError        = "error"
	ConnDisconnected = "disconnected"
)

// ServiceHealth is the /health response body.
type ServiceHealth struct {
	Service       string                `json:"service"`
	Version       string                `json:"version"`
	Status        string                `json:"status"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	StartTime     time.Time             `json:"start_time"`
	Connections   map[string]ConnStatus `json:"connections"`
	Details       map[string]any        `json:"details,omitempty"`
	Runtime       map[string]any        `json:"runtime"`
}

// ConnStatus is the last observed state of an external dependency.
type ConnStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Latency   int64     `json:"latency_ms,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthChecker aggregates connection states into a service health report.
type HealthChecker struct {
	serviceName string
	version     string
	startTime   time.Time

	mu          sync.RWMutex
	connections map[string]ConnStatus
	details     map[string]any

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHealthChecker creates a checker and starts periodic runtime metric
// collection until Shutdown.
func NewHealthChecker(serviceName, version string) *HealthChecker {
	ctx, cancel := context.WithCancel(context.Background())
	hc := &HealthChecker{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		connections: make(map[string]ConnStatus),
		details:     make(map[string]any),
		ctx:         ctx,
		cancel:      cancel,
	}
	hc.updateSystemMetrics()
	go hc.collectSystemMetrics(15 * time.Second)
	return hc
}

// UpdateConnection records the state of a named dependency.
func (h *HealthChecker) UpdateConnection(name, status string, latencyMs int64, err error) {
	cs := ConnStatus{Name: name, Status: status, Latency: latencyMs, CheckedAt: time.Now()}
	if err != nil {
		cs.LastError = err.Error()
	}
	h.mu.Lock()
	h.connections[name] = cs
	h.mu.Unlock()
}

// RemoveConnection stops reporting a dependency.
func (h *HealthChecker) RemoveConnection(name string) {
	h.mu.Lock()
	delete(h.connections, name)
	h.mu.Unlock()
}

// SetDetail attaches extra information, such as model parameters, to
// health reports.
func (h *HealthChecker) SetDetail(key string, value any) {
	h.mu.Lock()
	h.details[key] = value
	h.mu.Unlock()
}

// GetHealth computes the current report. Any failing dependency degrades
// the service; more than half failing makes it unhealthy.
func (h *HealthChecker) GetHealth() ServiceHealth {
	h.mu.RLock()
	connections := make(map[string]ConnStatus, len(h.connections))
	var failing, degraded int
	for k, c := range h.connections {
		connections[k] = c
		switch c.Status {
		case ConnError, ConnDisconnected:
			failing++
		case ConnDegraded:
			degraded++
		}
	}
	var details map[string]any
	if len(h.details) > 0 {
		details = make(map[string]any, len(h.details))
		for k, v := range h.details {
			details[k] = v
		}
	}
	h.mu.RUnlock()

	status := StatusHealthy
	switch {
	case failing > 0 && failing*2 > len(connections):
		status = StatusUnhealthy
	case failing > 0 || degraded > 0:
		status = StatusDegraded
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ServiceHealth{
		Service:       h.serviceName,
		Version:       h.version,
		Status:        status,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		StartTime:     h.startTime,
		Connections:   connections,
		Details:       details,
		Runtime: map[string]any{
			"goroutines":      runtime.NumGoroutine(),
			"memory_alloc_mb": m.Alloc / 1024 / 1024,
			"gc_runs":         m.NumGC,
			"cpu_count":       runtime.NumCPU(),
			"build":           version.Info(),
		},
	}
}

// HealthHandler serves the health report. Unhealthy services answer 503.
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()
		w.Header().Set("Content-Type", "application/json")
		if health.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	}
}

// LivenessHandler always answers 200 while the process is running.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"alive":          true,
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		})
	}
}

func (h *HealthChecker) collectSystemMetrics(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.updateSystemMetrics()
		}
	}
}

func (h *HealthChecker) updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	GoRoutines.Set(float64(runtime.NumGoroutine()))
	MemoryUsage.Set(float64(m.Alloc))

	info := version.Info()
	SystemInfo.WithLabelValues(info["version"], info["go_version"], info["commit"], info["build_date"]).Set(1)
}

// Shutdown stops background collection.
func (h *HealthChecker) Shutdown() {
	h.cancel()
}

// ConnectionMonitor periodically checks a dependency and reports the
// result to a HealthChecker.
type ConnectionMonitor struct {
	name     string
	hc       *HealthChecker
	check    func(ctx context.Context) error
	interval time.Duration
	timeout  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewConnectionMonitor creates a monitor. Each check is bounded by half
// the interval, capped at ten seconds.
func NewConnectionMonitor(name string, hc *HealthChecker, check func(ctx context.Context) error, interval time.Duration) *ConnectionMonitor {
	timeout := min(interval/2, 10*time.Second)
	return &ConnectionMonitor{
		name:     name,
		hc:       hc,
		check:    check,
		interval: interval,
		timeout:  timeout,
	}
}

// Start checks once immediately and then on every tick until ctx ends or
// Stop is called.
func (cm *ConnectionMonitor) Start(ctx context.Context) {
	ctx, cm.cancel = context.WithCancel(ctx)
	cm.done = make(chan struct{})
	go func() {
		defer close(cm.done)
		cm.performCheck(ctx)

		ticker := time.NewTicker(cm.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cm.performCheck(ctx)
			}
		}
	}()
}

// Stop ends monitoring, waits for the loop to exit and drops the
// dependency from the health report.
func (cm *ConnectionMonitor) Stop() {
	if cm.cancel == nil {
		return
	}
	cm.cancel()
	<-cm.done
	cm.hc.RemoveConnection(cm.name)
}

func (cm *ConnectionMonitor) performCheck(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	start := time.Now()
	err := cm.check(ctx)
	latency := time.Since(start).Milliseconds()

	status := ConnConnected
	if err != nil {
		status = ConnError
		RecordError("health", cm.name)
	}
	cm.hc.UpdateConnection(cm.name, status, latency, err)
}
