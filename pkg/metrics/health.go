package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the overall health state.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded" // serving, but records are failing
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// DegradedFailureRate is the share of failed records above which a healthy
// service reports itself degraded.
const DegradedFailureRate = 0.01

// CheckFunc returns nil if healthy, or an error describing the problem.
type CheckFunc func() error

// HealthCheck runs named checks and summarizes a Collector.
type HealthCheck struct {
	mu        sync.RWMutex
	checks    map[string]CheckFunc
	collector *Collector
	startTime time.Time
	version   string
}

// HealthResponse is the JSON body served by Handler.
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Sessions  *HealthSessions        `json:"sessions,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthSessions summarizes channel traffic.
type HealthSessions struct {
	Active      uint64  `json:"active"`
	Total       uint64  `json:"total"`
	Failed      uint64  `json:"failed"`
	FailureRate float64 `json:"record_failure_rate"`
}

// NewHealthCheck creates a health check. collector may be nil.
func NewHealthCheck(collector *Collector, version string) *HealthCheck {
	return &HealthCheck{
		checks:    make(map[string]CheckFunc),
		collector: collector,
		startTime: time.Now(),
		version:   version,
	}
}

// AddCheck registers a named health check.
func (h *HealthCheck) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Check runs every check and returns the overall status.
func (h *HealthCheck) Check() HealthResponse {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
		Version:   h.version,
		Checks:    make(map[string]CheckResult, len(names)),
	}

	for _, name := range names {
		result := CheckResult{Status: HealthStatusHealthy}
		if err := checks[name](); err != nil {
			result = CheckResult{Status: HealthStatusUnhealthy, Message: err.Error()}
			resp.Status = HealthStatusUnhealthy
		}
		resp.Checks[name] = result
	}

	if h.collector != nil {
		snap := h.collector.Snapshot()
		s := &HealthSessions{
			Active: snap.SessionsActive,
			Total:  snap.SessionsTotal,
			Failed: snap.SessionsFailed,
		}
		failures := snap.ReplaysRejected + snap.AuthFailures + snap.ProtocolErrors
		if total := snap.RecordsReceived + failures; total > 0 {
			s.FailureRate = float64(failures) / float64(total)
		}
		if s.FailureRate > DegradedFailureRate && resp.Status == HealthStatusHealthy {
			resp.Status = HealthStatusDegraded
		}
		resp.Sessions = s
	}

	return resp
}

// Handler serves the health report as JSON, with 503 when unhealthy.
func (h *HealthCheck) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}
