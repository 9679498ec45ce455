// Package health tracks the rolling success/failure/latency history of
// backend probes and exposes a coarse health classification. The monitor
// is purely observational: it never triggers reconnects itself.
package health

import (
	"sync"
	"time"
)

// Status is the coarse classification of the backend connection.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Latency thresholds for classifying a probe. A probe slower than
// DegradedAfter is degraded; slower than UnhealthyAfter is unhealthy.
const (
	DegradedAfter  = 5 * time.Second
	UnhealthyAfter = 15 * time.Second
)

// windowSize bounds the rolling latency window.
const windowSize = 10

// failureTolerance is how many consecutive failures a degraded connection
// may accumulate before IsHealthy flips to false.
const failureTolerance = 3

// Snapshot is the result of a single probe.
type Snapshot struct {
	Status    Status
	Latency   time.Duration
	CheckedAt time.Time
	Err       error
}

// Classify builds a Snapshot from a probe's latency and error.
func Classify(latency time.Duration, err error) Snapshot {
	s := Snapshot{Latency: latency, CheckedAt: time.Now().UTC(), Err: err}
	switch {
	case err != nil:
		s.Status = StatusUnhealthy
	case latency > UnhealthyAfter:
		s.Status = StatusUnhealthy
	case latency > DegradedAfter:
		s.Status = StatusDegraded
	default:
		s.Status = StatusHealthy
	}
	return s
}

// Metrics is a read-only copy of the monitor's derived state.
type Metrics struct {
	Status              Status        `json:"status"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	TotalChecks         int           `json:"total_checks"`
	SuccessfulChecks    int           `json:"successful_checks"`
	AverageLatency      time.Duration `json:"average_latency"`
	LastError           string        `json:"last_error,omitempty"`
	LastCheckedAt       time.Time     `json:"last_checked_at"`
}

// Monitor folds a stream of Snapshots into Metrics. Safe for concurrent
// use.
type Monitor struct {
	mu                  sync.Mutex
	status              Status
	consecutiveFailures int
	totalChecks         int
	successfulChecks    int
	window              []time.Duration // last windowSize successful-probe latencies
	lastError           string
	lastCheckedAt       time.Time
}

// NewMonitor returns a monitor in the Unknown state.
func NewMonitor() *Monitor {
	return &Monitor{status: StatusUnknown}
}

// RecordProbe folds one snapshot into the metrics. Healthy and Degraded
// probes count as successes and contribute latency to the rolling window;
// Unhealthy probes increment the failure streak and keep their latency
// out of the window so one bad sample does not skew the steady-state
// average.
func (m *Monitor) RecordProbe(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = s.Status
	m.totalChecks++
	m.lastCheckedAt = s.CheckedAt

	if s.Status == StatusUnhealthy {
		m.consecutiveFailures++
		if s.Err != nil {
			m.lastError = s.Err.Error()
		} else {
			m.lastError = "probe latency exceeded unhealthy threshold"
		}
		return
	}

	m.consecutiveFailures = 0
	m.successfulChecks++
	m.lastError = ""
	m.window = append(m.window, s.Latency)
	if len(m.window) > windowSize {
		m.window = m.window[1:]
	}
}

// Metrics returns a copy of the derived state.
func (m *Monitor) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Metrics{
		Status:              m.status,
		ConsecutiveFailures: m.consecutiveFailures,
		TotalChecks:         m.totalChecks,
		SuccessfulChecks:    m.successfulChecks,
		AverageLatency:      m.averageLatencyLocked(),
		LastError:           m.lastError,
		LastCheckedAt:       m.lastCheckedAt,
	}
}

// IsHealthy reports whether the connection is usable. Degraded is
// tolerated while the failure streak stays short: transient slowness is
// acceptable, a persistent pattern of it is not.
func (m *Monitor) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.status {
	case StatusHealthy:
		return true
	case StatusDegraded:
		return m.consecutiveFailures < failureTolerance
	default:
		return false
	}
}

// Reset clears all history, returning the monitor to Unknown.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = StatusUnknown
	m.consecutiveFailures = 0
	m.totalChecks = 0
	m.successfulChecks = 0
	m.window = nil
	m.lastError = ""
	m.lastCheckedAt = time.Time{}
}

func (m *Monitor) averageLatencyLocked() time.Duration {
	if len(m.window) == 0 {
		return 0
	}
	var sum time.Duration
	for _, l := range m.window {
		sum += l
	}
	return sum / time.Duration(len(m.window))
}
