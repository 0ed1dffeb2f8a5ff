package dispatcher

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Metrics collects invocation statistics.
type Metrics struct {
	mu sync.RWMutex

	// Per-method metrics, keyed by "Interface.Method"
	methodMetrics map[string]*MethodMetrics

	// Global counters
	totalInvocations uint64
	totalErrors      uint64
	totalUnresolved  uint64

	// Timing
	totalDuration time.Duration
}

// MethodMetrics holds metrics for one declaring interface and method.
type MethodMetrics struct {
	Name            string
	InvokeCount     uint64
	ErrorCount      uint64
	UnresolvedCount uint64
	TotalDuration   time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration
	LastInvoke      time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		methodMetrics: make(map[string]*MethodMetrics),
	}
}

// RecordInvoke records one completed invocation.
func (m *Metrics) RecordInvoke(name string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalInvocations++
	m.totalDuration += duration

	unresolved := errors.Is(err, ErrUnresolvedHandler)
	if err != nil {
		m.totalErrors++
	}
	if unresolved {
		m.totalUnresolved++
	}

	mm := m.methodMetrics[name]
	if mm == nil {
		mm = &MethodMetrics{
			Name:        name,
			MinDuration: duration,
			MaxDuration: duration,
		}
		m.methodMetrics[name] = mm
	}

	mm.InvokeCount++
	mm.TotalDuration += duration
	mm.LastInvoke = time.Now()

	if duration < mm.MinDuration {
		mm.MinDuration = duration
	}
	if duration > mm.MaxDuration {
		mm.MaxDuration = duration
	}

	if err != nil {
		mm.ErrorCount++
	}
	if unresolved {
		mm.UnresolvedCount++
	}
}

// TotalInvocations returns the total number of invocations.
func (m *Metrics) TotalInvocations() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalInvocations
}

// TotalErrors returns the total number of failed invocations.
func (m *Metrics) TotalErrors() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalErrors
}

// TotalUnresolved returns the number of invocations no handler could serve.
func (m *Metrics) TotalUnresolved() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalUnresolved
}

// AverageDuration returns the average invocation duration.
func (m *Metrics) AverageDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.totalInvocations == 0 {
		return 0
	}
	return m.totalDuration / time.Duration(m.totalInvocations)
}

// MethodStats returns a copy of the metrics for one method key.
func (m *Metrics) MethodStats(name string) *MethodMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mm := m.methodMetrics[name]
	if mm == nil {
		return nil
	}

	copy := *mm
	return &copy
}

// TopMethods returns the n most invoked methods.
func (m *Metrics) TopMethods(n int) []*MethodMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	methods := make([]*MethodMetrics, 0, len(m.methodMetrics))
	for _, mm := range m.methodMetrics {
		copy := *mm
		methods = append(methods, &copy)
	}

	sort.Slice(methods, func(i, j int) bool {
		if methods[i].InvokeCount != methods[j].InvokeCount {
			return methods[i].InvokeCount > methods[j].InvokeCount
		}
		return methods[i].Name < methods[j].Name
	})

	if n > len(methods) {
		n = len(methods)
	}
	return methods[:n]
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.methodMetrics = make(map[string]*MethodMetrics)
	m.totalInvocations = 0
	m.totalErrors = 0
	m.totalUnresolved = 0
	m.totalDuration = 0
}

// MetricsSnapshot is a point-in-time copy of the global counters.
type MetricsSnapshot struct {
	TotalInvocations uint64
	TotalErrors      uint64
	TotalUnresolved  uint64
	TotalDuration    time.Duration
	AverageDuration  time.Duration
	MethodCount      int
	Timestamp        time.Time
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		TotalInvocations: m.totalInvocations,
		TotalErrors:      m.totalErrors,
		TotalUnresolved:  m.totalUnresolved,
		TotalDuration:    m.totalDuration,
		MethodCount:      len(m.methodMetrics),
		Timestamp:        time.Now(),
	}

	if m.totalInvocations > 0 {
		snapshot.AverageDuration = m.totalDuration / time.Duration(m.totalInvocations)
	}

	return snapshot
}

// AverageDuration returns the average duration for this method.
func (mm *MethodMetrics) AverageDuration() time.Duration {
	if mm.InvokeCount == 0 {
		return 0
	}
	return mm.TotalDuration / time.Duration(mm.InvokeCount)
}

// ErrorRate returns the error rate as a percentage.
func (mm *MethodMetrics) ErrorRate() float64 {
	if mm.InvokeCount == 0 {
		return 0
	}
	return float64(mm.ErrorCount) / float64(mm.InvokeCount) * 100
}
