package dispatcher

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/keyframe/internal/event"
)

// DropReason classifies events that were dropped without running a handler.
type DropReason int

const (
	DropInvalid DropReason = iota
	DropNotFound
	DropReentrant
)

// Metrics collects dispatch statistics.
type Metrics struct {
	mu sync.RWMutex

	eventMetrics map[event.ID]*EventMetrics

	totalHandled uint64
	totalErrors  uint64
	totalPanics  uint64
	dropped      map[DropReason]uint64
	purged       uint64

	totalDuration time.Duration
}

// EventMetrics holds metrics for one event ID.
type EventMetrics struct {
	ID            event.ID
	HandledCount  uint64
	ErrorCount    uint64
	PanicCount    uint64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	LastHandled   time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		eventMetrics: make(map[event.ID]*EventMetrics),
		dropped:      make(map[DropReason]uint64),
	}
}

// RecordHandled records one handler invocation.
func (m *Metrics) RecordHandled(id event.ID, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalHandled++
	m.totalDuration += duration
	if failed {
		m.totalErrors++
	}

	em := m.entry(id)
	if em.HandledCount == 0 {
		em.MinDuration = duration
		em.MaxDuration = duration
	}

	em.HandledCount++
	em.TotalDuration += duration
	em.LastHandled = time.Now()
	if duration < em.MinDuration {
		em.MinDuration = duration
	}
	if duration > em.MaxDuration {
		em.MaxDuration = duration
	}
	if failed {
		em.ErrorCount++
	}
}

// RecordPanic records a panic recovery.
func (m *Metrics) RecordPanic(id event.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalPanics++
	m.entry(id).PanicCount++
}

// entry returns the metrics for id, creating them. Callers hold m.mu.
func (m *Metrics) entry(id event.ID) *EventMetrics {
	em := m.eventMetrics[id]
	if em == nil {
		em = &EventMetrics{ID: id}
		m.eventMetrics[id] = em
	}
	return em
}

// RecordDrop records an event dropped for reason.
func (m *Metrics) RecordDrop(reason DropReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason]++
}

// RecordPurge records events discarded by crash recovery.
func (m *Metrics) RecordPurge(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged += uint64(n)
}

// Dropped returns how many events were dropped for reason.
func (m *Metrics) Dropped(reason DropReason) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dropped[reason]
}

// EventStats returns metrics for one event ID, or nil.
func (m *Metrics) EventStats(id event.ID) *EventMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	em := m.eventMetrics[id]
	if em == nil {
		return nil
	}
	cp := *em
	return &cp
}

// TopEvents returns the n most handled event IDs.
func (m *Metrics) TopEvents(n int) []*EventMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*EventMetrics, 0, len(m.eventMetrics))
	for _, em := range m.eventMetrics {
		cp := *em
		events = append(events, &cp)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].HandledCount != events[j].HandledCount {
			return events[i].HandledCount > events[j].HandledCount
		}
		return events[i].ID < events[j].ID
	})

	if n > len(events) {
		n = len(events)
	}
	return events[:n]
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventMetrics = make(map[event.ID]*EventMetrics)
	m.dropped = make(map[DropReason]uint64)
	m.totalHandled = 0
	m.totalErrors = 0
	m.totalPanics = 0
	m.purged = 0
	m.totalDuration = 0
}

// MetricsSnapshot is a point-in-time copy of the global counters.
type MetricsSnapshot struct {
	TotalHandled    uint64
	TotalErrors     uint64
	TotalPanics     uint64
	TotalDropped    uint64
	TotalPurged     uint64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	EventCount      int
	Timestamp       time.Time
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		TotalHandled:  m.totalHandled,
		TotalErrors:   m.totalErrors,
		TotalPanics:   m.totalPanics,
		TotalPurged:   m.purged,
		TotalDuration: m.totalDuration,
		EventCount:    len(m.eventMetrics),
		Timestamp:     time.Now(),
	}
	for _, n := range m.dropped {
		snapshot.TotalDropped += n
	}
	if m.totalHandled > 0 {
		snapshot.AverageDuration = m.totalDuration / time.Duration(m.totalHandled)
	}
	return snapshot
}

// AverageDuration returns the average handler duration for the event ID.
func (em *EventMetrics) AverageDuration() time.Duration {
	if em.HandledCount == 0 {
		return 0
	}
	return em.TotalDuration / time.Duration(em.HandledCount)
}
