package gosession

import "sync/atomic"

// MetricID indexes a lock-free counter on the Manager.
type MetricID uint16

const (
	// MetricSessionCreated counts sessions materialized and persisted.
	MetricSessionCreated MetricID = iota
	// MetricSessionRead counts sessions served from the store.
	MetricSessionRead
	// MetricReadMiss counts reads that found no document on either path.
	MetricReadMiss
	// MetricUpdateConflict counts CAS precondition failures on update.
	MetricUpdateConflict
	// MetricFlushFailure counts swallowed persistence failures at request
	// completion.
	MetricFlushFailure
	// MetricSessionRemoved counts explicit session removals.
	MetricSessionRemoved
	// MetricSessionRenamed counts successful id renames.
	MetricSessionRenamed

	metricCount
)

type metrics struct {
	counters [metricCount]atomic.Uint64
}

func (m *metrics) inc(id MetricID) {
	if id < metricCount {
		m.counters[id].Add(1)
	}
}

func (m *metrics) load(id MetricID) uint64 {
	if id >= metricCount {
		return 0
	}
	return m.counters[id].Load()
}

// MetricsSnapshot is a point-in-time copy of the Manager's counters.
type MetricsSnapshot struct {
	SessionCreated  uint64
	SessionRead     uint64
	ReadMiss        uint64
	ReplicaFallback uint64
	UpdateConflict  uint64
	FlushFailure    uint64
	SessionRemoved  uint64
	SessionRenamed  uint64
}

// Metrics returns a consistent-enough snapshot of the counters. Each
// counter is loaded atomically; the snapshot as a whole is not a
// transaction.
func (m *Manager) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		SessionCreated:  m.metrics.load(MetricSessionCreated),
		SessionRead:     m.metrics.load(MetricSessionRead),
		ReadMiss:        m.metrics.load(MetricReadMiss),
		ReplicaFallback: m.store.ReplicaFallbacks(),
		UpdateConflict:  m.metrics.load(MetricUpdateConflict),
		FlushFailure:    m.metrics.load(MetricFlushFailure),
		SessionRemoved:  m.metrics.load(MetricSessionRemoved),
		SessionRenamed:  m.metrics.load(MetricSessionRenamed),
	}
}
