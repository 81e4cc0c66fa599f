package batchio

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the batch-latency histogram buckets in nanoseconds,
// from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics for batch calls. All fields are
// updated atomically; one Metrics value may be shared across many calls.
type Metrics struct {
	// Batch counters
	WriteBatches atomic.Uint64 // Completed BatchWrite calls (success or failure)
	ReadBatches  atomic.Uint64 // Completed BatchRead calls (success or failure)

	// Per-operation counters
	WriteOps atomic.Uint64 // Write submissions issued
	ReadOps  atomic.Uint64 // Read submissions issued
	FlushOps atomic.Uint64 // Durability barriers issued

	// Byte counters (only successful batches accumulate bytes)
	WriteBytes atomic.Uint64
	ReadBytes  atomic.Uint64

	// Error counters (one per failed batch, by direction)
	WriteErrors atomic.Uint64
	ReadErrors  atomic.Uint64

	// Batch size statistics
	EntriesTotal atomic.Uint64 // Cumulative entry counts across batches
	BatchCount   atomic.Uint64 // Number of batches sampled
	MaxEntries   atomic.Uint32 // Largest batch observed

	// Latency tracking (whole-batch latency, init through last completion)
	TotalLatencyNs atomic.Uint64
	LatencyCount   atomic.Uint64

	// Histogram buckets: bucket[i] counts batches with latency <= LatencyBuckets[i]
	LatencyHist [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64 // First-use timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordWriteBatch records one completed BatchWrite call.
func (m *Metrics) RecordWriteBatch(entries int, bytes uint64, latency time.Duration, success bool) {
	m.WriteBatches.Add(1)
	m.WriteOps.Add(uint64(entries))
	m.FlushOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordBatchSize(entries)
	m.recordLatency(uint64(latency.Nanoseconds()))
}

// RecordReadBatch records one completed BatchRead call.
func (m *Metrics) RecordReadBatch(entries int, bytes uint64, latency time.Duration, success bool) {
	m.ReadBatches.Add(1)
	m.ReadOps.Add(uint64(entries))
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordBatchSize(entries)
	m.recordLatency(uint64(latency.Nanoseconds()))
}

func (m *Metrics) recordBatchSize(entries int) {
	m.EntriesTotal.Add(uint64(entries))
	m.BatchCount.Add(1)

	for {
		current := m.MaxEntries.Load()
		if uint32(entries) <= current {
			break
		}
		if m.MaxEntries.CompareAndSwap(current, uint32(entries)) {
			break
		}
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.LatencyCount.Add(1)

	// Buckets are cumulative.
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyHist[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time copy of the counters plus derived
// statistics.
type MetricsSnapshot struct {
	WriteBatches uint64
	ReadBatches  uint64

	WriteOps uint64
	ReadOps  uint64
	FlushOps uint64

	WriteBytes uint64
	ReadBytes  uint64

	WriteErrors uint64
	ReadErrors  uint64

	AvgEntries float64
	MaxEntries uint32

	AvgLatencyNs uint64
	LatencyP50Ns uint64
	LatencyP99Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	TotalBatches uint64
	TotalBytes   uint64
	ErrorRate    float64 // Percentage of failed batches
	UptimeNs     uint64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		WriteBatches: m.WriteBatches.Load(),
		ReadBatches:  m.ReadBatches.Load(),
		WriteOps:     m.WriteOps.Load(),
		ReadOps:      m.ReadOps.Load(),
		FlushOps:     m.FlushOps.Load(),
		WriteBytes:   m.WriteBytes.Load(),
		ReadBytes:    m.ReadBytes.Load(),
		WriteErrors:  m.WriteErrors.Load(),
		ReadErrors:   m.ReadErrors.Load(),
		MaxEntries:   m.MaxEntries.Load(),
	}

	snap.TotalBatches = snap.WriteBatches + snap.ReadBatches
	snap.TotalBytes = snap.WriteBytes + snap.ReadBytes

	entriesTotal := m.EntriesTotal.Load()
	batchCount := m.BatchCount.Load()
	if batchCount > 0 {
		snap.AvgEntries = float64(entriesTotal) / float64(batchCount)
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	latencyCount := m.LatencyCount.Load()
	if latencyCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / latencyCount
		snap.LatencyP50Ns = m.percentile(0.50)
		snap.LatencyP99Ns = m.percentile(0.99)
	}

	totalErrors := snap.WriteErrors + snap.ReadErrors
	if snap.TotalBatches > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalBatches) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyHist[i].Load()
	}

	snap.UptimeNs = uint64(time.Now().UnixNano() - m.StartTime.Load())

	return snap
}

// percentile returns the upper bound of the first histogram bucket whose
// cumulative count covers the requested quantile. Resolution is limited to
// the bucket boundaries.
func (m *Metrics) percentile(q float64) uint64 {
	count := m.LatencyCount.Load()
	if count == 0 {
		return 0
	}
	threshold := uint64(float64(count) * q)
	if threshold == 0 {
		threshold = 1
	}
	for i := 0; i < numLatencyBuckets; i++ {
		if m.LatencyHist[i].Load() >= threshold {
			return LatencyBuckets[i]
		}
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters and restarts the uptime clock.
func (m *Metrics) Reset() {
	m.WriteBatches.Store(0)
	m.ReadBatches.Store(0)
	m.WriteOps.Store(0)
	m.ReadOps.Store(0)
	m.FlushOps.Store(0)
	m.WriteBytes.Store(0)
	m.ReadBytes.Store(0)
	m.WriteErrors.Store(0)
	m.ReadErrors.Store(0)
	m.EntriesTotal.Store(0)
	m.BatchCount.Store(0)
	m.MaxEntries.Store(0)
	m.TotalLatencyNs.Store(0)
	m.LatencyCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyHist[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
}
