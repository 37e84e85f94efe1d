package websocket

import (
	"sync"
	"time"
)

// BroadcastMetrics tracks flush activity of the hub
type BroadcastMetrics struct {
	mu sync.RWMutex

	ticks          int64
	skippedTicks   int64
	flushedUpdates int64
	droppedUpdates int64
	delivered      int64
	failedSends    int64

	lastFlushAt       time.Time
	lastFlushDuration time.Duration
	peakFlushDuration time.Duration
	peakBatchSize     int
}

// MetricsSnapshot is a point-in-time copy of BroadcastMetrics
type MetricsSnapshot struct {
	Ticks             int64         `json:"ticks"`
	SkippedTicks      int64         `json:"skippedTicks"`
	FlushedUpdates    int64         `json:"flushedUpdates"`
	DroppedUpdates    int64         `json:"droppedUpdates"`
	Delivered         int64         `json:"delivered"`
	FailedSends       int64         `json:"failedSends"`
	LastFlushAt       time.Time     `json:"lastFlushAt"`
	LastFlushDuration time.Duration `json:"lastFlushDuration"`
	PeakFlushDuration time.Duration `json:"peakFlushDuration"`
	PeakBatchSize     int           `json:"peakBatchSize"`
}

func NewBroadcastMetrics() *BroadcastMetrics {
	return &BroadcastMetrics{}
}

// RecordFlush records one completed flush
func (m *BroadcastMetrics) RecordFlush(batch, dropped, delivered, failed int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ticks++
	m.flushedUpdates += int64(batch)
	m.droppedUpdates += int64(dropped)
	m.delivered += int64(delivered)
	m.failedSends += int64(failed)
	m.lastFlushAt = time.Now()
	m.lastFlushDuration = duration

	if duration > m.peakFlushDuration {
		m.peakFlushDuration = duration
	}
	if batch > m.peakBatchSize {
		m.peakBatchSize = batch
	}
}

// RecordSkippedTick records a tick that found the previous flush still running
func (m *BroadcastMetrics) RecordSkippedTick() {
	m.mu.Lock()
	m.skippedTicks++
	m.mu.Unlock()
}

func (m *BroadcastMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		Ticks:             m.ticks,
		SkippedTicks:      m.skippedTicks,
		FlushedUpdates:    m.flushedUpdates,
		DroppedUpdates:    m.droppedUpdates,
		Delivered:         m.delivered,
		FailedSends:       m.failedSends,
		LastFlushAt:       m.lastFlushAt,
		LastFlushDuration: m.lastFlushDuration,
		PeakFlushDuration: m.peakFlushDuration,
		PeakBatchSize:     m.peakBatchSize,
	}
}
