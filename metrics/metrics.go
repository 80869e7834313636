// Package metrics provides a process-local registry of named counters and
// latency timers. The registry is the leaf dependency of the resilience
// layer: the pool, the retry executor, and the batcher all record into it,
// and health surfaces read immutable snapshots out of it.
package metrics

import (
	"sync"
	"time"
)

// Registry accumulates counters and timer samples. All methods are safe
// for concurrent use; mutation holds a single lock only for the in-memory
// update. The registry never resets itself; see Reset.
type Registry struct {
	mu       sync.Mutex
	counters map[string]int64
	timers   map[string]*timer
}

// timer keeps the running aggregate for one named duration metric.
// Average is the only derived statistic reported, so individual samples
// are not retained.
type timer struct {
	count int64
	total time.Duration
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]int64),
		timers:   make(map[string]*timer),
	}
}

// Increment adds 1 to the named counter.
func (r *Registry) Increment(name string) {
	r.Add(name, 1)
}

// Add adds delta to the named counter, creating it if needed.
func (r *Registry) Add(name string, delta int64) {
	r.mu.Lock()
	r.counters[name] += delta
	r.mu.Unlock()
}

// RecordTime records one duration sample for the named timer.
func (r *Registry) RecordTime(name string, d time.Duration) {
	r.mu.Lock()
	t, ok := r.timers[name]
	if !ok {
		t = &timer{}
		r.timers[name] = t
	}
	t.count++
	t.total += d
	r.mu.Unlock()
}

// Reset discards all counters and timers. Resets are always explicit;
// nothing inside the registry triggers one.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.counters = make(map[string]int64)
	r.timers = make(map[string]*timer)
	r.mu.Unlock()
}

// TimerStats reports the aggregate of one timer.
type TimerStats struct {
	Count int64         `json:"count"`
	Avg   time.Duration `json:"avg"`
}

// Snapshot is an immutable point-in-time copy of the registry.
type Snapshot struct {
	Counters map[string]int64      `json:"counters"`
	Timers   map[string]TimerStats `json:"timers"`
}

// Snapshot returns a copy of all counters and derived timer statistics.
// The snapshot does not observe later mutation.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Counters: make(map[string]int64, len(r.counters)),
		Timers:   make(map[string]TimerStats, len(r.timers)),
	}
	for name, v := range r.counters {
		snap.Counters[name] = v
	}
	for name, t := range r.timers {
		stats := TimerStats{Count: t.count}
		if t.count > 0 {
			stats.Avg = t.total / time.Duration(t.count)
		}
		snap.Timers[name] = stats
	}
	return snap
}

// Counter returns the current value of the named counter.
// Unknown counters read as zero.
func (r *Registry) Counter(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name]
}
