// Package metrics provides in-memory build statistics collection.
package metrics

import (
	"sync"
	"time"
)

// BuildMetrics holds aggregated metrics for one command kind (the wrapper
// script a job runs, e.g. angular vs maven builds).
type BuildMetrics struct {
	Count     int64
	Failures  int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// BuildSnapshot provides computed stats from raw metrics.
type BuildSnapshot struct {
	Count     int64
	Failures  int64
	AvgTimeMs float64
	MinTimeMs int64
	MaxTimeMs int64
}

// Snapshot represents the full run statistics at a point in time.
type Snapshot struct {
	WallClockSeconds float64
	Builds           map[string]BuildSnapshot
}

// Collector aggregates build timings for one run. Safe for concurrent use
// by the executor workers.
type Collector struct {
	mu      sync.Mutex
	started time.Time
	builds  map[string]*BuildMetrics
}

// NewCollector creates a collector with the run start time set to now.
func NewCollector() *Collector {
	return &Collector{
		started: time.Now(),
		builds:  make(map[string]*BuildMetrics),
	}
}

// RecordBuild adds one finished build to the stats for its kind.
func (c *Collector) RecordBuild(kind string, d time.Duration, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.builds[kind]
	if !ok {
		m = &BuildMetrics{MinTime: d, MaxTime: d}
		c.builds[kind] = m
	}

	m.Count++
	if failed {
		m.Failures++
	}
	m.TotalTime += d
	if d < m.MinTime {
		m.MinTime = d
	}
	if d > m.MaxTime {
		m.MaxTime = d
	}
}

// Snapshot computes the current statistics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		WallClockSeconds: time.Since(c.started).Seconds(),
		Builds:           make(map[string]BuildSnapshot, len(c.builds)),
	}
	for kind, m := range c.builds {
		s.Builds[kind] = BuildSnapshot{
			Count:     m.Count,
			Failures:  m.Failures,
			AvgTimeMs: float64(m.TotalTime.Milliseconds()) / float64(m.Count),
			MinTimeMs: m.MinTime.Milliseconds(),
			MaxTimeMs: m.MaxTime.Milliseconds(),
		}
	}
	return s
}
