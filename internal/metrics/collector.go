// Package metrics provides in-memory timing collection for pipeline stages.
package metrics

import (
	"sync"
	"time"
)

// Collector accumulates wall-clock time per named stage. Safe for
// concurrent use; the progress callback and the pipeline run on
// different goroutines.
type Collector struct {
	mu        sync.Mutex
	starts    map[string]time.Time
	durations map[string]time.Duration
	order     []string
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		starts:    make(map[string]time.Time),
		durations: make(map[string]time.Duration),
	}
}

// Start marks the beginning of a stage. Starting an already running
// stage restarts its clock.
func (c *Collector) Start(stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.durations[stage]; !seen {
		if _, running := c.starts[stage]; !running {
			c.order = append(c.order, stage)
		}
	}
	c.starts[stage] = time.Now()
}

// Stop ends a stage and accumulates its elapsed time. Stopping a
// stage that was never started is a no-op.
func (c *Collector) Stop(stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start, ok := c.starts[stage]
	if !ok {
		return
	}
	delete(c.starts, stage)
	c.durations[stage] += time.Since(start)
}

// Snapshot returns the accumulated durations keyed by stage.
func (c *Collector) Snapshot() map[string]time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]time.Duration, len(c.durations))
	for stage, d := range c.durations {
		out[stage] = d
	}
	return out
}

// Attrs renders the accumulated durations as alternating key/value
// pairs for slog, in the order the stages first started.
func (c *Collector) Attrs() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	attrs := make([]any, 0, len(c.order)*2)
	for _, stage := range c.order {
		if d, ok := c.durations[stage]; ok {
			attrs = append(attrs, stage, d.Round(time.Millisecond))
		}
	}
	return attrs
}
