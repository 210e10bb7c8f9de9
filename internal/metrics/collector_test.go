package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollectorAccumulates(t *testing.T) {
	c := NewCollector()

	c.Start("fetch")
	time.Sleep(5 * time.Millisecond)
	c.Stop("fetch")

	snap := c.Snapshot()
	if snap["fetch"] < 5*time.Millisecond {
		t.Errorf("expected at least 5ms recorded, got %s", snap["fetch"])
	}

	// A second interval adds to the first.
	before := snap["fetch"]
	c.Start("fetch")
	time.Sleep(5 * time.Millisecond)
	c.Stop("fetch")
	if got := c.Snapshot()["fetch"]; got <= before {
		t.Errorf("expected accumulation beyond %s, got %s", before, got)
	}
}

func TestCollectorStopWithoutStart(t *testing.T) {
	c := NewCollector()
	c.Stop("never-started")
	if len(c.Snapshot()) != 0 {
		t.Error("expected empty snapshot")
	}
}

func TestCollectorAttrsOrdered(t *testing.T) {
	c := NewCollector()
	for _, stage := range []string{"fetch", "correlate", "save"} {
		c.Start(stage)
		c.Stop(stage)
	}

	attrs := c.Attrs()
	if len(attrs) != 6 {
		t.Fatalf("expected 6 attr elements, got %d", len(attrs))
	}
	if attrs[0] != "fetch" || attrs[2] != "correlate" || attrs[4] != "save" {
		t.Errorf("attrs out of start order: %v", attrs)
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Start("stage")
			c.Stop("stage")
			c.Snapshot()
		}()
	}
	wg.Wait()
}
