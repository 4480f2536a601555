package sandbox

import (
	"sync"
	"time"
)

// Stats reports cumulative wall time and the run count for the current
// isolate (§4.1). CPUTime accumulates the same wall-clock duration per run
// and HeapBytes is always zero: the orchestrator reads no CPU or heap
// counter from the engine. On dispose they reset to zero. After a forced
// disposal (watchdog or memory kill), stats for the aborted run are not
// merged - callers observe pre-run stats, per §5. Timeout/memory-kill
// occurrence counts are not part of this contract; they live in
// metrics.TimeoutsTotal/metrics.MemoryKillsTotal instead, which are
// untouched by Dispose and so stay accurate across isolate resets.
type Stats struct {
	WallTime  time.Duration
	CPUTime   time.Duration
	HeapBytes uint64
	RunCount  int
}

type statsTracker struct {
	mu sync.Mutex
	s  Stats
}

func (t *statsTracker) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

func (t *statsTracker) reset() {
	t.mu.Lock()
	t.s = Stats{}
	t.mu.Unlock()
}

// commit merges a completed run's measurements into the tracker. aborted
// runs must not call commit, per the "stats not merged on forced disposal"
// rule.
func (t *statsTracker) commit(wall, cpu time.Duration, heap uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.WallTime += wall
	t.s.CPUTime += cpu
	t.s.HeapBytes = heap
	t.s.RunCount++
}
