package metrics

import "testing"

func TestHandlerNonNil(t *testing.T) {
	if Handler() == nil {
		t.Fatal("expected a non-nil metrics handler")
	}
}

func TestCountersAreUsable(t *testing.T) {
	RunsTotal.Inc()
	TimeoutsTotal.Inc()
	MemoryKillsTotal.Inc()
	SessionsCreated.Inc()
	RunDuration.Observe(0.01)
	ReportSize.Set(3)
}
