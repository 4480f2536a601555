package sandbox

import (
	"testing"
	"time"
)

func TestWatchdogFiresAfterDuration(t *testing.T) {
	w := newWatchdog(10 * time.Millisecond)
	select {
	case <-w.fired():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("watchdog did not fire in time")
	}
}

func TestWatchdogStopPreventsFiring(t *testing.T) {
	w := newWatchdog(50 * time.Millisecond)
	w.stop()
	select {
	case <-w.fired():
		t.Fatal("watchdog fired despite being stopped")
	case <-time.After(100 * time.Millisecond):
	}
}
