package sandbox

import "time"

// watchdog is the host-side backstop of §5: the soft timeout is a context
// deadline wazero's CloseOnContextDone tears the module instance down on,
// but that teardown is itself not instantaneous, so callers additionally
// race the module's completion channel against a watchdog firing at
// timeout+WatchdogGrace and report ErrTimeout rather than blocking forever
// if the module genuinely never unwinds.
type watchdog struct {
	timer *time.Timer
	done  chan struct{}
}

func newWatchdog(d time.Duration) *watchdog {
	w := &watchdog{done: make(chan struct{})}
	w.timer = time.AfterFunc(d, func() { close(w.done) })
	return w
}

func (w *watchdog) fired() <-chan struct{} {
	return w.done
}

func (w *watchdog) stop() {
	w.timer.Stop()
}
