package sandbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wardenjs/warden/hook"
	"github.com/wardenjs/warden/pathvalidate"
	"github.com/wardenjs/warden/resolver"
)

// Error kinds from §7. None is tied to any language's exception hierarchy;
// all are surfaced via Run/Hook and none is recovered internally.
// ErrInvalidPath, ErrInvalidValue and ErrSourceNotFound are the sentinels
// the pathvalidate, hook and resolver packages return, so errors.Is matches
// them on the errors Hook and Run pass through.
var (
	ErrInvalidPath    = pathvalidate.ErrInvalidPath
	ErrInvalidValue   = hook.ErrInvalidValue
	ErrSourceNotFound = resolver.ErrSourceNotFound
	ErrParsing        = errors.New("sandbox: parse error")
	ErrTimeout        = errors.New("sandbox: timeout")
	ErrMemoryLimit    = errors.New("sandbox: memory limit exceeded")
)

// ExecutionError wraps the original guest-thrown value's message (§7). Use
// errors.As to recover Cause.
type ExecutionError struct {
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sandbox: guest execution failed: %v", e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// isMemoryLimitError classifies a wazero instantiation failure as a memory
// limit kill: wazero reports an exceeded WithMemoryLimitPages cap as a
// "memory" growth failure surfaced through the guest's own "out of memory"
// abort rather than a distinct Go error type, so this matches on that
// message the same way the teacher's executor package never needed to
// (Python's interpreter OOMs don't cross the WASM memory grow path the same
// way QuickJS's malloc does).
func isMemoryLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsAny(msg, "out of memory", "memory.grow", "OOM", "failed to grow")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
