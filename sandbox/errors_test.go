package sandbox

import (
	"errors"
	"testing"
)

func TestIsMemoryLimitError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("wasm: out of memory"), true},
		{errors.New("failed to grow memory to 200 pages"), true},
		{errors.New("memory.grow: limit exceeded"), true},
		{errors.New("random OOM killer invoked"), true},
		{errors.New("context deadline exceeded"), false},
		{errors.New("syntax error at line 1"), false},
	}
	for _, c := range cases {
		if got := isMemoryLimitError(c.err); got != c.want {
			t.Errorf("isMemoryLimitError(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestExecutionErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := &ExecutionError{Cause: cause}
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
	if e.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}
