// Package hook implements the host-declared override table (§3.4, §4.3):
// literal copies deposited into the guest by deep copy, host callables
// round-tripped across the RPC boundary, and intra-guest aliases that
// redirect reads/calls at one path to another path's mock.
package hook

import (
	"context"
	"fmt"
	"sync"

	"github.com/wardenjs/warden/pathvalidate"
)

// Kind distinguishes the three hook variants of §3.4.
type Kind int

const (
	Copy Kind = iota
	Callable
	Alias
)

// Func is a host-side function invoked when guest code calls a Callable
// hook. args is the structured-clone-decoded argument list; the returned
// value is structured-clone-encoded back into the guest. This signature is
// adapted directly from the teacher's hostfunc.Func.
type Func func(ctx context.Context, args []any) (any, error)

// Hook is one entry in the registry, keyed by Path.
type Hook struct {
	Path       string
	IsWritable bool
	Kind       Kind

	// Copy
	Value any

	// Callable
	Call Func

	// Alias
	AliasTarget string
}

// Registry holds the active hook table for one orchestrator instance. It is
// seeded with the default hook set (§4.3) before any user hook is added.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// New creates an empty registry; callers typically follow with InstallDefaults.
func New() *Registry {
	return &Registry{hooks: make(map[string]Hook)}
}

// Set validates path and classifies value, storing or overwriting the hook
// at that path. value must already be one of: a Func (Callable), a
// Reference (Alias), or any structured-cloneable Go value (Copy).
func (r *Registry) Set(path string, value any, isWritable bool) error {
	if err := pathvalidate.Check(path); err != nil {
		return fmt.Errorf("hook: %w: %q", err, path)
	}

	h := Hook{Path: path, IsWritable: isWritable}
	switch v := value.(type) {
	case Func:
		h.Kind = Callable
		h.Call = v
	case Reference:
		if err := pathvalidate.Check(v.Path); err != nil {
			return fmt.Errorf("hook: alias target: %w: %q", err, v.Path)
		}
		h.Kind = Alias
		h.AliasTarget = v.Path
	default:
		if !isCloneable(value) {
			return fmt.Errorf("hook: %w: value at %q is not structured-cloneable", ErrInvalidValue, path)
		}
		h.Kind = Copy
		h.Value = value
	}

	r.mu.Lock()
	r.hooks[path] = h
	r.mu.Unlock()
	return nil
}

// Unset removes any hook at path.
func (r *Registry) Unset(path string) {
	r.mu.Lock()
	delete(r.hooks, path)
	r.mu.Unlock()
}

// Get returns the hook at path, if any.
func (r *Registry) Get(path string) (Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[path]
	return h, ok
}

// All returns a snapshot of every installed hook, in no particular order.
// Used by the orchestrator to serialise the hook table for the bootstrap.
func (r *Registry) All() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		out = append(out, h)
	}
	return out
}

// Reference names an Alias hook's target path (§3.4).
type Reference struct {
	Path string
}

// undefinedMarker is the Copy-hook payload for the JS `undefined` literal,
// distinct from a Go nil which clones to JS `null`.
type undefinedMarker struct{}

// MarshalJSON encodes the marker as {"undefined": true}, the shape the
// bootstrap's hook decoder turns back into `undefined`.
func (undefinedMarker) MarshalJSON() ([]byte, error) {
	return []byte(`{"undefined":true}`), nil
}

// Undefined is passed as the value to Set to install a literal `undefined`
// hook, as the default hook set does for define/exports/module/require.
var Undefined = undefinedMarker{}

// isCloneable is a conservative approximation of the embedding engine's
// structured-clone acceptance test: primitives, and maps/slices of the same,
// recursively. Functions and channels are rejected.
func isCloneable(v any) bool {
	switch x := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64, undefinedMarker:
		return true
	case map[string]any:
		for _, e := range x {
			if !isCloneable(e) {
				return false
			}
		}
		return true
	case []any:
		for _, e := range x {
			if !isCloneable(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
