package sandbox

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/wardenjs/warden/hook"
)

// bootstrapJS is the in-guest runtime (component H): the Proxy mock
// factory, path resolver, identity assignment, globalThis hijack, hook
// materialisation, callback visitor, and source location extraction. It is
// prepended to every run's source, exactly the way the teacher's
// language/javascript/javascript.go prepends stdlib.js, except ours is also
// handed a JSON-encoded hook table and run configuration as a literal
// injected before the bootstrap body.
//
//go:embed bootstrap.js
var bootstrapJS string

// bootstrapConfig is serialized to JSON and spliced into the guest source as
// a const declaration the bootstrap reads at the top of its own script, the
// same "prepend code that defines globals the stdlib consumes" pattern the
// teacher uses to pass config into stdlib.py/stdlib.js (see
// language/python/stdlib.py referencing host-provided registrations).
type bootstrapConfig struct {
	Hooks       []bootstrapHook `json:"hooks"`
	Origin      string          `json:"origin"`
	SourceURL   string          `json:"sourceURL"`
	NextValueID int64           `json:"nextValueId"`
}

type bootstrapHook struct {
	Path       string `json:"path"`
	IsWritable bool   `json:"isWritable"`
	Kind       string `json:"kind"` // "copy" | "callable" | "alias"
	Value      any    `json:"value,omitempty"`
	AliasTo    string `json:"aliasTo,omitempty"`
}

func kindString(k hook.Kind) string {
	switch k {
	case hook.Callable:
		return "callable"
	case hook.Alias:
		return "alias"
	default:
		return "copy"
	}
}

// buildGuestSource assembles the final QuickJS source: the bootstrap runtime,
// the hook table/config it consumes, and the user's code appended last so
// top-level exceptions map back to line numbers the bootstrap's location
// extraction can still resolve against sourceURL. nextValueID seeds the
// guest's value-identity counter so that ids stay monotonically
// non-decreasing across Run calls on the same Orchestrator (§8.1 invariant
// 4) - the host, not the guest, is the single writer of truth for it (§9).
func buildGuestSource(hooks *hook.Registry, origin, sourceURL, userCode string, nextValueID int64) (string, error) {
	cfg := bootstrapConfig{Origin: origin, SourceURL: sourceURL, NextValueID: nextValueID}
	for _, h := range hooks.All() {
		bh := bootstrapHook{
			Path:       h.Path,
			IsWritable: h.IsWritable,
			Kind:       kindString(h.Kind),
		}
		switch h.Kind {
		case hook.Copy:
			bh.Value = h.Value
		case hook.Alias:
			bh.AliasTo = h.AliasTarget
		case hook.Callable:
			// Callable bodies live host-side; the guest only needs to know
			// the path exists and is callable, the actual invocation goes
			// over the hook_call protocol message.
		}
		cfg.Hooks = append(cfg.Hooks, bh)
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("sandbox: encoding bootstrap config: %w", err)
	}

	wrapped := fmt.Sprintf(
		"try { globalThis.__warden_reportResult((function(){\n%s\n})()); } catch (e) { globalThis.__warden_reportError(String(e && e.message || e)); }",
		userCode,
	)

	return fmt.Sprintf("const __WARDEN_CONFIG__ = %s;\n%s\n//# sourceURL=%s\n%s", cfgJSON, bootstrapJS, sourceURL, wrapped), nil
}
