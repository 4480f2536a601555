package sandbox

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/wardenjs/warden/hook"
)

func TestKindString(t *testing.T) {
	if kindString(hook.Callable) != "callable" {
		t.Errorf("Callable = %q", kindString(hook.Callable))
	}
	if kindString(hook.Alias) != "alias" {
		t.Errorf("Alias = %q", kindString(hook.Alias))
	}
	if kindString(hook.Copy) != "copy" {
		t.Errorf("Copy = %q", kindString(hook.Copy))
	}
}

func TestBuildGuestSourceEmbedsConfigAndUserCode(t *testing.T) {
	reg := hook.New()
	if err := reg.Set("document.title", "hi", true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := reg.Set("window", hook.Reference{Path: "globalThis"}, true); err != nil {
		t.Fatalf("Set: %v", err)
	}

	src, err := buildGuestSource(reg, "file:///app/", "file:///app/main.js", "1+1", 1)
	if err != nil {
		t.Fatalf("buildGuestSource: %v", err)
	}

	if !strings.Contains(src, "const __WARDEN_CONFIG__ =") {
		t.Fatal("expected a __WARDEN_CONFIG__ declaration")
	}
	if !strings.Contains(src, "1+1") {
		t.Fatal("expected user code to be embedded")
	}
	if !strings.Contains(src, "//# sourceURL=file:///app/main.js") {
		t.Fatal("expected a sourceURL comment for stack trace mapping")
	}
	if !strings.Contains(src, "__warden_reportResult") || !strings.Contains(src, "__warden_reportError") {
		t.Fatal("expected the result/error reporting wrapper")
	}

	// The config JSON embedded between "= " and the next ";\n" must decode
	// and round-trip the hooks we registered.
	start := strings.Index(src, "= ") + 2
	end := strings.Index(src[start:], ";\n") + start
	var cfg bootstrapConfig
	if err := json.Unmarshal([]byte(src[start:end]), &cfg); err != nil {
		t.Fatalf("decoding embedded config: %v", err)
	}
	if cfg.Origin != "file:///app/" || cfg.SourceURL != "file:///app/main.js" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(cfg.Hooks))
	}
	if cfg.NextValueID != 1 {
		t.Fatalf("NextValueID = %d, want 1", cfg.NextValueID)
	}
}

func TestBuildGuestSourceSeedsNextValueID(t *testing.T) {
	reg := hook.New()
	src, err := buildGuestSource(reg, "file:///app/", "file:///app/main.js", "1", 42)
	if err != nil {
		t.Fatalf("buildGuestSource: %v", err)
	}

	start := strings.Index(src, "= ") + 2
	end := strings.Index(src[start:], ";\n") + start
	var cfg bootstrapConfig
	if err := json.Unmarshal([]byte(src[start:end]), &cfg); err != nil {
		t.Fatalf("decoding embedded config: %v", err)
	}
	if cfg.NextValueID != 42 {
		t.Fatalf("NextValueID = %d, want 42", cfg.NextValueID)
	}
}

func TestBuildGuestSourceCallableHookOmitsValue(t *testing.T) {
	reg := hook.New()
	fn := hook.Func(func(ctx context.Context, args []any) (any, error) { return nil, nil })
	if err := reg.Set("fetch", fn, true); err != nil {
		t.Fatalf("Set: %v", err)
	}

	src, err := buildGuestSource(reg, "file:///app/", "file:///app/main.js", "1", 1)
	if err != nil {
		t.Fatalf("buildGuestSource: %v", err)
	}

	start := strings.Index(src, "= ") + 2
	end := strings.Index(src[start:], ";\n") + start
	var cfg bootstrapConfig
	if err := json.Unmarshal([]byte(src[start:end]), &cfg); err != nil {
		t.Fatalf("decoding embedded config: %v", err)
	}
	if len(cfg.Hooks) != 1 || cfg.Hooks[0].Kind != "callable" {
		t.Fatalf("expected one callable hook, got %+v", cfg.Hooks)
	}
	if cfg.Hooks[0].Value != nil {
		t.Fatalf("callable hook must not carry a Value, got %v", cfg.Hooks[0].Value)
	}
}
