package sandbox

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// SourceType selects between the script and module compilation paths (§4.1).
type SourceType string

const (
	SourceScript SourceType = "script"
	SourceModule SourceType = "module"
)

// Defaults from §6.5.
const (
	DefaultOrigin       = "file:///"
	DefaultMaxMemoryMiB  = 64
	DefaultTimeout       = 10 * time.Second
	DefaultSourceType    = SourceScript
	WatchdogGrace        = 150 * time.Millisecond
)

// Options configures a new Orchestrator (§4.1 "new(options)").
type Options struct {
	SourceType   SourceType
	Origin       string
	MaxMemoryMiB uint
	Timeout      time.Duration
	Logger       *zap.Logger

	// DiskCacheDir, if non-empty, enables a persistent wazero compilation
	// cache at this directory so the QuickJS engine is only compiled once
	// across process restarts, matching the teacher's WithDiskCache/
	// defaultCacheDir pattern. Empty disables the disk cache (compile once
	// per process, in memory only).
	DiskCacheDir string
}

// defaulted fills zero fields with the §6.5 defaults.
func (o Options) defaulted() Options {
	if o.SourceType == "" {
		o.SourceType = DefaultSourceType
	}
	if o.Origin == "" {
		o.Origin = DefaultOrigin
	}
	if o.MaxMemoryMiB == 0 {
		o.MaxMemoryMiB = DefaultMaxMemoryMiB
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// RunOption overrides per-call settings for a single Run (§4.1).
type RunOption func(*runConfig)

type runConfig struct {
	timeout    time.Duration
	sourceType SourceType
}

// WithTimeout overrides the timeout for this Run call only.
func WithTimeout(d time.Duration) RunOption {
	return func(c *runConfig) { c.timeout = d }
}

// WithSourceType overrides the source type for this Run call only.
func WithSourceType(t SourceType) RunOption {
	return func(c *runConfig) { c.sourceType = t }
}

// memoryLimitPages converts a MiB memory cap to wazero's 64KiB page unit,
// matching the teacher's executor/options.go MemoryLimit* constants
// (MemoryLimit1MB = 16 pages, i.e. 1 page = 64KiB).
func memoryLimitPages(mib uint) uint32 {
	return uint32(mib) * 16
}

// DefaultCacheDir returns the default disk compilation cache location,
// following XDG_CACHE_HOME if set and falling back to ~/.cache/warden, the
// same precedence the teacher's defaultCacheDir used for its own name.
func DefaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "warden")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "warden")
	}
	return filepath.Join(os.TempDir(), "warden-cache")
}
