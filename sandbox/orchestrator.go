// Package sandbox implements the orchestrator (§4.1): the component that
// owns one wazero runtime, compiles and runs QuickJS-over-WASM isolates
// against the bootstrap runtime of §4.6, and exposes the hook/report/stats
// surface the rest of the module is built around. Modeled directly on the
// teacher's executor.Executor, specialised to a single, always-present
// language (QuickJS) rather than a pluggable Language interface, since this
// module has exactly one guest engine.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	quickjswasi "github.com/paralin/go-quickjs-wasi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wardenjs/warden/hook"
	"github.com/wardenjs/warden/metrics"
	"github.com/wardenjs/warden/report"
	"github.com/wardenjs/warden/resolver"
	"github.com/wardenjs/warden/sourcecache"
)

// Result is the return value of a successful Run (§4.1 step 9): the value
// the guest code returned (nil if it returned nothing) and the run's
// wall-clock duration. A timeout or memory-limit kill is reported through
// Run's error, not through Result.
type Result struct {
	Value    any
	Duration time.Duration
}

// Orchestrator owns one wazero runtime and the isolate lifecycle described
// in §3.6 and §5: a fresh wazero module instance per Run, but one shared
// compiled QuickJS module and one shared hook registry/report store across
// every Run until Dispose.
type Orchestrator struct {
	opts Options

	mu      sync.Mutex
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	engine  wazero.CompiledModule

	hooks    *hook.Registry
	store    *report.Store
	resolver *resolver.Driver
	sources  *sourcecache.Cache

	stats       statsTracker
	nextValueID int64 // host-tracked; see bootstrapConfig.NextValueID and §9
	closed      bool
}

// New creates an Orchestrator (§4.1 "new(options)"). The default hook set
// (§4.3) is installed immediately; SetResolver must be called before any Run
// that references an external specifier.
func New(options Options) (*Orchestrator, error) {
	opts := options.defaulted()
	ctx := context.Background()

	var cache wazero.CompilationCache
	if opts.DiskCacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(opts.DiskCacheDir)
		if err != nil {
			return nil, fmt.Errorf("sandbox: create disk cache: %w", err)
		}
		cache = c
	}

	rt, engine, err := newRuntimeAndEngine(ctx, opts, cache)
	if err != nil {
		if cache != nil {
			cache.Close(ctx)
		}
		return nil, err
	}

	rdrv, err := resolver.New(opts.Origin)
	if err != nil {
		rt.Close(ctx)
		if cache != nil {
			cache.Close(ctx)
		}
		return nil, err
	}

	hooks := hook.New()
	hooks.InstallDefaults()

	return &Orchestrator{
		opts:        opts,
		runtime:     rt,
		cache:       cache,
		engine:      engine,
		hooks:       hooks,
		store:       report.New(),
		resolver:    rdrv,
		sources:     sourcecache.New(),
		nextValueID: 1,
	}, nil
}

// newRuntimeAndEngine builds a fresh wazero runtime plus its compiled
// QuickJS module, sharing cache (which outlives any single runtime). Used
// both by New and by the watchdog-fired recovery path in Run, which must
// recreate the runtime rather than reuse one that may still be running a
// stuck guest (§5).
func newRuntimeAndEngine(ctx context.Context, opts Options, cache wazero.CompilationCache) (wazero.Runtime, wazero.CompiledModule, error) {
	rtConfig := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(memoryLimitPages(opts.MaxMemoryMiB))
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, nil, fmt.Errorf("sandbox: instantiate WASI: %w", err)
	}

	engine, err := rt.CompileModule(ctx, quickjswasi.QuickJSWASM)
	if err != nil {
		rt.Close(ctx)
		return nil, nil, fmt.Errorf("sandbox: compile QuickJS module: %w", err)
	}
	return rt, engine, nil
}

// SetResolver installs the user resolver callback driving module/source
// fetches (§4.5, §6.4).
func (o *Orchestrator) SetResolver(fn resolver.Func) {
	o.resolver.SetFunc(fn)
}

// Hook installs or overwrites a hook at path (§4.3). value must be a
// hook.Func, a hook.Reference, hook.Undefined, or a structured-cloneable Go
// value.
func (o *Orchestrator) Hook(path string, value any, isWritable bool) error {
	return o.hooks.Set(path, value, isWritable)
}

// Unhook removes any hook at path. Later runs no longer install it, so the
// path is reached through the hijacked global like any other unhooked name.
func (o *Orchestrator) Unhook(path string) {
	o.hooks.Unset(path)
}

// Report returns the store backing this orchestrator's recorded events.
// Callers query it directly via report.Query rather than through the
// orchestrator, per §4.2.
func (o *Orchestrator) Report() *report.Store {
	return o.store
}

// Stats returns a snapshot of cumulative isolate statistics (§4.1).
func (o *Orchestrator) Stats() Stats {
	return o.stats.snapshot()
}

// Run executes sourceCode as specifier against a fresh isolate (§4.1 steps
// 1-9): resolve/compile/bootstrap/run/collect. A forced disposal (timeout or
// memory limit) surfaces as ErrTimeout/ErrMemoryLimit; a syntax error that
// stops QuickJS before the bootstrap reports a result surfaces as
// ErrParsing; a guest-thrown exception surfaces as *ExecutionError. After
// Dispose, the next Run builds a fresh runtime.
func (o *Orchestrator) Run(ctx context.Context, specifier, sourceCode string, runOpts ...RunOption) (*Result, error) {
	cfg := runConfig{timeout: o.opts.Timeout, sourceType: o.opts.SourceType}
	for _, opt := range runOpts {
		opt(&cfg)
	}

	start := time.Now()

	o.mu.Lock()
	if o.closed {
		// The disk compilation cache was closed by Dispose, so the rebuilt
		// runtime does not use it.
		rt, engine, err := newRuntimeAndEngine(context.Background(), o.opts, nil)
		if err != nil {
			o.mu.Unlock()
			return nil, err
		}
		o.runtime, o.engine, o.cache, o.closed = rt, engine, nil, false
	}
	o.mu.Unlock()

	sourceURL, src, err := o.resolveSource(ctx, specifier, sourceCode)
	if err != nil {
		return nil, err
	}

	var userCode string
	if cfg.sourceType == SourceModule {
		userCode, err = buildModuleUserCode(ctx, o.resolver, o.sources, sourceURL, string(src))
		if err != nil {
			return nil, err
		}
	} else {
		userCode = string(src)
	}

	o.mu.Lock()
	nextValueID := o.nextValueID
	o.mu.Unlock()

	guestSource, err := buildGuestSource(o.hooks, o.opts.Origin, sourceURL, userCode, nextValueID)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	wd := newWatchdog(cfg.timeout + WatchdogGrace)
	defer wd.stop()

	var stdout bytes.Buffer
	stdinReader, stdinWriter := io.Pipe()
	protocol := newProtocolHandler(runCtx, o.store, o.hooks, o.opts.Logger, stdinWriter)

	args := []string{"qjs", "--std", "-e", guestSource}
	moduleConfig := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(protocol).
		WithStdin(stdinReader).
		WithArgs(args...).
		WithName("")

	errCh := make(chan error, 1)
	go func() {
		_, err := o.runtime.InstantiateModule(runCtx, o.engine, moduleConfig)
		stdinWriter.Close()
		errCh <- err
	}()

	var runErr error
	var stuck bool
	select {
	case runErr = <-errCh:
	case <-wd.fired():
		stuck = true
	}

	duration := time.Since(start)
	metrics.RunsTotal.Inc()
	metrics.RunDuration.Observe(duration.Seconds())

	if stuck {
		metrics.TimeoutsTotal.Inc()
		// The soft deadline did not end the guest within the watchdog's
		// grace period, so the isolate is forcibly disposed and recreated
		// (§5) rather than left running in the background.
		o.recycleRuntime()
		return nil, ErrTimeout
	}
	if runErr != nil {
		// Memory-limit classification takes precedence over a coincident
		// deadline expiry (§9 Open Question 2: "memory wins" when a run
		// exceeds both bounds at once).
		if isMemoryLimitError(runErr) {
			metrics.MemoryKillsTotal.Inc()
			return nil, ErrMemoryLimit
		}
		if runCtx.Err() == context.DeadlineExceeded {
			metrics.TimeoutsTotal.Inc()
			return nil, ErrTimeout
		}
		if !protocol.gotResult && bytes.Contains(protocol.plainOut.Bytes(), []byte("SyntaxError")) {
			return nil, fmt.Errorf("%w: %s", ErrParsing, bytes.TrimSpace(protocol.plainOut.Bytes()))
		}
		o.opts.Logger.Debug("guest run failed", zap.Error(runErr),
			zap.String("stdout", stdout.String()), zap.String("stderr", protocol.PlainOutput()))
		return nil, &ExecutionError{Cause: runErr}
	}
	if protocol.dispatchErr != nil {
		return nil, fmt.Errorf("sandbox: protocol error: %w", protocol.dispatchErr)
	}

	o.stats.commit(duration, duration, 0)
	metrics.ReportSize.Set(float64(o.store.Size()))

	if protocol.gotResult && protocol.result.NextValueID > 0 {
		o.mu.Lock()
		if protocol.result.NextValueID > o.nextValueID {
			o.nextValueID = protocol.result.NextValueID
		}
		o.mu.Unlock()
	}

	result := &Result{Duration: duration}
	if protocol.gotResult {
		if protocol.result.Error != "" {
			return nil, &ExecutionError{Cause: fmt.Errorf("%s", protocol.result.Error)}
		}
		result.Value = protocol.result.Value
	}
	return result, nil
}

// recycleRuntime forcibly closes and recreates the wazero runtime and its
// compiled QuickJS module after the watchdog fires, so a stuck guest's
// background execution is actually torn down instead of left running
// alongside the next Run call's fresh module instantiation (§5).
func (o *Orchestrator) recycleRuntime() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	bg := context.Background()
	_ = o.runtime.Close(bg)

	rt, engine, err := newRuntimeAndEngine(bg, o.opts, o.cache)
	if err != nil {
		// Mark the orchestrator closed rather than operate on a half-built
		// runtime; the next Run tries to build a fresh one and returns its
		// error if that fails too.
		o.closed = true
		return
	}
	o.runtime = rt
	o.engine = engine
}

// resolveSource picks between the explicit sourceCode argument and the
// resolver-driven fetch, per §3.5's cache-invalidation rule: explicit source
// for a specifier always wins over, and invalidates, any cached compilation
// for that same URL.
func (o *Orchestrator) resolveSource(ctx context.Context, specifier, sourceCode string) (sourceURL string, src []byte, err error) {
	if sourceCode != "" {
		u, err := o.resolver.ResolveURL(specifier, "")
		if err != nil {
			return "", nil, err
		}
		o.sources.Invalidate(u.String())
		return u.String(), []byte(sourceCode), nil
	}

	u, err := o.resolver.ResolveURL(specifier, "")
	if err != nil {
		return "", nil, err
	}
	if cached, ok := o.sources.Get(u.String()); ok {
		return u.String(), cached, nil
	}

	url, src, err := o.resolver.Fetch(ctx, specifier, "")
	if err != nil {
		return "", nil, err
	}
	o.sources.Put(url, src)
	return url, src, nil
}

// Dispose releases the wazero runtime and all compiled modules and resets
// the stats counters. If clearReport is true the report store and the
// next-value-id counter are also reset; otherwise the report remains
// readable after Dispose (§3.6).
func (o *Orchestrator) Dispose(clearReport bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	ctx := context.Background()
	var errs []error
	if err := o.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if o.cache != nil {
		if err := o.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	o.sources.Clear()
	o.stats.reset()

	if clearReport {
		o.store.Clear()
		o.nextValueID = 1
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
