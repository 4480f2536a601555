// Package bench provides honest benchmarks for the sandbox orchestrator.
//
// Run with: go test -v -run=Test ./bench/
// Benchmarks: go test -bench=. -benchtime=3x ./bench/
package bench

import (
	"context"
	"testing"

	"github.com/wardenjs/warden/event"
	"github.com/wardenjs/warden/report"
	"github.com/wardenjs/warden/sandbox"
)

// =============================================================================
// HONEST BENCHMARK SUITE
// =============================================================================
// The value proposition of warden is instrumentation coverage, not raw
// speed: every global access pays a Proxy trap and an event-sink round trip.
// These benchmarks measure that cost directly rather than hiding it.
// =============================================================================

// --- Cold start: new orchestrator per iteration ---

func BenchmarkColdStart(b *testing.B) {
	for i := 0; i < b.N; i++ {
		orch, err := sandbox.New(sandbox.Options{})
		if err != nil {
			b.Fatal(err)
		}
		orch.Run(context.Background(), "bench.js", "1+1")
		orch.Dispose(true)
	}
}

// --- Warm start: one orchestrator reused across Run calls ---

func BenchmarkWarmStart(b *testing.B) {
	orch, err := sandbox.New(sandbox.Options{})
	if err != nil {
		b.Fatal(err)
	}
	defer orch.Dispose(true)

	orch.Run(context.Background(), "bench.js", "1+1") // warm the compiled engine

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		orch.Run(context.Background(), "bench.js", "1+1")
	}
}

// --- Instrumentation overhead: bare arithmetic vs touching mocked globals ---

func BenchmarkWarmStart_GlobalAccess(b *testing.B) {
	orch, err := sandbox.New(sandbox.Options{})
	if err != nil {
		b.Fatal(err)
	}
	defer orch.Dispose(true)

	const code = "JSON.stringify({a:1,b:[1,2,3]})"
	orch.Run(context.Background(), "bench.js", code)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		orch.Run(context.Background(), "bench.js", code)
	}
}

// --- Report growth: how query latency scales with event count ---

func BenchmarkReportQuery(b *testing.B) {
	orch, err := sandbox.New(sandbox.Options{})
	if err != nil {
		b.Fatal(err)
	}
	defer orch.Dispose(true)

	orch.Run(context.Background(), "bench.js", `
		for (let i = 0; i < 200; i++) { JSON.stringify({i}); }
	`)

	q := report.Query{}.WithType(event.Call).WithPath("JSON.stringify")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for range orch.Report().FindAll(q) {
		}
	}
}
