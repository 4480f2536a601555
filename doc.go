// Package warden instruments untrusted, browser-oriented JavaScript for
// security research: every run executes inside an isolated QuickJS-over-WASM
// engine with every global mocked behind a recursive Proxy, and every
// property get, set, and call - including ones reached through eval or
// dynamically generated code - is recorded into a queryable event report.
//
// # Overview
//
// warden runs code in a single compiled WASM engine with zero default
// capabilities. Network and key-value storage access must be explicitly
// enabled via hooks; the sandbox has no filesystem access of its own beyond
// the module resolver used to load source.
//
// # Basic Usage
//
//	orch, _ := sandbox.New(sandbox.Options{})
//	defer orch.Dispose(true)
//
//	result, _ := orch.Run(ctx, "main.js", `document.title = "hi"; return 1 + 1`)
//	fmt.Println(result.Value)
//
//	for _, e := range orch.Report().All() {
//	    fmt.Printf("%s %s\n", e.Type, e.Path)
//	}
//
// # Enabling Capabilities
//
//	orch.Hook("fetch", hooks.Fetch(hooks.FetchConfig{AllowedHosts: []string{"api.example.com"}}), false)
//
//	kv := hooks.NewLocalStorage()
//	orch.Hook("localStorage.getItem", kv.GetItem(), false)
//	orch.Hook("localStorage.setItem", kv.SetItem(), false)
//
// See the [sandbox], [hook], [report], and [resolver] packages for detailed
// API documentation.
package warden
