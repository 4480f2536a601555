package hook

// InstallDefaults pre-installs the §4.3 default hook set: aliases that make
// the top-level self-reference globals behave sanely, a minimal `document`
// mock, an empty `browser`/`chrome` pair, and the AMD/CommonJS-neutralising
// undefineds. These are installed before any user hook, which may override
// them by calling Set again at the same path.
func (r *Registry) InstallDefaults() {
	for _, alias := range []string{"frames", "global", "parent", "self", "window"} {
		_ = r.Set(alias, Reference{Path: "globalThis"}, true)
	}

	_ = r.Set("document", map[string]any{
		"nodeType":    float64(9),
		"readyState":  "complete",
	}, true)

	_ = r.Set("browser", map[string]any{}, true)
	_ = r.Set("chrome", Reference{Path: "browser"}, true)

	for _, name := range []string{"define", "exports", "module", "require"} {
		_ = r.Set(name, Undefined, true)
	}
}
