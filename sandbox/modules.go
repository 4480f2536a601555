package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/wardenjs/warden/resolver"
	"github.com/wardenjs/warden/sourcecache"
)

// Module-graph support for SourceModule runs (§4.1 step 4, §4.5). qjs is
// always invoked in "-e <script>" eval mode (orchestrator.go), so there is
// no engine-level module loader to hand a callback to; instead the host
// walks the static import graph itself, routing every nested specifier
// through the same resolver.Driver/sourcecache.Cache a script run uses for
// its single top-level fetch, and bundles the result into one flattened
// script the bootstrap can still eval. The import/export rewriting below is
// a pragmatic, regexp-based subset of ES module syntax (default/named/
// namespace imports, bare imports, named/default/star exports, and
// re-exports) - not a full ECMAScript parser. Dynamic import() and import
// specifiers spread across multiple lines are not supported; see DESIGN.md.
type moduleGraph struct {
	order   []string // topological order, dependencies before dependents
	sources map[string]string
}

// walkModuleGraph recursively resolves and fetches every specifier reachable
// from entryURL/entrySource, reusing drv/cache exactly as a script Run's
// resolveSource does for its one top-level specifier, except recursing into
// each fetched module's own static imports.
func walkModuleGraph(ctx context.Context, drv *resolver.Driver, cache *sourcecache.Cache, entryURL, entrySource string) (*moduleGraph, error) {
	g := &moduleGraph{sources: make(map[string]string)}
	visiting := make(map[string]bool)

	var visit func(url, source string) error
	visit = func(url, source string) error {
		if visiting[url] {
			return fmt.Errorf("sandbox: circular import involving %s", url)
		}
		if _, done := g.sources[url]; done {
			return nil
		}
		visiting[url] = true
		defer delete(visiting, url)

		g.sources[url] = source
		for _, spec := range scanSpecifiers(source) {
			depURL, err := drv.ResolveURL(spec, url)
			if err != nil {
				return fmt.Errorf("sandbox: resolving import %q from %s: %w", spec, url, err)
			}
			depKey := depURL.String()

			depSrc, ok := cache.Get(depKey)
			if !ok {
				_, fetched, err := drv.Fetch(ctx, spec, url)
				if err != nil {
					return fmt.Errorf("sandbox: fetching import %q from %s: %w", spec, url, err)
				}
				depSrc = fetched
				cache.Put(depKey, depSrc)
			}
			if err := visit(depKey, string(depSrc)); err != nil {
				return err
			}
		}

		g.order = append(g.order, url)
		return nil
	}

	if err := visit(entryURL, entrySource); err != nil {
		return nil, err
	}
	return g, nil
}

// modulePreamble defines the minimal CommonJS-style require runtime that
// transformed module bodies call into; it is prepended once, ahead of every
// dependency's wrapped body, ahead of the entry module's own (also
// transformed) top-level code.
const modulePreamble = `
var __warden_modules = {};
var __warden_module_bodies = {};
function __warden_require(url) {
  if (__warden_modules[url]) { return __warden_modules[url].exports; }
  var body = __warden_module_bodies[url];
  if (!body) { throw new Error("warden: module not found: " + url); }
  var module = { exports: {} };
  __warden_modules[url] = module;
  body(module, module.exports, __warden_require);
  return module.exports;
}
`

// buildModuleUserCode walks entryURL/entrySource's static import graph and
// bundles it into the single flattened script buildGuestSource expects,
// implementing SourceModule's "compile as a module, recursively routing
// nested specifiers through the resolver driver and cache" requirement.
func buildModuleUserCode(ctx context.Context, drv *resolver.Driver, cache *sourcecache.Cache, entryURL, entrySource string) (string, error) {
	graph, err := walkModuleGraph(ctx, drv, cache, entryURL, entrySource)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(modulePreamble)

	for _, url := range graph.order {
		if url == entryURL {
			continue
		}
		transformed, err := transformModuleSource(graph.sources[url], url, drv)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "__warden_module_bodies[%s] = function(module, exports, require) {\n%s\n};\n", jsString(url), transformed)
	}

	entryTransformed, err := transformModuleSource(entrySource, entryURL, drv)
	if err != nil {
		return "", err
	}
	b.WriteString(entryTransformed)
	return b.String(), nil
}

func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// ---- specifier scanning -----------------------------------------------

type specifierPattern struct {
	re      *regexp.Regexp
	specIdx int
}

var (
	defaultNamedImportRe = regexp.MustCompile(`import\s+([\w$]+)\s*,\s*\{([^}]*)\}\s*from\s*["']([^"']+)["'];?`)
	namespaceImportRe    = regexp.MustCompile(`import\s+\*\s+as\s+([\w$]+)\s*from\s*["']([^"']+)["'];?`)
	namedImportRe        = regexp.MustCompile(`import\s+\{([^}]*)\}\s*from\s*["']([^"']+)["'];?`)
	defaultImportRe      = regexp.MustCompile(`import\s+([\w$]+)\s*from\s*["']([^"']+)["'];?`)
	bareImportRe         = regexp.MustCompile(`import\s*["']([^"']+)["'];?`)
	exportStarFromRe     = regexp.MustCompile(`export\s*\*\s*(?:as\s+[\w$]+\s*)?from\s*["']([^"']+)["'];?`)
	exportNamedFromRe    = regexp.MustCompile(`export\s*\{([^}]*)\}\s*from\s*["']([^"']+)["'];?`)

	exportDefaultNamedRe = regexp.MustCompile(`export\s+default\s+(function\*?|class)\s+([\w$]+)`)
	exportDefaultExprRe  = regexp.MustCompile(`export\s+default\s+([^;\n]+);?`)
	exportDeclRe         = regexp.MustCompile(`export\s+(function\*?|class|const|let|var)\s+([\w$]+)`)
	exportListRe         = regexp.MustCompile(`export\s*\{([^}]*)\}\s*;?`)
)

var specifierPatterns = []specifierPattern{
	{defaultNamedImportRe, 3},
	{namespaceImportRe, 2},
	{namedImportRe, 2},
	{defaultImportRe, 2},
	{bareImportRe, 1},
	{exportStarFromRe, 1},
	{exportNamedFromRe, 2},
}

func scanSpecifiers(source string) []string {
	var specs []string
	for _, p := range specifierPatterns {
		for _, m := range p.re.FindAllStringSubmatch(source, -1) {
			specs = append(specs, m[p.specIdx])
		}
	}
	return specs
}

// ---- import/export -> CommonJS-ish rewriting ---------------------------

func transformModuleSource(source, moduleURL string, drv *resolver.Driver) (string, error) {
	var firstErr error
	resolve := func(spec string) string {
		u, err := drv.ResolveURL(spec, moduleURL)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("sandbox: resolving import %q from %s: %w", spec, moduleURL, err)
			}
			return spec
		}
		return u.String()
	}

	tmp := 0
	nextTmp := func() string {
		tmp++
		return fmt.Sprintf("__warden_tmp%d", tmp)
	}

	source = defaultNamedImportRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := defaultNamedImportRe.FindStringSubmatch(m)
		def, names, url := sub[1], sub[2], resolve(sub[3])
		tv := nextTmp()
		return fmt.Sprintf("const %s = __warden_require(%s); const %s = %s.default; const {%s} = %s;",
			tv, jsString(url), def, tv, rewriteNamedBindings(names), tv)
	})

	source = namespaceImportRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := namespaceImportRe.FindStringSubmatch(m)
		name, url := sub[1], resolve(sub[2])
		return fmt.Sprintf("const %s = __warden_require(%s);", name, jsString(url))
	})

	source = namedImportRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := namedImportRe.FindStringSubmatch(m)
		names, url := sub[1], resolve(sub[2])
		return fmt.Sprintf("const {%s} = __warden_require(%s);", rewriteNamedBindings(names), jsString(url))
	})

	source = defaultImportRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := defaultImportRe.FindStringSubmatch(m)
		name, url := sub[1], resolve(sub[2])
		return fmt.Sprintf("const %s = __warden_require(%s).default;", name, jsString(url))
	})

	source = bareImportRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := bareImportRe.FindStringSubmatch(m)
		url := resolve(sub[1])
		return fmt.Sprintf("__warden_require(%s);", jsString(url))
	})

	source = exportStarFromRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportStarFromRe.FindStringSubmatch(m)
		url := resolve(sub[1])
		return fmt.Sprintf("Object.assign(module.exports, __warden_require(%s));", jsString(url))
	})

	source = exportNamedFromRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportNamedFromRe.FindStringSubmatch(m)
		names, url := sub[1], resolve(sub[2])
		tv := nextTmp()
		var assigns strings.Builder
		fmt.Fprintf(&assigns, "const %s = __warden_require(%s);", tv, jsString(url))
		for _, part := range splitNameList(names) {
			local, exported := splitAsBinding(part)
			fmt.Fprintf(&assigns, " module.exports.%s = %s.%s;", exported, tv, local)
		}
		return assigns.String()
	})

	var extraExports []string

	source = exportDefaultNamedRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportDefaultNamedRe.FindStringSubmatch(m)
		kind, name := sub[1], sub[2]
		extraExports = append(extraExports, fmt.Sprintf("module.exports.default = %s;", name))
		return fmt.Sprintf("%s %s", kind, name)
	})

	source = exportDefaultExprRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportDefaultExprRe.FindStringSubmatch(m)
		return fmt.Sprintf("module.exports.default = (%s);", strings.TrimSuffix(strings.TrimSpace(sub[1]), ";"))
	})

	source = exportDeclRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportDeclRe.FindStringSubmatch(m)
		kind, name := sub[1], sub[2]
		extraExports = append(extraExports, fmt.Sprintf("module.exports.%s = %s;", name, name))
		return fmt.Sprintf("%s %s", kind, name)
	})

	source = exportListRe.ReplaceAllStringFunc(source, func(m string) string {
		sub := exportListRe.FindStringSubmatch(m)
		for _, part := range splitNameList(sub[1]) {
			local, exported := splitAsBinding(part)
			extraExports = append(extraExports, fmt.Sprintf("module.exports.%s = %s;", exported, local))
		}
		return ""
	})

	if len(extraExports) > 0 {
		source += "\n" + strings.Join(extraExports, "\n")
	}

	if firstErr != nil {
		return "", firstErr
	}
	return source, nil
}

func splitNameList(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitAsBinding parses "local" or "local as exported" into (local, exported).
func splitAsBinding(part string) (local, exported string) {
	fields := strings.Fields(strings.Replace(part, " as ", " ", 1))
	local = fields[0]
	exported = local
	if len(fields) > 1 {
		exported = fields[1]
	}
	return local, exported
}

func rewriteNamedBindings(list string) string {
	var out []string
	for _, part := range splitNameList(list) {
		local, exported := splitAsBinding(part)
		if exported == local {
			out = append(out, local)
		} else {
			// import renaming: bind local name `exported` to the module's
			// property `local` via destructure-rename syntax.
			out = append(out, fmt.Sprintf("%s: %s", local, exported))
		}
	}
	return strings.Join(out, ", ")
}
