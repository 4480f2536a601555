// Package hooks provides optional Host Callable hook constructors an
// embedder can install via Orchestrator.Hook for common research needs:
// an allowlisted HTTP fetch and a process-lifetime key/value store standing
// in for localStorage/IndexedDB. Adapted from the teacher's hostfunc.HTTP
// and hostfunc.KVStore, restated against hook.Func's positional-argument
// signature and, for Fetch, rate limited per §9's "opt-in, never default"
// posture for anything that reaches the network from guest code.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wardenjs/warden/hook"
)

const (
	DefaultMaxBodySize    = 1 << 20
	DefaultRequestTimeout = 30 * time.Second
	DefaultRateLimit      = 5 // requests/second
	DefaultRateBurst      = 10
)

// FetchConfig restricts a Fetch hook to an explicit host allowlist, matching
// the teacher's hostfunc.HTTPConfig's "AllowedHosts required" posture.
type FetchConfig struct {
	AllowedHosts   []string
	MaxBodySize    int64
	RequestTimeout time.Duration
	RateLimit      rate.Limit
	RateBurst      int
}

func (c FetchConfig) defaulted() FetchConfig {
	if c.MaxBodySize == 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst == 0 {
		c.RateBurst = DefaultRateBurst
	}
	return c
}

// Fetch returns a hook.Func implementing a fetch(url, init) call: args[0]
// is the URL, args[1] (optional) is a
// {method, headers, body} object.
func Fetch(cfg FetchConfig) hook.Func {
	cfg = cfg.defaulted()
	client := &http.Client{Timeout: cfg.RequestTimeout}
	limiter := rate.NewLimiter(cfg.RateLimit, cfg.RateBurst)

	return func(ctx context.Context, args []any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("hooks: fetch requires a url argument")
		}
		rawURL, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("hooks: fetch url must be a string")
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("hooks: fetch rate limited: %w", err)
		}

		method := "GET"
		var body io.Reader
		var headers map[string]any
		if len(args) > 1 {
			if init, ok := args[1].(map[string]any); ok {
				if m, ok := init["method"].(string); ok && m != "" {
					method = strings.ToUpper(m)
				}
				if b, ok := init["body"].(string); ok {
					if int64(len(b)) > cfg.MaxBodySize {
						return nil, fmt.Errorf("hooks: request body exceeds max size")
					}
					body = bytes.NewBufferString(b)
				}
				headers, _ = init["headers"].(map[string]any)
			}
		}

		parsed, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("hooks: invalid url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, fmt.Errorf("hooks: scheme must be http or https")
		}
		if !hostAllowed(parsed.Hostname(), cfg.AllowedHosts) {
			return nil, fmt.Errorf("hooks: host not allowed: %s", parsed.Hostname())
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return nil, fmt.Errorf("hooks: building request: %w", err)
		}
		for k, v := range headers {
			if vs, ok := v.(string); ok {
				req.Header.Set(k, vs)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("hooks: request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, cfg.MaxBodySize))
		if err != nil {
			return nil, fmt.Errorf("hooks: reading response: %w", err)
		}

		respHeaders := make(map[string]any, len(resp.Header))
		for k, v := range resp.Header {
			if len(v) > 0 {
				respHeaders[k] = v[0]
			}
		}

		return map[string]any{
			"status":  resp.StatusCode,
			"body":    string(respBody),
			"headers": respHeaders,
		}, nil
	}
}

func hostAllowed(host string, allowed []string) bool {
	for _, a := range allowed {
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}
