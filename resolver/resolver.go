// Package resolver implements the module resolution driver of §4.5:
// relative/absolute specifier -> absolute URL -> user resolver callback ->
// source text, with the source-cache invalidation rule for explicit source
// overrides.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrSourceNotFound is raised when the resolver returns (nil, nil) for a
// specifier, per the resolver contract in §6.4.
var ErrSourceNotFound = errors.New("resolver: source not found")

// Func is the user-provided resolver callback of §6.4: given the resolved
// absolute URL, return the UTF-8 source bytes, or (nil, nil) if not found.
type Func func(ctx context.Context, resolved *url.URL) ([]byte, error)

// Driver resolves specifiers against an origin/referrer and drives Func to
// fetch source text, caching nothing itself - the orchestrator's
// sourcecache.Cache is a separate cache of fetched source bytes keyed by the
// same URL string this Driver produces.
type Driver struct {
	origin *url.URL
	fn     Func
}

// New creates a Driver rooted at origin (e.g. "file:///"). Until SetFunc is
// called, Fetch reports ErrSourceNotFound for every specifier.
func New(origin string) (*Driver, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("resolver: invalid origin %q: %w", origin, err)
	}
	return &Driver{origin: u}, nil
}

// SetFunc installs the user resolver callback, replacing any prior one.
func (d *Driver) SetFunc(fn Func) {
	d.fn = fn
}

// ResolveURL builds the absolute URL for a specifier relative to referrer
// (or the origin, if referrer is empty), per §4.5: fragments and
// percent-encoding are preserved because url.Parse/ResolveReference operate
// on the encoded form throughout.
func (d *Driver) ResolveURL(specifier, referrer string) (*url.URL, error) {
	base := d.origin
	if referrer != "" {
		ref, err := url.Parse(referrer)
		if err != nil {
			return nil, fmt.Errorf("resolver: invalid referrer %q: %w", referrer, err)
		}
		base = ref
	}
	spec, err := url.Parse(specifier)
	if err != nil {
		return nil, fmt.Errorf("resolver: invalid specifier %q: %w", specifier, err)
	}
	return base.ResolveReference(spec), nil
}

// Fetch resolves specifier against referrer and invokes the user resolver.
// A nil Func is treated as always returning ErrSourceNotFound.
func (d *Driver) Fetch(ctx context.Context, specifier, referrer string) (resolvedURL string, source []byte, err error) {
	u, err := d.ResolveURL(specifier, referrer)
	if err != nil {
		return "", nil, err
	}
	if d.fn == nil {
		return u.String(), nil, ErrSourceNotFound
	}
	src, err := d.fn(ctx, u)
	if err != nil {
		return u.String(), nil, err
	}
	if src == nil {
		return u.String(), nil, ErrSourceNotFound
	}
	return u.String(), src, nil
}
