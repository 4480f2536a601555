// Package sourcecache implements the compiled-source-entry cache of §3.5:
// source text fetched through the resolver is kept, keyed by absolute URL,
// so that a module graph with repeated imports (or repeated Run calls
// against the same specifier within one isolate's lifetime) does not
// re-invoke the user resolver callback for a URL it has already answered.
package sourcecache

import "sync"

// Cache maps an absolute URL string to the source bytes last fetched for it.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns the cached source for url, if present.
func (c *Cache) Get(url string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[url]
	return b, ok
}

// Put stores (or replaces) the source cached for url.
func (c *Cache) Put(url string, src []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = src
}

// Invalidate removes the entry for url. Used when a Run call overrides a
// cached URL with explicit source text (§3.5).
func (c *Cache) Invalidate(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}

// Clear empties the cache. Called on orchestrator Dispose.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
}
