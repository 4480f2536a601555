package hooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/time/rate"
)

func TestFetchSuccessWithinAllowlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	fn := Fetch(FetchConfig{AllowedHosts: []string{u.Hostname()}, RateLimit: rate.Inf})

	result, err := fn(context.Background(), []any{srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected a map result, got %T", result)
	}
	if m["status"] != http.StatusOK {
		t.Errorf("status = %v, want 200", m["status"])
	}
	if m["body"] != "hello" {
		t.Errorf("body = %v, want hello", m["body"])
	}
}

func TestFetchRejectsDisallowedHost(t *testing.T) {
	fn := Fetch(FetchConfig{AllowedHosts: []string{"example.com"}, RateLimit: rate.Inf})
	_, err := fn(context.Background(), []any{"https://evil.test/"})
	if err == nil {
		t.Fatal("expected an error for a host outside the allowlist")
	}
}

func TestFetchRejectsNonHTTPScheme(t *testing.T) {
	fn := Fetch(FetchConfig{AllowedHosts: []string{"example.com"}, RateLimit: rate.Inf})
	_, err := fn(context.Background(), []any{"file:///etc/passwd"})
	if err == nil {
		t.Fatal("expected an error for a non-http(s) scheme")
	}
}

func TestFetchRequiresURLArgument(t *testing.T) {
	fn := Fetch(FetchConfig{AllowedHosts: []string{"example.com"}})
	if _, err := fn(context.Background(), nil); err == nil {
		t.Fatal("expected an error when no url argument is given")
	}
	if _, err := fn(context.Background(), []any{42}); err == nil {
		t.Fatal("expected an error when the url argument is not a string")
	}
}

func TestFetchUsesCustomMethodAndHeaders(t *testing.T) {
	var gotMethod, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	fn := Fetch(FetchConfig{AllowedHosts: []string{u.Hostname()}, RateLimit: rate.Inf})

	_, err := fn(context.Background(), []any{srv.URL, map[string]any{
		"method":  "post",
		"headers": map[string]any{"X-Custom": "abc"},
	}})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotMethod != "POST" {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotHeader != "abc" {
		t.Errorf("X-Custom header = %q, want abc", gotHeader)
	}
}

func TestHostAllowedMatchesSuffixAndExact(t *testing.T) {
	allowed := []string{"example.com"}
	if !hostAllowed("example.com", allowed) {
		t.Error("expected exact match to be allowed")
	}
	if !hostAllowed("api.example.com", allowed) {
		t.Error("expected subdomain to be allowed")
	}
	if hostAllowed("notexample.com", allowed) {
		t.Error("expected a non-suffix lookalike to be rejected")
	}
}
