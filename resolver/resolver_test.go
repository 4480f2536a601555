package resolver

import (
	"context"
	"net/url"
	"testing"
)

func TestResolveURLAgainstOrigin(t *testing.T) {
	d, err := New("file:///app/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u, err := d.ResolveURL("main.js", "")
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}
	if u.String() != "file:///app/main.js" {
		t.Fatalf("ResolveURL = %q", u.String())
	}
}

func TestResolveURLAgainstReferrer(t *testing.T) {
	d, err := New("file:///app/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u, err := d.ResolveURL("./helper.js", "file:///app/sub/entry.js")
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}
	if u.String() != "file:///app/sub/helper.js" {
		t.Fatalf("ResolveURL = %q", u.String())
	}
}

func TestFetchNoFuncIsNotFound(t *testing.T) {
	d, _ := New("file:///app/")
	_, _, err := d.Fetch(context.Background(), "main.js", "")
	if err != ErrSourceNotFound {
		t.Fatalf("Fetch with no Func = %v, want ErrSourceNotFound", err)
	}
}

func TestFetchFuncNilSourceIsNotFound(t *testing.T) {
	d, _ := New("file:///app/")
	d.SetFunc(func(ctx context.Context, u *url.URL) ([]byte, error) { return nil, nil })
	_, _, err := d.Fetch(context.Background(), "main.js", "")
	if err != ErrSourceNotFound {
		t.Fatalf("Fetch = %v, want ErrSourceNotFound", err)
	}
}

func TestFetchFuncReturnsSource(t *testing.T) {
	d, _ := New("file:///app/")
	d.SetFunc(func(ctx context.Context, u *url.URL) ([]byte, error) {
		return []byte("1+1"), nil
	})
	resolvedURL, src, err := d.Fetch(context.Background(), "main.js", "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if resolvedURL != "file:///app/main.js" {
		t.Fatalf("resolvedURL = %q", resolvedURL)
	}
	if string(src) != "1+1" {
		t.Fatalf("src = %q", src)
	}
}
