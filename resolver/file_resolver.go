package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileResolver answers file:// specifiers from a set of host mounts,
// adapted from the teacher's mount-based hostfunc.FS: virtual paths are
// normalised to a leading slash with no trailing slash, and every resolved
// host path is re-checked to still be under its mount's root before the
// file is read, rejecting ".."-escape attempts. This is the default
// resolver CLI and fixture-driven tests use; production embedders are
// expected to supply their own Func (§4.5) backed by whatever source store
// they already have (object storage, a database, a live fetch, etc).
type FileResolver struct {
	mounts []mount
	mu     sync.RWMutex
}

type mount struct {
	virtual string
	host    string
}

// NewFileResolver builds a FileResolver from virtualPath -> hostPath pairs.
func NewFileResolver(mounts map[string]string) (*FileResolver, error) {
	fr := &FileResolver{}
	for vp, hp := range mounts {
		abs, err := filepath.Abs(hp)
		if err != nil {
			return nil, fmt.Errorf("resolver: mount %q: %w", hp, err)
		}
		fr.mounts = append(fr.mounts, mount{
			virtual: "/" + strings.Trim(vp, "/"),
			host:    abs,
		})
	}
	return fr, nil
}

// Func returns the resolver.Func this FileResolver implements, suitable for
// Driver.SetFunc or Orchestrator.SetResolver.
func (fr *FileResolver) Func() Func {
	return fr.resolve
}

func (fr *FileResolver) resolve(_ context.Context, u *url.URL) ([]byte, error) {
	if u.Scheme != "" && u.Scheme != "file" {
		return nil, nil // not ours to resolve; ErrSourceNotFound to the caller
	}

	vp := filepath.Clean("/" + strings.TrimPrefix(u.Path, "/"))

	fr.mu.RLock()
	defer fr.mu.RUnlock()

	for _, m := range fr.mounts {
		if vp != m.virtual && !strings.HasPrefix(vp, m.virtual+"/") {
			continue
		}
		rel := strings.TrimPrefix(vp, m.virtual)
		hostPath := filepath.Join(m.host, rel)

		absHost, err := filepath.Abs(hostPath)
		if err != nil {
			return nil, errors.New("resolver: invalid path")
		}
		if !strings.HasPrefix(absHost, m.host) {
			return nil, errors.New("resolver: path escapes mount")
		}

		data, err := os.ReadFile(absHost)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil // ErrSourceNotFound
			}
			return nil, fmt.Errorf("resolver: read %s: %w", absHost, err)
		}
		return data, nil
	}
	return nil, nil // no mount covers this path; ErrSourceNotFound
}
