package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/wardenjs/warden/hook"
)

// LocalStorage backs a mock of the Web Storage API: getItem/setItem/
// removeItem Host Callable hooks sharing one map, process-lifetime only
// (no disk persistence), adapted from the teacher's hostfunc.KVStore.
type LocalStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewLocalStorage() *LocalStorage {
	return &LocalStorage{data: make(map[string]string)}
}

// GetItem returns a hook.Func for getItem(key).
func (s *LocalStorage) GetItem() hook.Func {
	return func(_ context.Context, args []any) (any, error) {
		key, err := stringArg(args, 0, "key")
		if err != nil {
			return nil, err
		}
		s.mu.RLock()
		v, ok := s.data[key]
		s.mu.RUnlock()
		if !ok {
			return nil, nil
		}
		return v, nil
	}
}

// SetItem returns a hook.Func for setItem(key, value).
func (s *LocalStorage) SetItem() hook.Func {
	return func(_ context.Context, args []any) (any, error) {
		key, err := stringArg(args, 0, "key")
		if err != nil {
			return nil, err
		}
		val, err := stringArg(args, 1, "value")
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.data[key] = val
		s.mu.Unlock()
		return nil, nil
	}
}

// RemoveItem returns a hook.Func for removeItem(key).
func (s *LocalStorage) RemoveItem() hook.Func {
	return func(_ context.Context, args []any) (any, error) {
		key, err := stringArg(args, 0, "key")
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, nil
	}
}

func stringArg(args []any, i int, name string) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("hooks: %s argument required", name)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("hooks: %s must be a string", name)
	}
	return s, nil
}
