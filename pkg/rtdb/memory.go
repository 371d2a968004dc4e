package rtdb

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store with the same path semantics as the
// Redis implementation. It backs tests and local development without a
// running Redis.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage

	// FailWith, when set, is returned by every operation. Tests use it to
	// exercise permission and conflict classification.
	FailWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	raw, ok := s.data[normalized]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), raw...), nil
}

func (s *MemoryStore) GetSubtree(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	prefix := normalized + "/"
	result := make(map[string]json.RawMessage)
	for key, raw := range s.data {
		if strings.HasPrefix(key, prefix) {
			result[strings.TrimPrefix(key, prefix)] = append(json.RawMessage(nil), raw...)
		}
	}
	return result, nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	raw, err := marshalValue(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.data[normalized] = append(json.RawMessage(nil), raw...)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	delete(s.data, normalized)
	prefix := normalized + "/"
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *MemoryStore) ExistsByField(ctx context.Context, path, field, value string) (bool, error) {
	subtree, err := s.GetSubtree(ctx, path)
	if err != nil {
		return false, err
	}
	for rel, raw := range subtree {
		if strings.Contains(rel, "/") {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		if got, ok := record[field].(string); ok && got == value {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Transact(ctx context.Context, path string, fn TxFunc) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	var current json.RawMessage
	if raw, ok := s.data[normalized]; ok {
		current = append(json.RawMessage(nil), raw...)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	raw, err := marshalValue(next)
	if err != nil {
		return err
	}
	s.data[normalized] = append(json.RawMessage(nil), raw...)
	return nil
}

// Paths returns every stored path in lexicographic order. Test helper.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.data))
	for key := range s.data {
		paths = append(paths, key)
	}
	sort.Strings(paths)
	return paths
}
