package voiceprint

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory [Store] guarded by an RWMutex. It keeps
// the same blob representation as the persistent backends so the codec
// path is exercised end to end. Intended for tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	dim  int
}

// NewMemoryStore creates an empty in-memory store for vectors of the
// given dimensionality.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		dim:  dim,
	}
}

func (s *MemoryStore) Upsert(_ context.Context, key string, vec []float32) error {
	if len(vec) != s.dim {
		return fmt.Errorf("%w: vector has %d values, store dimension is %d",
			ErrDimensionMismatch, len(vec), s.dim)
	}
	blob := EncodeVector(vec)
	s.mu.Lock()
	s.data[key] = blob
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Fetch(_ context.Context, keys []string) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]float32, len(keys))
	for _, key := range keys {
		blob, ok := s.data[key]
		if !ok {
			continue
		}
		vec, err := DecodeVector(blob, s.dim)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", key, err)
		}
		out[key] = vec
	}
	return out, nil
}

func (s *MemoryStore) FetchAll(_ context.Context) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]float32, len(s.data))
	for key, blob := range s.data {
		vec, err := DecodeVector(blob, s.dim)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", key, err)
		}
		out[key] = vec
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.data[key]
	delete(s.data, key)
	return existed, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
