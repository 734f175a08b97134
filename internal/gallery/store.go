package gallery

import (
	"context"
	"sync"

	"spacelens/pkg/types"
)

// StatusStore persists per-asset generation statuses.
type StatusStore interface {
	Put(ctx context.Context, st types.GenerationStatus) error
	Get(ctx context.Context, assetID string) (types.GenerationStatus, bool, error)
	List(ctx context.Context) ([]types.GenerationStatus, error)
	Close() error
}

// MemoryStore keeps statuses in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]types.GenerationStatus
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]types.GenerationStatus)}
}

func (s *MemoryStore) Put(_ context.Context, st types.GenerationStatus) error {
	s.mu.Lock()
	s.m[st.AssetID] = st
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, assetID string) (types.GenerationStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[assetID]
	return st, ok, nil
}

func (s *MemoryStore) List(_ context.Context) ([]types.GenerationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.GenerationStatus, 0, len(s.m))
	for _, st := range s.m {
		out = append(out, st)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
