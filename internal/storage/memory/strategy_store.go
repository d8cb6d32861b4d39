package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/storage"
)

// StrategyStore is an in-memory implementation of storage.StrategyStore.
type StrategyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SavedStrategy // keyed by strategy id
}

// NewStrategyStore creates a new in-memory strategy store.
func NewStrategyStore() *StrategyStore {
	return &StrategyStore{
		data: make(map[string]*domain.SavedStrategy),
	}
}

// Compile-time interface check.
var _ storage.StrategyStore = (*StrategyStore)(nil)

// Put adds a new snapshot. Returns ErrDuplicateKey if the id exists.
func (s *StrategyStore) Put(_ context.Context, strat *domain.SavedStrategy) error {
	if strat == nil || strat.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[strat.ID]; exists {
		return storage.ErrDuplicateKey
	}
	clone := cloneStrategy(strat)
	s.data[strat.ID] = clone
	return nil
}

// Get retrieves a snapshot by id. Returns ErrNotFound if not exists.
func (s *StrategyStore) Get(_ context.Context, id string) (*domain.SavedStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	strat, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneStrategy(strat), nil
}

// List retrieves all snapshots ordered by (created_at, id) ASC.
func (s *StrategyStore) List(_ context.Context) ([]*domain.SavedStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.SavedStrategy, 0, len(s.data))
	for _, strat := range s.data {
		out = append(out, cloneStrategy(strat))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes a snapshot. Returns ErrNotFound if not exists.
func (s *StrategyStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// cloneStrategy deep-copies a saved strategy so callers never share the
// stored snapshot.
func cloneStrategy(s *domain.SavedStrategy) *domain.SavedStrategy {
	clone := *s
	clone.Snapshot.Components = make([]domain.Component, len(s.Snapshot.Components))
	for i := range s.Snapshot.Components {
		clone.Snapshot.Components[i] = *domain.CloneComponent(&s.Snapshot.Components[i])
	}
	clone.Snapshot.Connections = make([]domain.Connection, len(s.Snapshot.Connections))
	copy(clone.Snapshot.Connections, s.Snapshot.Connections)
	return &clone
}
