package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/storage"
)

// TestRunStore is an in-memory implementation of storage.TestRunStore.
type TestRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TestRun // keyed by run id
}

// NewTestRunStore creates a new in-memory test run store.
func NewTestRunStore() *TestRunStore {
	return &TestRunStore{
		data: make(map[string]*domain.TestRun),
	}
}

// Compile-time interface check.
var _ storage.TestRunStore = (*TestRunStore)(nil)

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *TestRunStore) Insert(_ context.Context, r *domain.TestRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	clone := *r
	s.data[r.RunID] = &clone
	return nil
}

// GetByVersion retrieves all runs for a strategy version, ordered by
// started_at ASC.
func (s *TestRunStore) GetByVersion(_ context.Context, versionID string) ([]*domain.TestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TestRun
	for _, r := range s.data {
		if r.VersionID == versionID {
			clone := *r
			out = append(out, &clone)
		}
	}
	sortRuns(out)
	return out, nil
}

// GetAll retrieves all runs ordered by started_at ASC.
func (s *TestRunStore) GetAll(_ context.Context) ([]*domain.TestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TestRun, 0, len(s.data))
	for _, r := range s.data {
		clone := *r
		out = append(out, &clone)
	}
	sortRuns(out)
	return out, nil
}

func sortRuns(runs []*domain.TestRun) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.Before(runs[j].StartedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
}
