package storage

import (
	"context"

	"strategy-graph-lab/internal/domain"
)

// StrategyStore persists immutable SavedStrategy snapshots. It is the
// key-value persistence collaborator of the compiler core: put/get/list/
// delete, nothing more.
type StrategyStore interface {
	// Put adds a new snapshot. Returns ErrDuplicateKey if the id exists;
	// snapshots are never updated in place.
	Put(ctx context.Context, s *domain.SavedStrategy) error

	// Get retrieves a snapshot by id. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.SavedStrategy, error)

	// List retrieves all snapshots ordered by (created_at, id) ASC.
	List(ctx context.Context) ([]*domain.SavedStrategy, error)

	// Delete removes a snapshot. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error
}

// TestRunStore records backtest run history, append-only.
type TestRunStore interface {
	// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.TestRun) error

	// GetByVersion retrieves all runs for a strategy version, ordered by
	// started_at ASC.
	GetByVersion(ctx context.Context, versionID string) ([]*domain.TestRun, error)

	// GetAll retrieves all runs ordered by started_at ASC.
	GetAll(ctx context.Context) ([]*domain.TestRun, error)
}
