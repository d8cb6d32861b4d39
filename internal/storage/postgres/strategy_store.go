package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/storage"
)

// StrategyStore implements storage.StrategyStore using PostgreSQL.
// Graph snapshots are stored as jsonb: the open per-kind property bags make
// JSON the faithful column encoding.
type StrategyStore struct {
	pool *Pool
}

// NewStrategyStore creates a new StrategyStore.
func NewStrategyStore(pool *Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategyStore = (*StrategyStore)(nil)

// Put adds a new snapshot. Returns ErrDuplicateKey if the id exists.
func (s *StrategyStore) Put(ctx context.Context, strat *domain.SavedStrategy) error {
	if strat == nil || strat.ID == "" {
		return storage.ErrInvalidInput
	}

	snapshot, err := json.Marshal(strat.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO saved_strategies (
			id, name, description, version_id, snapshot, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		strat.ID, strat.Name, strat.Description, strat.VersionID,
		snapshot, strat.CreatedAt, strat.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert saved strategy: %w", err)
	}
	return nil
}

// Get retrieves a snapshot by id. Returns ErrNotFound if not exists.
func (s *StrategyStore) Get(ctx context.Context, id string) (*domain.SavedStrategy, error) {
	query := `
		SELECT id, name, description, version_id, snapshot, created_at, updated_at
		FROM saved_strategies
		WHERE id = $1
	`

	var strat domain.SavedStrategy
	var snapshot []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&strat.ID, &strat.Name, &strat.Description, &strat.VersionID,
		&snapshot, &strat.CreatedAt, &strat.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get saved strategy: %w", err)
	}

	if err := json.Unmarshal(snapshot, &strat.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &strat, nil
}

// List retrieves all snapshots ordered by (created_at, id) ASC.
func (s *StrategyStore) List(ctx context.Context) ([]*domain.SavedStrategy, error) {
	query := `
		SELECT id, name, description, version_id, snapshot, created_at, updated_at
		FROM saved_strategies
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list saved strategies: %w", err)
	}
	defer rows.Close()

	var out []*domain.SavedStrategy
	for rows.Next() {
		var strat domain.SavedStrategy
		var snapshot []byte
		if err := rows.Scan(
			&strat.ID, &strat.Name, &strat.Description, &strat.VersionID,
			&snapshot, &strat.CreatedAt, &strat.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan saved strategy: %w", err)
		}
		if err := json.Unmarshal(snapshot, &strat.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		out = append(out, &strat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved strategies: %w", err)
	}
	return out, nil
}

// Delete removes a snapshot. Returns ErrNotFound if not exists.
func (s *StrategyStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM saved_strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete saved strategy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
