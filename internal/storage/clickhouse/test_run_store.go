package clickhouse

import (
	"context"
	"fmt"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/storage"
)

// TestRunStore implements storage.TestRunStore using ClickHouse. Run history
// is append-only analytics data, which is what the column store is for.
type TestRunStore struct {
	conn *Conn
}

// NewTestRunStore creates a new TestRunStore.
func NewTestRunStore(conn *Conn) *TestRunStore {
	return &TestRunStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TestRunStore = (*TestRunStore)(nil)

const testRunColumns = `
	run_id, graph_id, version_id, artifact_hash, symbol, from_ms, to_ms,
	total_return, win_rate, profit_factor, max_drawdown, sharpe_ratio,
	number_of_trades, average_win, average_loss, warning_count, started_at
`

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *TestRunStore) Insert(ctx context.Context, r *domain.TestRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	// MergeTree does not enforce uniqueness at insert time, so run ids are
	// checked explicitly to keep append-only semantics.
	exists, err := s.exists(ctx, r.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := fmt.Sprintf(`
		INSERT INTO test_runs (%s) VALUES (
			?, ?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?
		)
	`, testRunColumns)

	err = s.conn.Exec(ctx, query,
		r.RunID, r.GraphID, r.VersionID, r.ArtifactHash, r.Symbol, r.FromMs, r.ToMs,
		r.Results.TotalReturn, r.Results.WinRate, r.Results.ProfitFactor,
		r.Results.MaxDrawdown, r.Results.SharpeRatio,
		int32(r.Results.NumberOfTrades), r.Results.AverageWin, r.Results.AverageLoss,
		int32(r.WarningCount), r.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert test run: %w", err)
	}
	return nil
}

// GetByVersion retrieves all runs for a strategy version, ordered by
// started_at ASC.
func (s *TestRunStore) GetByVersion(ctx context.Context, versionID string) ([]*domain.TestRun, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM test_runs
		WHERE version_id = ?
		ORDER BY started_at ASC, run_id ASC
	`, testRunColumns)

	return s.queryRuns(ctx, query, versionID)
}

// GetAll retrieves all runs ordered by started_at ASC.
func (s *TestRunStore) GetAll(ctx context.Context) ([]*domain.TestRun, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM test_runs
		ORDER BY started_at ASC, run_id ASC
	`, testRunColumns)

	return s.queryRuns(ctx, query)
}

func (s *TestRunStore) queryRuns(ctx context.Context, query string, args ...any) ([]*domain.TestRun, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query test runs: %w", err)
	}
	defer rows.Close()

	var out []*domain.TestRun
	for rows.Next() {
		var r domain.TestRun
		var trades, warnings int32
		if err := rows.Scan(
			&r.RunID, &r.GraphID, &r.VersionID, &r.ArtifactHash, &r.Symbol, &r.FromMs, &r.ToMs,
			&r.Results.TotalReturn, &r.Results.WinRate, &r.Results.ProfitFactor,
			&r.Results.MaxDrawdown, &r.Results.SharpeRatio,
			&trades, &r.Results.AverageWin, &r.Results.AverageLoss,
			&warnings, &r.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("scan test run: %w", err)
		}
		r.Results.NumberOfTrades = int(trades)
		r.WarningCount = int(warnings)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test runs: %w", err)
	}
	return out, nil
}

func (s *TestRunStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM test_runs WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
