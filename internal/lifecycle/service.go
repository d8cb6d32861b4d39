// Package lifecycle orchestrates strategy save, load and test flows on top of
// the graph, validation, extraction and codegen layers.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"strategy-graph-lab/internal/backtester"
	"strategy-graph-lab/internal/codegen"
	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/graph"
	"strategy-graph-lab/internal/idhash"
	"strategy-graph-lab/internal/observability"
	"strategy-graph-lab/internal/rules"
	"strategy-graph-lab/internal/storage"
	"strategy-graph-lab/internal/validation"
)

var (
	// ErrTestInProgress is returned when a graph already has a test in flight.
	ErrTestInProgress = errors.New("test already in progress for this graph")

	// ErrSymbolRequired is returned when a test request omits the symbol.
	ErrSymbolRequired = errors.New("symbol is required")
)

// Default backtest window values, applied when the caller leaves them empty.
const (
	DefaultInitialCapital = 10_000.0
	DefaultRiskPerTrade   = 1.0
	DefaultWindow         = 365 * 24 * time.Hour
)

// ValidationError carries blocking findings from a failed pre-test validation.
type ValidationError struct {
	Findings []validation.Finding
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		msgs[i] = string(f.Code) + ": " + f.Message
	}
	return "strategy validation failed: " + strings.Join(msgs, "; ")
}

// TestOptions parameterize a strategy test. Zero values fall back to the
// bounded defaults above; Symbol has no default.
//
// Name and StrategyID come from the saved strategy when testing one: Name
// folds into the version id so recorded runs join the saved version's
// history, and StrategyID keys the in-flight guard so overlapping tests of
// the same saved strategy are rejected even across separate loads. Both stay
// empty for unsaved drafts.
type TestOptions struct {
	Symbol         string
	FromMs         int64
	ToMs           int64
	InitialCapital float64
	Commission     float64
	Spread         float64
	Name           string
	StrategyID     string
}

// Options configures Service.
type Options struct {
	Strategies storage.StrategyStore
	Runs       storage.TestRunStore // optional; nil disables run history
	Backtester backtester.Backtester
	Validator  *validation.Validator  // nil selects the default thresholds
	Logger     *zap.Logger            // nil selects a no-op logger
	Metrics    *observability.Metrics // optional
	Now        func() time.Time       // nil selects time.Now
}

// Service ties the compiler core together: validation gates testing, rule
// extraction feeds codegen, codegen feeds the backtest collaborator, saves
// are immutable versioned snapshots.
type Service struct {
	strategies storage.StrategyStore
	runs       storage.TestRunStore
	engine     backtester.Backtester
	validator  *validation.Validator
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	// pending guards against overlapping tests of the same graph.
	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// New creates a lifecycle service.
func New(opts Options) *Service {
	validator := opts.Validator
	if validator == nil {
		validator = validation.New(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		strategies: opts.Strategies,
		runs:       opts.Runs,
		engine:     opts.Backtester,
		validator:  validator,
		logger:     logger,
		metrics:    opts.Metrics,
		now:        now,
		pending:    make(map[string]struct{}),
	}
}

// Validate runs the validation engine over the graph.
func (s *Service) Validate(g *graph.Graph) validation.Result {
	started := s.now()
	result := s.validator.Validate(g)
	if s.metrics != nil {
		s.metrics.ValidationDuration.Observe(s.now().Sub(started).Seconds())
		outcome := "valid"
		if !result.Valid() {
			outcome = "invalid"
		}
		s.metrics.ValidationsTotal.WithLabelValues(outcome).Inc()
		for _, f := range result.Errors {
			s.metrics.ValidationFindings.WithLabelValues(string(f.Severity), string(f.Code)).Inc()
		}
		for _, f := range result.Warnings {
			s.metrics.ValidationFindings.WithLabelValues(string(f.Severity), string(f.Code)).Inc()
		}
	}
	return result
}

// Compile extracts rules and renders the target script. Compilation does not
// require a valid graph; an empty or partial graph yields a script with no
// signals, which is still deterministic and diffable.
func (s *Service) Compile(g *graph.Graph, name string) (*domain.CompiledStrategy, []rules.Warning, error) {
	canonical, err := g.Snapshot().CanonicalJSON()
	if err != nil {
		return nil, nil, fmt.Errorf("encode snapshot: %w", err)
	}
	versionID := idhash.ComputeVersionID(name, canonical)

	extracted := rules.Extract(g)
	compiled := codegen.Generate(versionID, extracted.RuleSet, extracted.EntryExpr, extracted.ExitExpr)

	if s.metrics != nil {
		s.metrics.CompilationsTotal.WithLabelValues("ok").Inc()
		s.metrics.RulesExtracted.WithLabelValues("entry").Add(float64(len(extracted.RuleSet.Entries)))
		s.metrics.RulesExtracted.WithLabelValues("exit").Add(float64(len(extracted.RuleSet.Exits)))
		s.metrics.RulesExtracted.WithLabelValues("risk").Add(float64(len(extracted.RuleSet.Risks)))
		s.metrics.ExtractionWarnings.Add(float64(len(extracted.Warnings)))
		s.metrics.ScriptSizeBytes.Observe(float64(len(compiled.Script)))
	}

	s.logger.Debug("strategy compiled",
		zap.String("version_id", versionID),
		zap.String("artifact_hash", compiled.ArtifactHash),
		zap.Int("entry_rules", len(extracted.RuleSet.Entries)),
		zap.Int("exit_rules", len(extracted.RuleSet.Exits)),
		zap.Int("risk_rules", len(extracted.RuleSet.Risks)),
		zap.Int("warnings", len(extracted.Warnings)),
	)

	return compiled, extracted.Warnings, nil
}

// TestStrategy validates, compiles and backtests the graph. Validation errors
// abort before the collaborator is called. A second concurrent test on the
// same graph returns ErrTestInProgress.
func (s *Service) TestStrategy(ctx context.Context, g *graph.Graph, opts TestOptions) (*domain.TestResults, error) {
	if opts.Symbol == "" {
		return nil, ErrSymbolRequired
	}

	guardKey := opts.StrategyID
	if guardKey == "" {
		guardKey = g.ID()
	}
	if !s.acquire(guardKey) {
		return nil, ErrTestInProgress
	}
	defer s.release(guardKey)

	result := s.Validate(g)
	if !result.Valid() {
		s.logger.Info("test aborted by validation",
			zap.String("graph_id", g.ID()),
			zap.Int("errors", len(result.Errors)),
		)
		return nil, &ValidationError{Findings: result.Errors}
	}

	extracted := rules.Extract(g)
	canonical, err := g.Snapshot().CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	versionID := idhash.ComputeVersionID(opts.Name, canonical)
	compiled := codegen.Generate(versionID, extracted.RuleSet, extracted.EntryExpr, extracted.ExitExpr)

	req := s.buildRequest(compiled, extracted.RuleSet, opts)

	if s.metrics != nil {
		s.metrics.BacktestsPending.Inc()
		defer s.metrics.BacktestsPending.Dec()
	}

	started := s.now().UTC()
	report, err := s.engine.Run(ctx, req)
	elapsed := s.now().UTC().Sub(started)

	if s.metrics != nil {
		s.metrics.BacktestDuration.Observe(elapsed.Seconds())
	}

	if err != nil {
		if s.metrics != nil {
			s.metrics.BacktestsTotal.WithLabelValues("error").Inc()
		}
		s.logger.Warn("backtest failed",
			zap.String("graph_id", g.ID()),
			zap.String("version_id", versionID),
			zap.Error(err),
		)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BacktestsTotal.WithLabelValues("ok").Inc()
		s.metrics.LastSuccessfulBacktest.Set(float64(s.now().Unix()))
	}

	results := mapResults(report, result.Warnings, extracted.Warnings)

	s.recordRun(ctx, g.ID(), compiled, req, results, started)

	s.logger.Info("backtest complete",
		zap.String("graph_id", g.ID()),
		zap.String("version_id", versionID),
		zap.String("symbol", req.Symbol),
		zap.Int("trades", results.NumberOfTrades),
		zap.Float64("total_return", results.TotalReturn),
		zap.Duration("elapsed", elapsed),
	)

	return results, nil
}

// SaveStrategy snapshots the graph under a fresh id. Validation is not
// required: drafts may be invalid.
func (s *Service) SaveStrategy(ctx context.Context, g *graph.Graph, name, description string) (*domain.SavedStrategy, error) {
	snapshot := g.Snapshot()
	canonical, err := snapshot.CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	now := s.now().UTC()
	saved := &domain.SavedStrategy{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		VersionID:   idhash.ComputeVersionID(name, canonical),
		Snapshot:    snapshot,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.strategies.Put(ctx, saved); err != nil {
		if s.metrics != nil {
			s.metrics.StoreErrors.WithLabelValues("strategies", "put").Inc()
		}
		return nil, fmt.Errorf("save strategy: %w", err)
	}

	if s.metrics != nil {
		s.metrics.StrategiesSaved.Inc()
	}
	s.logger.Info("strategy saved",
		zap.String("id", saved.ID),
		zap.String("name", name),
		zap.String("version_id", saved.VersionID),
		zap.Int("components", len(snapshot.Components)),
		zap.Int("connections", len(snapshot.Connections)),
	)

	return saved, nil
}

// LoadStrategy restores a saved snapshot into a fresh editable graph,
// re-checking referential integrity.
func (s *Service) LoadStrategy(saved *domain.SavedStrategy) (*graph.Graph, error) {
	g, err := graph.FromSnapshot(saved.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", saved.ID, err)
	}
	if s.metrics != nil {
		s.metrics.StrategiesLoaded.Inc()
	}
	return g, nil
}

// GetStrategy retrieves a saved strategy by id.
func (s *Service) GetStrategy(ctx context.Context, id string) (*domain.SavedStrategy, error) {
	return s.strategies.Get(ctx, id)
}

// ListStrategies retrieves all saved strategies.
func (s *Service) ListStrategies(ctx context.Context) ([]*domain.SavedStrategy, error) {
	return s.strategies.List(ctx)
}

// DeleteStrategy removes a saved strategy by id.
func (s *Service) DeleteStrategy(ctx context.Context, id string) error {
	return s.strategies.Delete(ctx, id)
}

// History returns the recorded backtest runs for a strategy version. Returns
// nil without error when run history is disabled.
func (s *Service) History(ctx context.Context, versionID string) ([]*domain.TestRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.GetByVersion(ctx, versionID)
}

func (s *Service) acquire(graphID string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if _, busy := s.pending[graphID]; busy {
		return false
	}
	s.pending[graphID] = struct{}{}
	return true
}

func (s *Service) release(graphID string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	delete(s.pending, graphID)
}

// buildRequest fills unset request fields with bounded defaults. The risk
// percentage comes from the extracted position-size rule when present.
func (s *Service) buildRequest(compiled *domain.CompiledStrategy, rs domain.NormalizedRuleSet, opts TestOptions) *domain.BacktestRequest {
	req := &domain.BacktestRequest{
		Script:         compiled.Script,
		VersionID:      compiled.VersionID,
		Symbol:         opts.Symbol,
		FromMs:         opts.FromMs,
		ToMs:           opts.ToMs,
		InitialCapital: opts.InitialCapital,
		RiskPerTrade:   riskPerTrade(rs),
		Commission:     opts.Commission,
		Spread:         opts.Spread,
	}

	if req.ToMs == 0 {
		// End of the current UTC day
		midnight := s.now().UTC().Truncate(24 * time.Hour)
		req.ToMs = midnight.UnixMilli()
	}
	if req.FromMs == 0 {
		req.FromMs = req.ToMs - DefaultWindow.Milliseconds()
	}
	if req.InitialCapital == 0 {
		req.InitialCapital = DefaultInitialCapital
	}

	return req
}

func riskPerTrade(rs domain.NormalizedRuleSet) float64 {
	for _, r := range rs.Risks {
		if p, ok := r.Params.(domain.PositionSizeParams); ok && p.Mode == "fixed-risk-percent" {
			return p.Value
		}
	}
	return DefaultRiskPerTrade
}

// mapResults merges the collaborator's report with validation and extraction
// warnings into the normalized result shape.
func mapResults(report *domain.BacktestReport, validationWarnings []validation.Finding, extractionWarnings []rules.Warning) *domain.TestResults {
	results := &domain.TestResults{
		TotalReturn:    report.TotalReturn,
		WinRate:        report.WinRate,
		ProfitFactor:   report.ProfitFactor,
		MaxDrawdown:    report.MaxDrawdown,
		SharpeRatio:    report.SharpeRatio,
		NumberOfTrades: report.NumberOfTrades,
		AverageWin:     report.AverageWin,
		AverageLoss:    report.AverageLoss,
	}
	for _, f := range validationWarnings {
		results.Warnings = append(results.Warnings, f.Message)
	}
	for _, w := range extractionWarnings {
		results.Warnings = append(results.Warnings, w.Message)
	}
	return results
}

// recordRun appends the run to history. Failures are logged, not propagated:
// the user already has the results.
func (s *Service) recordRun(ctx context.Context, graphID string, compiled *domain.CompiledStrategy, req *domain.BacktestRequest, results *domain.TestResults, started time.Time) {
	if s.runs == nil {
		return
	}

	run := &domain.TestRun{
		RunID:        uuid.NewString(),
		GraphID:      graphID,
		VersionID:    compiled.VersionID,
		ArtifactHash: compiled.ArtifactHash,
		Symbol:       req.Symbol,
		FromMs:       req.FromMs,
		ToMs:         req.ToMs,
		Results:      *results,
		WarningCount: len(results.Warnings),
		StartedAt:    started,
	}

	if err := s.runs.Insert(ctx, run); err != nil {
		if s.metrics != nil {
			s.metrics.StoreErrors.WithLabelValues("runs", "insert").Inc()
		}
		s.logger.Warn("record test run failed",
			zap.String("run_id", run.RunID),
			zap.Error(err),
		)
	}
}
