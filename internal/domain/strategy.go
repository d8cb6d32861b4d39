package domain

import "time"

// SavedStrategy is an immutable, versioned snapshot of a strategy graph.
// A save always produces a new record; existing records are never mutated.
type SavedStrategy struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	VersionID   string        `json:"versionId"` // SHA256 over (name, canonical snapshot)
	Snapshot    GraphSnapshot `json:"snapshot"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// CompiledStrategy is the artifact produced by code generation: the rendered
// target script plus the rule set it was built from.
type CompiledStrategy struct {
	VersionID    string
	ArtifactHash string // SHA256 of Script; identical inputs yield identical hashes
	Script       string
	RuleSet      NormalizedRuleSet
}

// TestResults is the normalized outcome of one strategy test, combining the
// backtest collaborator's report with validation warnings.
type TestResults struct {
	TotalReturn    float64  `json:"totalReturn"`
	WinRate        float64  `json:"winRate"`
	ProfitFactor   float64  `json:"profitFactor"`
	MaxDrawdown    float64  `json:"maxDrawdown"`
	SharpeRatio    float64  `json:"sharpeRatio"`
	NumberOfTrades int      `json:"numberOfTrades"`
	AverageWin     float64  `json:"averageWin"`
	AverageLoss    float64  `json:"averageLoss"`
	Warnings       []string `json:"warnings,omitempty"`
}

// TestRun is one row of backtest run history.
type TestRun struct {
	RunID        string
	GraphID      string
	VersionID    string
	ArtifactHash string
	Symbol       string
	FromMs       int64
	ToMs         int64
	Results      TestResults
	WarningCount int
	StartedAt    time.Time
}
