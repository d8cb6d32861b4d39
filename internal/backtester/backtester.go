package backtester

import (
	"context"
	"errors"

	"strategy-graph-lab/internal/domain"
)

// Backtester executes a compiled strategy script against historical data and
// returns a performance report. Implementations talk to an external engine;
// the stub package provides a deterministic in-process one.
type Backtester interface {
	Run(ctx context.Context, req *domain.BacktestRequest) (*domain.BacktestReport, error)
}

// ErrBacktestFailed indicates the engine accepted the request but could not
// produce a report.
var ErrBacktestFailed = errors.New("backtest failed")
