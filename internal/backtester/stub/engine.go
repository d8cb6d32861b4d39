// Package stub provides a deterministic in-process backtest engine for
// development and tests. The report is derived from a hash of the request, so
// identical scripts over identical windows always produce identical numbers.
package stub

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"strategy-graph-lab/internal/backtester"
	"strategy-graph-lab/internal/domain"
)

// Engine implements backtester.Backtester without touching market data.
type Engine struct {
	// Err, if set, is returned from every Run. Used to exercise failure paths.
	Err error
	// Calls counts Run invocations.
	Calls int
}

// NewEngine creates a new stub engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compile-time interface check.
var _ backtester.Backtester = (*Engine)(nil)

// Run produces a pseudo-report seeded by the request contents.
func (e *Engine) Run(ctx context.Context, req *domain.BacktestRequest) (*domain.BacktestReport, error) {
	e.Calls++

	if e.Err != nil {
		return nil, e.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || req.Script == "" {
		return nil, fmt.Errorf("%w: empty script", backtester.ErrBacktestFailed)
	}

	// 64 digest bytes: six metrics draw from disjoint slices up to seed[42].
	seed := sha512.Sum512([]byte(fmt.Sprintf("%s|%s|%s|%d|%d", req.Script, req.VersionID, req.Symbol, req.FromMs, req.ToMs)))

	// Each metric draws from a different slice of the digest, scaled into a
	// plausible range.
	trades := 10 + int(binary.BigEndian.Uint16(seed[0:2])%190)
	winRate := 0.35 + unit(seed[2:10])*0.4
	avgWin := 10 + unit(seed[10:18])*90
	avgLoss := -(5 + unit(seed[18:26])*45)

	wins := float64(trades) * winRate
	losses := float64(trades) - wins
	grossProfit := wins * avgWin
	grossLoss := losses * -avgLoss

	profitFactor := 0.0
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
	}

	totalReturn := (grossProfit - grossLoss) / req.InitialCapital * 100
	if req.InitialCapital <= 0 {
		totalReturn = grossProfit - grossLoss
	}

	return &domain.BacktestReport{
		TotalReturn:    totalReturn,
		WinRate:        winRate,
		ProfitFactor:   profitFactor,
		MaxDrawdown:    2 + unit(seed[26:34])*28,
		SharpeRatio:    -0.5 + unit(seed[34:42])*3,
		NumberOfTrades: trades,
		AverageWin:     avgWin,
		AverageLoss:    avgLoss,
	}, nil
}

// unit maps 8 digest bytes to [0, 1).
func unit(b []byte) float64 {
	return float64(binary.BigEndian.Uint64(b)>>11) / float64(1<<53)
}
