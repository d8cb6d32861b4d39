package metrics

import (
	"math"
	"testing"
	"time"

	"strategy-graph-lab/internal/domain"
)

func run(id string, startedAt time.Time, totalReturn, winRate, drawdown, sharpe float64, trades, warnings int) *domain.TestRun {
	return &domain.TestRun{
		RunID:     id,
		StartedAt: startedAt,
		Results: domain.TestResults{
			TotalReturn:    totalReturn,
			WinRate:        winRate,
			MaxDrawdown:    drawdown,
			SharpeRatio:    sharpe,
			NumberOfTrades: trades,
		},
		WarningCount: warnings,
	}
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalRuns != 0 {
		t.Errorf("expected zero runs, got %d", summary.TotalRuns)
	}
}

func TestSummarize(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []*domain.TestRun{
		run("run-1", base, 10, 0.5, 5, 1.0, 20, 0),
		run("run-2", base.Add(time.Hour), 20, 0.6, 8, 1.5, 30, 2),
		run("run-3", base.Add(2*time.Hour), -6, 0.4, 12, -0.2, 10, 1),
	}

	summary := Summarize(runs)

	if summary.TotalRuns != 3 {
		t.Errorf("total runs = %d, want 3", summary.TotalRuns)
	}
	if got, want := summary.ReturnMean, 8.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("return mean = %f, want %f", got, want)
	}
	if summary.ReturnMedian != 10 {
		t.Errorf("return median = %f, want 10", summary.ReturnMedian)
	}
	if summary.ReturnMin != -6 || summary.ReturnMax != 20 {
		t.Errorf("return range = [%f, %f], want [-6, 20]", summary.ReturnMin, summary.ReturnMax)
	}
	if got, want := summary.MeanWinRate, 0.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("mean win rate = %f, want %f", got, want)
	}
	if summary.WorstDrawdown != 12 {
		t.Errorf("worst drawdown = %f, want 12", summary.WorstDrawdown)
	}
	if summary.BestSharpe != 1.5 {
		t.Errorf("best sharpe = %f, want 1.5", summary.BestSharpe)
	}
	if summary.TotalTrades != 60 {
		t.Errorf("total trades = %d, want 60", summary.TotalTrades)
	}
	if summary.RunsWithWarnings != 2 {
		t.Errorf("runs with warnings = %d, want 2", summary.RunsWithWarnings)
	}
}

func TestSummarize_OrderIndependent(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := []*domain.TestRun{
		run("run-1", base, 10, 0.5, 5, 1.0, 20, 0),
		run("run-2", base.Add(time.Hour), 20, 0.6, 8, 1.5, 30, 2),
	}
	b := []*domain.TestRun{a[1], a[0]}

	first := Summarize(a)
	second := Summarize(b)
	if *first != *second {
		t.Errorf("summary depends on input order:\n%+v\n%+v", first, second)
	}
}

func TestSummarize_SingleRun(t *testing.T) {
	summary := Summarize([]*domain.TestRun{
		run("run-1", time.Now(), 15, 0.55, 3, 0.8, 12, 0),
	})

	if summary.ReturnStddev != 0 {
		t.Errorf("stddev of one sample = %f, want 0", summary.ReturnStddev)
	}
	if summary.ReturnMedian != 15 || summary.ReturnP10 != 15 || summary.ReturnP90 != 15 {
		t.Error("single-run percentiles must equal the run's return")
	}
}
