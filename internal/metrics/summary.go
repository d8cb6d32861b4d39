// Package metrics computes summary statistics over recorded backtest runs,
// so a strategy version's run history can be read at a glance.
package metrics

import (
	"math"
	"sort"

	"strategy-graph-lab/internal/domain"
)

// RunSummary aggregates the reports of a set of test runs.
type RunSummary struct {
	TotalRuns int `json:"totalRuns"`

	// Return distribution across runs
	ReturnMean   float64 `json:"returnMean"`
	ReturnMedian float64 `json:"returnMedian"`
	ReturnP10    float64 `json:"returnP10"`
	ReturnP90    float64 `json:"returnP90"`
	ReturnMin    float64 `json:"returnMin"`
	ReturnMax    float64 `json:"returnMax"`
	ReturnStddev float64 `json:"returnStddev"`

	// Aggregates over run-level metrics
	MeanWinRate      float64 `json:"meanWinRate"`
	WorstDrawdown    float64 `json:"worstDrawdown"`
	BestSharpe       float64 `json:"bestSharpe"`
	TotalTrades      int     `json:"totalTrades"`
	RunsWithWarnings int     `json:"runsWithWarnings"`
}

// Summarize computes a RunSummary. Runs are sorted by (StartedAt, RunID)
// before computing, so the result is independent of input order.
func Summarize(runs []*domain.TestRun) *RunSummary {
	n := len(runs)
	if n == 0 {
		return &RunSummary{}
	}

	sorted := make([]*domain.TestRun, n)
	copy(sorted, runs)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].StartedAt.Equal(sorted[j].StartedAt) {
			return sorted[i].StartedAt.Before(sorted[j].StartedAt)
		}
		return sorted[i].RunID < sorted[j].RunID
	})

	returns := make([]float64, n)
	summary := &RunSummary{
		TotalRuns:     n,
		WorstDrawdown: sorted[0].Results.MaxDrawdown,
		BestSharpe:    sorted[0].Results.SharpeRatio,
	}

	winRateSum := 0.0
	for i, r := range sorted {
		returns[i] = r.Results.TotalReturn
		winRateSum += r.Results.WinRate
		summary.TotalTrades += r.Results.NumberOfTrades
		if r.WarningCount > 0 {
			summary.RunsWithWarnings++
		}
		if r.Results.MaxDrawdown > summary.WorstDrawdown {
			summary.WorstDrawdown = r.Results.MaxDrawdown
		}
		if r.Results.SharpeRatio > summary.BestSharpe {
			summary.BestSharpe = r.Results.SharpeRatio
		}
	}
	summary.MeanWinRate = winRateSum / float64(n)

	sortedReturns := make([]float64, n)
	copy(sortedReturns, returns)
	sort.Float64s(sortedReturns)

	summary.ReturnMean = mean(returns)
	summary.ReturnMedian = percentile(sortedReturns, 0.50)
	summary.ReturnP10 = percentile(sortedReturns, 0.10)
	summary.ReturnP90 = percentile(sortedReturns, 0.90)
	summary.ReturnMin = sortedReturns[0]
	summary.ReturnMax = sortedReturns[n-1]
	summary.ReturnStddev = stddev(returns, summary.ReturnMean)

	return summary
}

// mean calculates the arithmetic mean.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev calculates sample standard deviation (n-1 denominator).
func stddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// percentile uses linear interpolation. sorted must be pre-sorted ASC.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
