// Package validation runs structural and semantic checks over a strategy
// graph. Validation is pure: it never mutates the graph, and repeated runs
// over an unchanged graph return identical findings in identical order.
package validation

import (
	"fmt"
	"sort"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/graph"
)

// Severity of a finding.
type Severity string

// Severities. Errors block testing; warnings are advisory.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding codes.
const (
	CodeMissingEntry    = "missing-entry"
	CodeMissingExit     = "missing-exit"
	CodeMissingRisk     = "missing-risk"
	CodeDisconnected    = "disconnected"
	CodeRiskPerTrade    = "risk-per-trade"
	CodeNoStopLoss      = "no-stop-loss"
	CodeGateInputArity  = "gate-input-arity"
)

// Finding is one validation result.
type Finding struct {
	Severity    Severity `json:"severity"`
	Code        string   `json:"code"`
	ComponentID string   `json:"componentId,omitempty"`
	Message     string   `json:"message"`
}

// Result splits findings into blocking errors and advisory warnings.
type Result struct {
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
}

// Valid reports whether the graph has no blocking errors.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Validator runs the check suite. The zero value is not usable; call New.
type Validator struct {
	maxRiskPerTrade float64 // percent of equity, risk hygiene threshold
}

// DefaultMaxRiskPerTrade is the risk hygiene warning threshold in percent.
const DefaultMaxRiskPerTrade = 2.0

// New creates a Validator. maxRiskPerTrade <= 0 selects the default.
func New(maxRiskPerTrade float64) *Validator {
	if maxRiskPerTrade <= 0 {
		maxRiskPerTrade = DefaultMaxRiskPerTrade
	}
	return &Validator{maxRiskPerTrade: maxRiskPerTrade}
}

// Validate runs category coverage, connectivity, and risk hygiene checks.
// Findings are sorted on a stable key so the result is independent of
// component insertion order.
func (v *Validator) Validate(g *graph.Graph) Result {
	var res Result

	res.Errors = append(res.Errors, v.checkCategoryCoverage(g)...)
	res.Errors = append(res.Errors, v.checkConnectivity(g)...)
	res.Warnings = append(res.Warnings, v.checkRiskHygiene(g)...)
	res.Warnings = append(res.Warnings, v.checkGateArity(g)...)

	sortFindings(res.Errors)
	sortFindings(res.Warnings)
	return res
}

// checkCategoryCoverage requires at least one entry, one exit, and one risk
// component. A strategy missing any of the three is not executable.
func (v *Validator) checkCategoryCoverage(g *graph.Graph) []Finding {
	present := map[domain.Family]bool{}
	for _, c := range g.Components() {
		if f, ok := domain.FamilyOf(c.Kind); ok {
			present[f] = true
		}
	}

	var findings []Finding
	if !present[domain.FamilyEntry] {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Code:     CodeMissingEntry,
			Message:  "strategy has no entry signal component",
		})
	}
	if !present[domain.FamilyExit] {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Code:     CodeMissingExit,
			Message:  "strategy has no exit rule component",
		})
	}
	if !present[domain.FamilyRisk] {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Code:     CodeMissingRisk,
			Message:  "strategy has no risk constraint component",
		})
	}
	return findings
}

// checkConnectivity reports components with zero incident edges. A graph
// with a single component is trivially connected and exempt.
func (v *Validator) checkConnectivity(g *graph.Graph) []Finding {
	if g.ComponentCount() <= 1 {
		return nil
	}

	isolated := 0
	for _, c := range g.Components() {
		if g.Degree(c.ID) == 0 {
			isolated++
		}
	}
	if isolated == 0 {
		return nil
	}
	return []Finding{{
		Severity: SeverityError,
		Code:     CodeDisconnected,
		Message:  fmt.Sprintf("%d component(s) have no connections", isolated),
	}}
}

// checkRiskHygiene warns on oversized per-trade risk and on missing
// stop-loss exits. Both leave the strategy structurally valid, just risky.
func (v *Validator) checkRiskHygiene(g *graph.Graph) []Finding {
	var findings []Finding
	hasStopLoss := false

	for _, c := range g.Components() {
		switch c.Kind {
		case domain.KindStopLoss:
			hasStopLoss = true
		case domain.KindPositionSize:
			mode, _ := c.Properties["mode"].(string)
			if mode != "fixed-risk-percent" {
				continue
			}
			if risk, ok := asFloat(c.Properties["value"]); ok && risk > v.maxRiskPerTrade {
				findings = append(findings, Finding{
					Severity:    SeverityWarning,
					Code:        CodeRiskPerTrade,
					ComponentID: c.ID,
					Message:     fmt.Sprintf("position size risks %.2f%% per trade, above the %.2f%% threshold", risk, v.maxRiskPerTrade),
				})
			}
		}
	}

	if !hasStopLoss {
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			Code:     CodeNoStopLoss,
			Message:  "strategy has no stop-loss exit",
		})
	}
	return findings
}

// checkGateArity warns on logic gates with implausible input counts:
// AND/OR want at least two inputs, NOT exactly one.
func (v *Validator) checkGateArity(g *graph.Graph) []Finding {
	var findings []Finding
	for _, c := range g.Components() {
		inputs := len(g.Incoming(c.ID))
		switch c.Kind {
		case domain.KindAnd, domain.KindOr:
			if inputs < 2 {
				findings = append(findings, Finding{
					Severity:    SeverityWarning,
					Code:        CodeGateInputArity,
					ComponentID: c.ID,
					Message:     fmt.Sprintf("%s gate has %d input(s), expected at least 2", c.Kind, inputs),
				})
			}
		case domain.KindNot:
			if inputs != 1 {
				findings = append(findings, Finding{
					Severity:    SeverityWarning,
					Code:        CodeGateInputArity,
					ComponentID: c.ID,
					Message:     fmt.Sprintf("not gate has %d input(s), expected exactly 1", inputs),
				})
			}
		}
	}
	return findings
}

// sortFindings orders findings by (code, component id, message) so output is
// stable regardless of map iteration or insertion order.
func sortFindings(fs []Finding) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].Code != fs[j].Code {
			return fs[i].Code < fs[j].Code
		}
		if fs[i].ComponentID != fs[j].ComponentID {
			return fs[i].ComponentID < fs[j].ComponentID
		}
		return fs[i].Message < fs[j].Message
	})
}

// asFloat coerces numeric property values. Property bags decoded from JSON
// carry float64; in-process edits may use int.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
