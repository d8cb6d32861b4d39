// Package codegen renders a normalized rule set and its combination trees
// into the target strategy script. Rendering is a pure step: identical
// inputs always produce byte-identical output, so scripts can be versioned
// and diffed.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/idhash"
	"strategy-graph-lab/internal/rules"
)

// scriptHeader is fixed; any format change is a new script version.
const scriptHeader = "# strategy-script v1"

// Generate renders the compiled strategy artifact. The script has a fixed
// section order: input parameter declarations, an initialization block, and
// a per-tick block with the entry/exit expressions and position sizing.
func Generate(versionID string, rs domain.NormalizedRuleSet, entryExpr, exitExpr rules.Expr) *domain.CompiledStrategy {
	var sb strings.Builder

	sb.WriteString(scriptHeader)
	sb.WriteString("\n\n")

	writeInputs(&sb, rs)
	writeInit(&sb)
	writeOnTick(&sb, rs, entryExpr, exitExpr)

	script := sb.String()
	return &domain.CompiledStrategy{
		VersionID:    versionID,
		ArtifactHash: idhash.ComputeArtifactID(script),
		Script:       script,
		RuleSet:      rs,
	}
}

// writeInputs declares input parameters drawn from the risk rules. Risk
// rules arrive ordered by source component id, so declaration order is
// stable.
func writeInputs(sb *strings.Builder, rs domain.NormalizedRuleSet) {
	sb.WriteString("inputs:\n")
	sb.WriteString("  initial_capital = number(default 10000)\n")

	for _, rule := range rs.Risks {
		switch p := rule.Params.(type) {
		case domain.PositionSizeParams:
			switch p.Mode {
			case "fixed-risk-percent":
				fmt.Fprintf(sb, "  risk_per_trade_pct = number(default %s)\n", num(p.Value))
			case "fixed-lots":
				fmt.Fprintf(sb, "  fixed_lots = number(default %s)\n", num(p.Value))
			case "kelly":
				fmt.Fprintf(sb, "  kelly_fraction = number(default %s)\n", num(p.Value))
			case "martingale":
				fmt.Fprintf(sb, "  martingale_base = number(default %s)\n", num(p.Value))
			}
		case domain.MaxDrawdownParams:
			fmt.Fprintf(sb, "  max_drawdown_pct = number(default %s)\n", num(p.LimitPercent))
		case domain.MaxPositionsParams:
			fmt.Fprintf(sb, "  max_open_positions = number(default %d)\n", p.Limit)
		}
	}
	sb.WriteString("\n")
}

func writeInit(sb *strings.Builder) {
	sb.WriteString("init:\n")
	sb.WriteString("  equity = initial_capital\n")
	sb.WriteString("  open_positions = 0\n")
	sb.WriteString("\n")
}

func writeOnTick(sb *strings.Builder, rs domain.NormalizedRuleSet, entryExpr, exitExpr rules.Expr) {
	sb.WriteString("on_tick:\n")

	fmt.Fprintf(sb, "  entry_signal = %s\n", renderExpr(entryExpr))
	fmt.Fprintf(sb, "  exit_signal = %s\n", renderExpr(exitExpr))
	fmt.Fprintf(sb, "  position_size = %s\n", sizingExpr(rs))

	guard := "entry_signal"
	if hasMaxPositions(rs) {
		guard = "entry_signal and open_positions < max_open_positions"
	}
	fmt.Fprintf(sb, "  if %s:\n", guard)
	sb.WriteString("    enter(position_size)\n")
	sb.WriteString("  if exit_signal:\n")
	sb.WriteString("    exit_all()\n")

	if hasMaxDrawdown(rs) {
		sb.WriteString("  if drawdown() > max_drawdown_pct:\n")
		sb.WriteString("    halt()\n")
	}
}

// renderExpr renders a combination tree, or "false" when the family has no
// rules. Entry "false" means the strategy never enters; generation stays
// total even for graphs that validation would reject.
func renderExpr(expr rules.Expr) string {
	if expr == nil {
		return "false"
	}
	return expr.Render()
}

// sizingExpr derives the position sizing calculation from the first
// position-size rule. Rules are ordered by component id, so multiple sizing
// nodes resolve deterministically.
func sizingExpr(rs domain.NormalizedRuleSet) string {
	for _, rule := range rs.Risks {
		p, ok := rule.Params.(domain.PositionSizeParams)
		if !ok {
			continue
		}
		switch p.Mode {
		case "fixed-risk-percent":
			return "equity * (risk_per_trade_pct / 100) / stop_distance()"
		case "fixed-lots":
			return "fixed_lots"
		case "kelly":
			return "equity * kelly_fraction * edge(win_rate(), payoff())"
		case "martingale":
			return "martingale_base * pow(2, consecutive_losses())"
		}
	}
	// No sizing rule: conservative 1% fallback.
	return "equity * 0.01 / stop_distance()"
}

func hasMaxPositions(rs domain.NormalizedRuleSet) bool {
	for _, rule := range rs.Risks {
		if _, ok := rule.Params.(domain.MaxPositionsParams); ok {
			return true
		}
	}
	return false
}

func hasMaxDrawdown(rs domain.NormalizedRuleSet) bool {
	for _, rule := range rs.Risks {
		if _, ok := rule.Params.(domain.MaxDrawdownParams); ok {
			return true
		}
	}
	return false
}

// num renders a float without trailing zeros.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
