// Package rules turns the heterogeneous per-kind property bags of a strategy
// graph into a normalized rule set plus boolean combination trees. Extraction
// is pure and total: malformed properties fall back to kind defaults with a
// warning, and no graph shape makes it fail.
package rules

import (
	"fmt"
	"sort"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/graph"
)

// Warning is a non-blocking extraction finding, surfaced by the caller.
type Warning struct {
	ComponentID string `json:"componentId"`
	Message     string `json:"message"`
}

// Result is the output of one extraction pass.
type Result struct {
	RuleSet domain.NormalizedRuleSet

	// EntryExpr combines all entry rules: gate trees plus ungoverned rules
	// under an implicit AND (enter only if all signals agree). Nil when the
	// graph has no entry rules.
	EntryExpr Expr

	// ExitExpr combines all exit rules: gate trees plus ungoverned rules
	// under an implicit OR (exit if any condition fires). Nil when the
	// graph has no exit rules.
	ExitExpr Expr

	Warnings []Warning
}

// Extract walks all components and produces the normalized rule set and
// combination trees. Components are visited in id order, so output is
// deterministic and independent of insertion order.
func Extract(g *graph.Graph) Result {
	var res Result

	components := g.Components()
	ruleByID := make(map[string]domain.Rule)

	for _, c := range components {
		family, _ := domain.FamilyOf(c.Kind)
		if family == domain.FamilyLogic {
			continue
		}

		rule, warns := interpret(c)
		res.Warnings = append(res.Warnings, warns...)
		ruleByID[c.ID] = rule

		switch family {
		case domain.FamilyEntry:
			res.RuleSet.Entries = append(res.RuleSet.Entries, rule)
		case domain.FamilyExit:
			res.RuleSet.Exits = append(res.RuleSet.Exits, rule)
		case domain.FamilyRisk:
			res.RuleSet.Risks = append(res.RuleSet.Risks, rule)
		}
	}

	entryOps, exitOps := buildGateTrees(g, components, ruleByID, &res)

	// Ungoverned rule nodes: no outgoing edge into a logic gate. They join
	// the implicit combination for their family.
	governed := governedRules(g, components)
	for _, rule := range res.RuleSet.Entries {
		if !governed[rule.SourceComponentID] {
			entryOps = append(entryOps, operand{sortKey: rule.SourceComponentID, expr: Leaf{Rule: rule}})
		}
	}
	for _, rule := range res.RuleSet.Exits {
		if !governed[rule.SourceComponentID] {
			exitOps = append(exitOps, operand{sortKey: rule.SourceComponentID, expr: Leaf{Rule: rule}})
		}
	}

	res.EntryExpr = conjoin(sortOperands(entryOps))
	res.ExitExpr = disjoin(sortOperands(exitOps))
	return res
}

// operand pairs an expression with the component id it came from, so the
// final combination order is stable.
type operand struct {
	sortKey string
	expr    Expr
}

func sortOperands(ops []operand) []Expr {
	sort.Slice(ops, func(i, j int) bool { return ops[i].sortKey < ops[j].sortKey })
	out := make([]Expr, len(ops))
	for i, op := range ops {
		out[i] = op.expr
	}
	return out
}

// governedRules marks rule components whose output feeds a logic gate.
// Those rules are combined by their gate, not by the implicit policy.
func governedRules(g *graph.Graph, components []*domain.Component) map[string]bool {
	logic := make(map[string]bool)
	for _, c := range components {
		if f, _ := domain.FamilyOf(c.Kind); f == domain.FamilyLogic {
			logic[c.ID] = true
		}
	}

	governed := make(map[string]bool)
	for _, c := range components {
		if logic[c.ID] {
			continue
		}
		for _, conn := range g.Outgoing(c.ID) {
			if logic[conn.To] {
				governed[c.ID] = true
				break
			}
		}
	}
	return governed
}

// buildGateTrees builds one expression tree per top-level gate (a gate whose
// output does not feed another gate) and classifies each tree as entry- or
// exit-side by its leaf rules.
func buildGateTrees(g *graph.Graph, components []*domain.Component, ruleByID map[string]domain.Rule, res *Result) (entryOps, exitOps []operand) {
	logic := make(map[string]*domain.Component)
	for _, c := range components {
		if f, _ := domain.FamilyOf(c.Kind); f == domain.FamilyLogic {
			logic[c.ID] = c
		}
	}

	for _, c := range components {
		gate, isGate := logic[c.ID]
		if !isGate {
			continue
		}
		feedsGate := false
		for _, conn := range g.Outgoing(gate.ID) {
			if _, ok := logic[conn.To]; ok {
				feedsGate = true
				break
			}
		}
		if feedsGate {
			continue
		}

		b := &treeBuilder{g: g, logic: logic, rules: ruleByID, res: res}
		expr := b.build(gate, map[string]bool{})
		if expr == nil {
			res.Warnings = append(res.Warnings, Warning{
				ComponentID: gate.ID,
				Message:     fmt.Sprintf("%s gate has no rule inputs and is ignored", gate.Kind),
			})
			continue
		}

		if b.exitLeaves > 0 && b.entryLeaves == 0 {
			exitOps = append(exitOps, operand{sortKey: gate.ID, expr: expr})
			continue
		}
		if b.entryLeaves > 0 && b.exitLeaves > 0 {
			res.Warnings = append(res.Warnings, Warning{
				ComponentID: gate.ID,
				Message:     "gate combines entry and exit rules; treated as an entry condition",
			})
		}
		entryOps = append(entryOps, operand{sortKey: gate.ID, expr: expr})
	}
	return entryOps, exitOps
}

// treeBuilder recursively assembles the expression tree rooted at a gate,
// counting the families of the leaves it collects.
type treeBuilder struct {
	g     *graph.Graph
	logic map[string]*domain.Component
	rules map[string]domain.Rule
	res   *Result

	entryLeaves int
	exitLeaves  int
}

// build returns the expression for one gate, or nil if the gate has no
// usable inputs. Cycles are impossible by graph invariant; visited guards
// against sharing a gate between two paths counting twice.
func (b *treeBuilder) build(gate *domain.Component, visited map[string]bool) Expr {
	if visited[gate.ID] {
		return nil
	}
	visited[gate.ID] = true

	var ops []operand
	for _, conn := range b.g.Incoming(gate.ID) {
		source := conn.From

		if childGate, ok := b.logic[source]; ok {
			if child := b.build(childGate, visited); child != nil {
				ops = append(ops, operand{sortKey: source, expr: child})
			}
			continue
		}

		rule, ok := b.rules[source]
		if !ok {
			continue
		}
		family, _ := domain.FamilyOf(rule.Kind)
		switch family {
		case domain.FamilyEntry:
			b.entryLeaves++
		case domain.FamilyExit:
			b.exitLeaves++
		default:
			// Risk rules parameterize sizing, they are not boolean signals.
			b.res.Warnings = append(b.res.Warnings, Warning{
				ComponentID: source,
				Message:     fmt.Sprintf("%s feeds a logic gate and is ignored as a gate input", rule.Kind),
			})
			continue
		}
		ops = append(ops, operand{sortKey: source, expr: Leaf{Rule: rule}})
	}

	sorted := sortOperands(ops)
	switch gate.Kind {
	case domain.KindAnd:
		return conjoin(sorted)
	case domain.KindOr:
		return disjoin(sorted)
	case domain.KindNot:
		if len(sorted) == 0 {
			return nil
		}
		if len(sorted) > 1 {
			b.res.Warnings = append(b.res.Warnings, Warning{
				ComponentID: gate.ID,
				Message:     "not gate has multiple inputs; only the first is negated",
			})
		}
		return Not{Operand: sorted[0]}
	default:
		return nil
	}
}
