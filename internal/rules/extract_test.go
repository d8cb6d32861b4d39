package rules

import (
	"reflect"
	"testing"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/graph"
)

func mustAdd(t *testing.T, g *graph.Graph, kind domain.ComponentKind) *domain.Component {
	t.Helper()
	c, err := g.AddComponent(kind, domain.Position{})
	if err != nil {
		t.Fatalf("AddComponent(%s) failed: %v", kind, err)
	}
	return c
}

func mustConnect(t *testing.T, g *graph.Graph, from, to string) {
	t.Helper()
	if _, err := g.Connect(from, to, 0, 0); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
}

func mustUpdate(t *testing.T, g *graph.Graph, id string, patch map[string]any) {
	t.Helper()
	if err := g.UpdateProperties(id, patch); err != nil {
		t.Fatalf("UpdateProperties failed: %v", err)
	}
}

func TestExtract_IndicatorRule(t *testing.T) {
	g := graph.New()
	ind := mustAdd(t, g, domain.KindIndicator)
	mustUpdate(t, g, ind.ID, map[string]any{"indicatorName": "rsi", "comparisonOperator": "<", "threshold": 30.0})

	res := Extract(g)
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", res.Warnings)
	}
	if len(res.RuleSet.Entries) != 1 {
		t.Fatalf("expected 1 entry rule, got %d", len(res.RuleSet.Entries))
	}

	rule := res.RuleSet.Entries[0]
	if rule.Description != "rsi < 30" {
		t.Errorf("unexpected description: %q", rule.Description)
	}
	params, ok := rule.Params.(domain.IndicatorParams)
	if !ok {
		t.Fatalf("expected IndicatorParams, got %T", rule.Params)
	}
	if params.Threshold != 30 || params.Operator != "<" || params.Indicator != "rsi" {
		t.Errorf("unexpected params: %+v", params)
	}

	if res.EntryExpr == nil || res.EntryExpr.Render() != "rsi < 30" {
		t.Errorf("unexpected entry expr: %v", res.EntryExpr)
	}
}

func TestExtract_MalformedPropertyFallsBack(t *testing.T) {
	g := graph.New()
	ind := mustAdd(t, g, domain.KindIndicator)
	mustUpdate(t, g, ind.ID, map[string]any{"threshold": "not-a-number", "comparisonOperator": "between"})

	res := Extract(g)

	if len(res.RuleSet.Entries) != 1 {
		t.Fatalf("extraction must stay total, got %d entries", len(res.RuleSet.Entries))
	}
	params := res.RuleSet.Entries[0].Params.(domain.IndicatorParams)
	if params.Threshold != 30 {
		t.Errorf("expected default threshold 30, got %v", params.Threshold)
	}
	if params.Operator != "<" {
		t.Errorf("expected default operator <, got %q", params.Operator)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %+v", res.Warnings)
	}
}

func TestExtract_ExitAndRiskRules(t *testing.T) {
	g := graph.New()
	sl := mustAdd(t, g, domain.KindStopLoss)
	mustUpdate(t, g, sl.ID, map[string]any{"mode": "percentage", "value": 2.0})
	ps := mustAdd(t, g, domain.KindPositionSize)
	dd := mustAdd(t, g, domain.KindMaxDrawdown)

	res := Extract(g)

	if len(res.RuleSet.Exits) != 1 || len(res.RuleSet.Risks) != 2 {
		t.Fatalf("unexpected rule counts: exits=%d risks=%d", len(res.RuleSet.Exits), len(res.RuleSet.Risks))
	}
	if res.RuleSet.Exits[0].Description != "stop loss 2%" {
		t.Errorf("unexpected exit description: %q", res.RuleSet.Exits[0].Description)
	}
	if _, ok := res.RuleSet.Exits[0].Params.(domain.ExitParams); !ok {
		t.Errorf("expected ExitParams, got %T", res.RuleSet.Exits[0].Params)
	}
	_ = ps
	_ = dd
	if res.ExitExpr == nil || res.ExitExpr.Render() != "stop loss 2%" {
		t.Errorf("unexpected exit expr: %v", res.ExitExpr)
	}
}

func TestExtract_ImplicitCombination(t *testing.T) {
	// Two ungoverned entry rules combine with AND, two ungoverned exit rules
	// with OR.
	g := graph.New()
	a := mustAdd(t, g, domain.KindIndicator)
	b := mustAdd(t, g, domain.KindPattern)
	sl := mustAdd(t, g, domain.KindStopLoss)
	tp := mustAdd(t, g, domain.KindTakeProfit)

	res := Extract(g)

	entry, ok := res.EntryExpr.(And)
	if !ok {
		t.Fatalf("expected implicit AND for entries, got %T", res.EntryExpr)
	}
	if len(entry.Operands) != 2 {
		t.Errorf("expected 2 entry operands, got %d", len(entry.Operands))
	}

	exit, ok := res.ExitExpr.(Or)
	if !ok {
		t.Fatalf("expected implicit OR for exits, got %T", res.ExitExpr)
	}
	if len(exit.Operands) != 2 {
		t.Errorf("expected 2 exit operands, got %d", len(exit.Operands))
	}
	_, _, _, _ = a, b, sl, tp
}

func TestExtract_GateTree(t *testing.T) {
	// indicator -> AND <- pattern; the gate governs both rules.
	g := graph.New()
	ind := mustAdd(t, g, domain.KindIndicator)
	pat := mustAdd(t, g, domain.KindPattern)
	gate := mustAdd(t, g, domain.KindAnd)
	tp := mustAdd(t, g, domain.KindTakeProfit)

	mustConnect(t, g, ind.ID, gate.ID)
	mustConnect(t, g, pat.ID, gate.ID)
	mustConnect(t, g, gate.ID, tp.ID)

	res := Extract(g)

	entry, ok := res.EntryExpr.(And)
	if !ok {
		t.Fatalf("expected AND tree, got %T", res.EntryExpr)
	}
	if len(entry.Operands) != 2 {
		t.Fatalf("expected 2 gate operands, got %d", len(entry.Operands))
	}
	for _, op := range entry.Operands {
		if _, isLeaf := op.(Leaf); !isLeaf {
			t.Errorf("expected leaf operand, got %T", op)
		}
	}

	// The take-profit downstream of the gate is still an ungoverned exit.
	if res.ExitExpr == nil || res.ExitExpr.Render() != "take profit 40 pips" {
		t.Errorf("unexpected exit expr: %v", res.ExitExpr)
	}
}

func TestExtract_NestedGates(t *testing.T) {
	// (indicator OR pattern) -> NOT is nonsense trading-wise but exercises
	// gate-into-gate nesting: NOT is top level, OR is nested.
	g := graph.New()
	ind := mustAdd(t, g, domain.KindIndicator)
	pat := mustAdd(t, g, domain.KindPattern)
	or := mustAdd(t, g, domain.KindOr)
	not := mustAdd(t, g, domain.KindNot)

	mustConnect(t, g, ind.ID, or.ID)
	mustConnect(t, g, pat.ID, or.ID)
	mustConnect(t, g, or.ID, not.ID)

	res := Extract(g)

	neg, ok := res.EntryExpr.(Not)
	if !ok {
		t.Fatalf("expected NOT at top level, got %T", res.EntryExpr)
	}
	if _, ok := neg.Operand.(Or); !ok {
		t.Fatalf("expected OR nested under NOT, got %T", neg.Operand)
	}
}

func TestExtract_GateWithoutRuleInputsIgnored(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, domain.KindAnd)
	ind := mustAdd(t, g, domain.KindIndicator)
	_ = ind

	res := Extract(g)

	found := false
	for _, w := range res.Warnings {
		if w.Message == "and gate has no rule inputs and is ignored" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected empty-gate warning, got %+v", res.Warnings)
	}
	// The ungoverned indicator still forms the entry expression.
	if res.EntryExpr == nil {
		t.Error("expected entry expr from ungoverned indicator")
	}
}

func TestExtract_Deterministic(t *testing.T) {
	g := graph.New()
	ind := mustAdd(t, g, domain.KindIndicator)
	pat := mustAdd(t, g, domain.KindPattern)
	gate := mustAdd(t, g, domain.KindAnd)
	sl := mustAdd(t, g, domain.KindStopLoss)
	mustConnect(t, g, ind.ID, gate.ID)
	mustConnect(t, g, pat.ID, gate.ID)
	_ = sl

	first := Extract(g)
	for i := 0; i < 10; i++ {
		again := Extract(g)
		if first.EntryExpr.Render() != again.EntryExpr.Render() {
			t.Fatalf("run %d: entry expr differs", i)
		}
		if !reflect.DeepEqual(first.RuleSet, again.RuleSet) {
			t.Fatalf("run %d: rule set differs", i)
		}
	}
}
