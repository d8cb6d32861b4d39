package validation

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

func hasCode(fs []Finding, code string) bool {
	for _, f := range fs {
		if f.Code == code {
			return true
		}
	}
	return false
}

func TestValidate_EmptyGraph_MissingAllCategories(t *testing.T) {
	v := New(0)
	res := v.Validate(graph.New())

	for _, code := range []string{CodeMissingEntry, CodeMissingExit, CodeMissingRisk} {
		if !hasCode(res.Errors, code) {
			t.Errorf("expected error %s on empty graph", code)
		}
	}
	if res.Valid() {
		t.Error("empty graph must not be valid")
	}
}

func TestValidate_DisconnectedComponents(t *testing.T) {
	// Three unconnected nodes, one per family: category coverage passes but
	// the connectivity check must fire with count 3.
	g := graph.New()
	mustAdd(t, g, domain.KindIndicator)
	mustAdd(t, g, domain.KindStopLoss)
	mustAdd(t, g, domain.KindPositionSize)

	res := New(0).Validate(g)

	if hasCode(res.Errors, CodeMissingEntry) || hasCode(res.Errors, CodeMissingExit) || hasCode(res.Errors, CodeMissingRisk) {
		t.Error("category coverage should pass with one node per family")
	}
	if !hasCode(res.Errors, CodeDisconnected) {
		t.Fatal("expected disconnected error")
	}
	for _, f := range res.Errors {
		if f.Code == CodeDisconnected && f.Message != "3 component(s) have no connections" {
			t.Errorf("unexpected disconnected message: %q", f.Message)
		}
	}
}

func TestValidate_SingleComponentExempt(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, domain.KindIndicator)

	res := New(0).Validate(g)
	if hasCode(res.Errors, CodeDisconnected) {
		t.Error("single-component graph must be exempt from the connectivity check")
	}
}

func TestValidate_FullyConnectedGraph_NoErrors(t *testing.T) {
	g := graph.New()
	ind := mustAdd(t, g, domain.KindIndicator)
	gate := mustAdd(t, g, domain.KindAnd)
	tf := mustAdd(t, g, domain.KindTimeFilter)
	tp := mustAdd(t, g, domain.KindTakeProfit)
	sl := mustAdd(t, g, domain.KindStopLoss)
	risk := mustAdd(t, g, domain.KindPositionSize)

	mustConnect(t, g, ind.ID, gate.ID)
	mustConnect(t, g, tf.ID, gate.ID)
	mustConnect(t, g, gate.ID, tp.ID)
	mustConnect(t, g, tp.ID, sl.ID)
	mustConnect(t, g, sl.ID, risk.ID)

	res := New(0).Validate(g)
	if !res.Valid() {
		t.Errorf("expected zero errors, got %+v", res.Errors)
	}
	if hasCode(res.Warnings, CodeNoStopLoss) {
		t.Error("stop-loss present, warning must not fire")
	}
}

func TestValidate_RiskHygieneWarnings(t *testing.T) {
	g := graph.New()
	ind := mustAdd(t, g, domain.KindIndicator)
	tp := mustAdd(t, g, domain.KindTakeProfit)
	risk := mustAdd(t, g, domain.KindPositionSize)
	if err := g.UpdateProperties(risk.ID, map[string]any{"value": 5.0}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	mustConnect(t, g, ind.ID, tp.ID)
	mustConnect(t, g, tp.ID, risk.ID)

	res := New(2.0).Validate(g)
	if !res.Valid() {
		t.Fatalf("expected structurally valid graph, got errors %+v", res.Errors)
	}
	if !hasCode(res.Warnings, CodeRiskPerTrade) {
		t.Error("expected risk-per-trade warning at 5% risk")
	}
	if !hasCode(res.Warnings, CodeNoStopLoss) {
		t.Error("expected no-stop-loss warning")
	}
}

func TestValidate_GateArityWarnings(t *testing.T) {
	g := graph.New()
	ind := mustAdd(t, g, domain.KindIndicator)
	gate := mustAdd(t, g, domain.KindAnd)
	mustConnect(t, g, ind.ID, gate.ID)

	res := New(0).Validate(g)
	if !hasCode(res.Warnings, CodeGateInputArity) {
		t.Error("expected arity warning for 1-input AND gate")
	}
}

func TestValidate_Deterministic(t *testing.T) {
	g := graph.New()
	mustAdd(t, g, domain.KindIndicator)
	mustAdd(t, g, domain.KindPattern)
	mustAdd(t, g, domain.KindStopLoss)
	mustAdd(t, g, domain.KindPositionSize)

	v := New(0)
	first := v.Validate(g)
	for i := 0; i < 10; i++ {
		again := v.Validate(g)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: findings differ across repeated validation", i)
		}
	}
}
