package rules

import (
	"strings"

	"strategy-graph-lab/internal/domain"
)

// Expr is a boolean combination tree over extracted rules. Leaves are
// entry/exit rules; internal nodes are AND/OR/NOT combinators taken from
// logic gate components.
type Expr interface {
	// Render produces the deterministic infix form, e.g. "(rsi < 30 and close above moving-average)".
	Render() string
}

// Leaf wraps a single extracted rule.
type Leaf struct {
	Rule domain.Rule
}

// Render returns the rule's human description.
func (l Leaf) Render() string {
	return l.Rule.Description
}

// And is the conjunction of its operands.
type And struct {
	Operands []Expr
}

// Render joins operands with "and" inside parentheses.
func (a And) Render() string {
	return renderJoin(a.Operands, " and ")
}

// Or is the disjunction of its operands.
type Or struct {
	Operands []Expr
}

// Render joins operands with "or" inside parentheses.
func (o Or) Render() string {
	return renderJoin(o.Operands, " or ")
}

// Not negates its operand.
type Not struct {
	Operand Expr
}

// Render wraps the operand in "not (...)".
func (n Not) Render() string {
	return "not (" + n.Operand.Render() + ")"
}

func renderJoin(ops []Expr, sep string) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.Render()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// conjoin combines operands with AND, collapsing the degenerate cases.
func conjoin(ops []Expr) Expr {
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	default:
		return And{Operands: ops}
	}
}

// disjoin combines operands with OR, collapsing the degenerate cases.
func disjoin(ops []Expr) Expr {
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	default:
		return Or{Operands: ops}
	}
}
