package domain

// ComponentKind identifies a node type in the strategy graph.
type ComponentKind string

// Component kinds, grouped by family.
const (
	// Entry family
	KindPriceAction ComponentKind = "price-action"
	KindIndicator   ComponentKind = "indicator"
	KindPattern     ComponentKind = "pattern"
	KindTimeFilter  ComponentKind = "time-filter"
	KindNewsEvent   ComponentKind = "news-event"

	// Exit family
	KindStopLoss     ComponentKind = "stop-loss"
	KindTakeProfit   ComponentKind = "take-profit"
	KindTrailingStop ComponentKind = "trailing-stop"
	KindTimeExit     ComponentKind = "time-exit"

	// Risk family
	KindPositionSize ComponentKind = "position-size"
	KindMaxDrawdown  ComponentKind = "max-drawdown"
	KindMaxPositions ComponentKind = "max-positions"

	// Logic family
	KindAnd ComponentKind = "and"
	KindOr  ComponentKind = "or"
	KindNot ComponentKind = "not"
)

// Family groups component kinds by role.
type Family string

// Families.
const (
	FamilyEntry Family = "entry"
	FamilyExit  Family = "exit"
	FamilyRisk  Family = "risk"
	FamilyLogic Family = "logic"
)

// kindFamilies maps every known kind to its family.
var kindFamilies = map[ComponentKind]Family{
	KindPriceAction:  FamilyEntry,
	KindIndicator:    FamilyEntry,
	KindPattern:      FamilyEntry,
	KindTimeFilter:   FamilyEntry,
	KindNewsEvent:    FamilyEntry,
	KindStopLoss:     FamilyExit,
	KindTakeProfit:   FamilyExit,
	KindTrailingStop: FamilyExit,
	KindTimeExit:     FamilyExit,
	KindPositionSize: FamilyRisk,
	KindMaxDrawdown:  FamilyRisk,
	KindMaxPositions: FamilyRisk,
	KindAnd:          FamilyLogic,
	KindOr:           FamilyLogic,
	KindNot:          FamilyLogic,
}

// FamilyOf returns the family for a kind. The second return value is false
// for unknown kinds.
func FamilyOf(kind ComponentKind) (Family, bool) {
	f, ok := kindFamilies[kind]
	return f, ok
}

// KnownKind reports whether kind is part of the closed kind set.
func KnownKind(kind ComponentKind) bool {
	_, ok := kindFamilies[kind]
	return ok
}

// Position is a 2D canvas coordinate. Cosmetic only, never affects semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Component is a node in the strategy graph. Properties is an open bag whose
// valid keys and value types depend on Kind; interpretation is deferred to
// rule extraction, which falls back to kind defaults on malformed values.
type Component struct {
	ID         string         `json:"id"`
	Kind       ComponentKind  `json:"kind"`
	Properties map[string]any `json:"properties"`
	Position   Position       `json:"position"`
}

// DefaultProperties returns the default property bag for a kind. These are
// also the values rule extraction falls back to on malformed input.
// Returns nil for unknown kinds.
func DefaultProperties(kind ComponentKind) map[string]any {
	switch kind {
	case KindPriceAction:
		return map[string]any{"priceField": "close", "condition": "above", "comparisonTarget": "moving-average"}
	case KindIndicator:
		return map[string]any{"indicatorName": "rsi", "comparisonOperator": "<", "threshold": 30.0}
	case KindPattern:
		return map[string]any{"patternName": "engulfing", "sensitivity": 0.5}
	case KindTimeFilter:
		return map[string]any{"startHour": 9, "endHour": 17}
	case KindNewsEvent:
		return map[string]any{"impact": "high", "bufferMinutes": 30}
	case KindStopLoss:
		return map[string]any{"mode": "fixed-pips", "value": 20.0}
	case KindTakeProfit:
		return map[string]any{"mode": "fixed-pips", "value": 40.0}
	case KindTrailingStop:
		return map[string]any{"mode": "fixed-pips", "value": 15.0}
	case KindTimeExit:
		return map[string]any{"maxBars": 20}
	case KindPositionSize:
		return map[string]any{"mode": "fixed-risk-percent", "value": 1.0}
	case KindMaxDrawdown:
		return map[string]any{"limitPercent": 20.0}
	case KindMaxPositions:
		return map[string]any{"limit": 3}
	case KindAnd, KindOr, KindNot:
		return map[string]any{}
	default:
		return nil
	}
}
