package domain

// RuleParams is the tagged union of per-kind structured parameters produced
// by rule extraction. Each rule-emitting kind has exactly one params type;
// a single exhaustive switch over these replaces property-bag key lookups.
type RuleParams interface {
	ruleParams()
}

// IndicatorParams describes an indicator threshold condition.
type IndicatorParams struct {
	Indicator string  // e.g. "rsi", "macd"
	Operator  string  // "<", ">", "<=", ">=", "=="
	Threshold float64
}

// PriceActionParams describes an OHLC field comparison.
type PriceActionParams struct {
	Field     string // "open" | "high" | "low" | "close"
	Condition string // "above" | "below" | "crosses-above" | "crosses-below"
	Target    string // fixed value rendered as text, "moving-average", "prior-high", "prior-low"
}

// PatternParams describes a candlestick pattern match.
type PatternParams struct {
	Pattern     string
	Sensitivity float64 // 0..1
}

// TimeFilterParams restricts entries to a session window (UTC hours).
type TimeFilterParams struct {
	StartHour int
	EndHour   int
}

// NewsEventParams blocks entries around scheduled news.
type NewsEventParams struct {
	Impact        string // "high" | "medium" | "low"
	BufferMinutes int
}

// ExitParams describes stop-loss, take-profit and trailing-stop exits.
type ExitParams struct {
	Mode  string // "fixed-pips" | "percentage" | "atr-multiple" | "structural"
	Value float64
}

// TimeExitParams closes the position after a bar count.
type TimeExitParams struct {
	MaxBars int
}

// PositionSizeParams describes the sizing model.
type PositionSizeParams struct {
	Mode  string // "fixed-risk-percent" | "fixed-lots" | "kelly" | "martingale"
	Value float64
}

// MaxDrawdownParams is a scalar equity drawdown limit in percent.
type MaxDrawdownParams struct {
	LimitPercent float64
}

// MaxPositionsParams is a scalar concurrent position limit.
type MaxPositionsParams struct {
	Limit int
}

func (IndicatorParams) ruleParams()    {}
func (PriceActionParams) ruleParams()  {}
func (PatternParams) ruleParams()      {}
func (TimeFilterParams) ruleParams()   {}
func (NewsEventParams) ruleParams()    {}
func (ExitParams) ruleParams()         {}
func (TimeExitParams) ruleParams()     {}
func (PositionSizeParams) ruleParams() {}
func (MaxDrawdownParams) ruleParams()  {}
func (MaxPositionsParams) ruleParams() {}

// Rule is a normalized entry/exit/risk rule extracted from one component.
type Rule struct {
	SourceComponentID string
	Kind              ComponentKind
	Description       string // human-readable, e.g. "rsi < 30"
	Params            RuleParams
}

// NormalizedRuleSet holds the extracted rules grouped by family, each ordered
// by source component id.
type NormalizedRuleSet struct {
	Entries []Rule
	Exits   []Rule
	Risks   []Rule
}
