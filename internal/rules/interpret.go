package rules

import (
	"fmt"

	"strategy-graph-lab/internal/domain"
)

// interpret maps one rule-emitting component's property bag into a
// normalized rule. It is total: malformed values fall back to the kind's
// default and produce warnings, never errors. Logic gates are handled by
// the tree builder, not here.
func interpret(c *domain.Component) (domain.Rule, []Warning) {
	var warns []Warning
	warn := func(key string) {
		warns = append(warns, Warning{
			ComponentID: c.ID,
			Message:     fmt.Sprintf("%s: malformed property %q, using default", c.Kind, key),
		})
	}

	rule := domain.Rule{SourceComponentID: c.ID, Kind: c.Kind}

	switch c.Kind {
	case domain.KindIndicator:
		name, ok := stringOr(c.Properties, "indicatorName", "rsi")
		if !ok {
			warn("indicatorName")
		}
		op, ok := enumProp(c.Properties, "comparisonOperator", "<", "<", ">", "<=", ">=", "==")
		if !ok {
			warn("comparisonOperator")
		}
		threshold, ok := floatProp(c.Properties, "threshold", 30)
		if !ok {
			warn("threshold")
		}
		rule.Params = domain.IndicatorParams{Indicator: name, Operator: op, Threshold: threshold}
		rule.Description = fmt.Sprintf("%s %s %s", name, op, trimFloat(threshold))

	case domain.KindPriceAction:
		field, ok := enumProp(c.Properties, "priceField", "close", "open", "high", "low", "close")
		if !ok {
			warn("priceField")
		}
		cond, ok := enumProp(c.Properties, "condition", "above", "above", "below", "crosses-above", "crosses-below")
		if !ok {
			warn("condition")
		}
		target, ok := targetProp(c.Properties, "comparisonTarget", "moving-average")
		if !ok {
			warn("comparisonTarget")
		}
		rule.Params = domain.PriceActionParams{Field: field, Condition: cond, Target: target}
		rule.Description = fmt.Sprintf("%s %s %s", field, cond, target)

	case domain.KindPattern:
		name, ok := stringOr(c.Properties, "patternName", "engulfing")
		if !ok {
			warn("patternName")
		}
		sens, ok := floatProp(c.Properties, "sensitivity", 0.5)
		if !ok || sens < 0 || sens > 1 {
			sens = 0.5
			warn("sensitivity")
		}
		rule.Params = domain.PatternParams{Pattern: name, Sensitivity: sens}
		rule.Description = fmt.Sprintf("%s pattern (sensitivity %s)", name, trimFloat(sens))

	case domain.KindTimeFilter:
		start, ok := intProp(c.Properties, "startHour", 9)
		if !ok || start < 0 || start > 23 {
			start = 9
			warn("startHour")
		}
		end, ok := intProp(c.Properties, "endHour", 17)
		if !ok || end < 0 || end > 23 {
			end = 17
			warn("endHour")
		}
		rule.Params = domain.TimeFilterParams{StartHour: start, EndHour: end}
		rule.Description = fmt.Sprintf("session %02d:00-%02d:00 UTC", start, end)

	case domain.KindNewsEvent:
		impact, ok := enumProp(c.Properties, "impact", "high", "high", "medium", "low")
		if !ok {
			warn("impact")
		}
		buffer, ok := intProp(c.Properties, "bufferMinutes", 30)
		if !ok || buffer < 0 {
			buffer = 30
			warn("bufferMinutes")
		}
		rule.Params = domain.NewsEventParams{Impact: impact, BufferMinutes: buffer}
		rule.Description = fmt.Sprintf("no %s-impact news within %dm", impact, buffer)

	case domain.KindStopLoss:
		rule.Params, rule.Description, warns = exitRule(c, "stop loss", 20, warns)

	case domain.KindTakeProfit:
		rule.Params, rule.Description, warns = exitRule(c, "take profit", 40, warns)

	case domain.KindTrailingStop:
		rule.Params, rule.Description, warns = exitRule(c, "trailing stop", 15, warns)

	case domain.KindTimeExit:
		bars, ok := intProp(c.Properties, "maxBars", 20)
		if !ok || bars <= 0 {
			bars = 20
			warn("maxBars")
		}
		rule.Params = domain.TimeExitParams{MaxBars: bars}
		rule.Description = fmt.Sprintf("exit after %d bars", bars)

	case domain.KindPositionSize:
		mode, ok := enumProp(c.Properties, "mode", "fixed-risk-percent",
			"fixed-risk-percent", "fixed-lots", "kelly", "martingale")
		if !ok {
			warn("mode")
		}
		value, ok := floatProp(c.Properties, "value", 1)
		if !ok || value <= 0 {
			value = 1
			warn("value")
		}
		rule.Params = domain.PositionSizeParams{Mode: mode, Value: value}
		switch mode {
		case "fixed-risk-percent":
			rule.Description = fmt.Sprintf("risk %s%% per trade", trimFloat(value))
		case "fixed-lots":
			rule.Description = fmt.Sprintf("%s lots fixed", trimFloat(value))
		case "kelly":
			rule.Description = fmt.Sprintf("kelly sizing (fraction %s)", trimFloat(value))
		default:
			rule.Description = fmt.Sprintf("martingale sizing (base %s)", trimFloat(value))
		}

	case domain.KindMaxDrawdown:
		limit, ok := floatProp(c.Properties, "limitPercent", 20)
		if !ok || limit <= 0 {
			limit = 20
			warn("limitPercent")
		}
		rule.Params = domain.MaxDrawdownParams{LimitPercent: limit}
		rule.Description = fmt.Sprintf("max drawdown %s%%", trimFloat(limit))

	case domain.KindMaxPositions:
		limit, ok := intProp(c.Properties, "limit", 3)
		if !ok || limit <= 0 {
			limit = 3
			warn("limit")
		}
		rule.Params = domain.MaxPositionsParams{Limit: limit}
		rule.Description = fmt.Sprintf("max %d open positions", limit)
	}

	return rule, warns
}

// exitRule interprets the shared {mode, value} shape of stop-loss,
// take-profit, and trailing-stop components.
func exitRule(c *domain.Component, label string, defValue float64, warns []Warning) (domain.RuleParams, string, []Warning) {
	mode, ok := enumProp(c.Properties, "mode", "fixed-pips",
		"fixed-pips", "percentage", "atr-multiple", "structural")
	if !ok {
		warns = append(warns, Warning{ComponentID: c.ID, Message: fmt.Sprintf("%s: malformed property %q, using default", c.Kind, "mode")})
	}
	value, ok := floatProp(c.Properties, "value", defValue)
	if !ok || value <= 0 {
		value = defValue
		warns = append(warns, Warning{ComponentID: c.ID, Message: fmt.Sprintf("%s: malformed property %q, using default", c.Kind, "value")})
	}

	var desc string
	switch mode {
	case "fixed-pips":
		desc = fmt.Sprintf("%s %s pips", label, trimFloat(value))
	case "percentage":
		desc = fmt.Sprintf("%s %s%%", label, trimFloat(value))
	case "atr-multiple":
		desc = fmt.Sprintf("%s %sx ATR", label, trimFloat(value))
	default:
		desc = fmt.Sprintf("%s at structure", label)
	}

	return domain.ExitParams{Mode: mode, Value: value}, desc, warns
}

// stringOr reads a free-form string property (no allowed set).
func stringOr(props map[string]any, key, def string) (string, bool) {
	v, present := props[key]
	if !present {
		return def, true
	}
	if s, isString := v.(string); isString && s != "" {
		return s, true
	}
	return def, false
}
