package domain

// BacktestRequest is the payload sent to the external backtesting collaborator.
type BacktestRequest struct {
	Script         string  `json:"script"`
	VersionID      string  `json:"versionId"`
	Symbol         string  `json:"symbol"`
	FromMs         int64   `json:"fromMs"`
	ToMs           int64   `json:"toMs"`
	InitialCapital float64 `json:"initialCapital"`
	RiskPerTrade   float64 `json:"riskPerTrade"` // percent of equity per trade
	Commission     float64 `json:"commission"`
	Spread         float64 `json:"spread"`
}

// BacktestReport is the collaborator's performance report.
type BacktestReport struct {
	TotalReturn    float64 `json:"totalReturn"`
	WinRate        float64 `json:"winRate"`
	ProfitFactor   float64 `json:"profitFactor"`
	MaxDrawdown    float64 `json:"maxDrawdown"`
	SharpeRatio    float64 `json:"sharpeRatio"`
	NumberOfTrades int     `json:"numberOfTrades"`
	AverageWin     float64 `json:"averageWin"`
	AverageLoss    float64 `json:"averageLoss"`
}
