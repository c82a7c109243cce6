package models

import "time"

// BacktestRun is one logged backtest invocation: the parameters the caller
// supplied plus the headline figures. Full results are recomputed on demand
// and never stored.
type BacktestRun struct {
	ID                 int64     `json:"id"`
	ShortWindow        int       `json:"shortWindow"`
	LongWindow         int       `json:"longWindow"`
	InitialBalance     float64   `json:"initialBalance"`
	HistoryDays        int       `json:"historyDays"`
	TotalTrades        int       `json:"totalTrades"`
	WinRate            float64   `json:"winRate"`
	MaxDrawdown        float64   `json:"maxDrawdown"`
	FinalStrategyValue float64   `json:"finalStrategyValue"`
	FinalBuyHoldValue  float64   `json:"finalBuyHoldValue"`
	CreatedAt          time.Time `json:"createdAt"`
}
