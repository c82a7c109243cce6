package backtest

import "time"

type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
)

// PricePoint is one daily close. Series passed to this package must be
// ordered by strictly increasing timestamp with no duplicates.
type PricePoint struct {
	Timestamp time.Time `json:"t"`
	Close     float64   `json:"close"`
}

// Signal marks a crossover event at a specific point in the series.
type Signal struct {
	Timestamp time.Time  `json:"t"`
	Type      SignalType `json:"type"`
	Price     float64    `json:"price"`
}

// Trade is a realized round trip: opened by a buy signal, closed by a sell.
type Trade struct {
	EntryTime  time.Time `json:"entryTime"`
	ExitTime   time.Time `json:"exitTime"`
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	ReturnPct  float64   `json:"returnPct"`
}

// OpenPosition describes a position still held at the end of the series,
// marked to market at the last close. It is never counted as a trade.
type OpenPosition struct {
	EntryTime     time.Time `json:"entryTime"`
	EntryPrice    float64   `json:"entryPrice"`
	Quantity      float64   `json:"quantity"`
	MarketValue   float64   `json:"marketValue"`
	UnrealizedPct float64   `json:"unrealizedPct"`
}

type EquityPoint struct {
	Timestamp time.Time `json:"t"`
	Value     float64   `json:"value"`
}

type Params struct {
	ShortWindow    int     `json:"shortWindow"`
	LongWindow     int     `json:"longWindow"`
	InitialBalance float64 `json:"initialBalance"`
}

type Result struct {
	Params Params `json:"params"`

	// Curves are aligned to the input series; both have the same length
	// as the price series. SMA series only include defined points, so
	// they start window-1 entries later.
	EquityCurve  []EquityPoint `json:"equityCurve"`
	BuyHoldCurve []EquityPoint `json:"buyHoldCurve"`
	ShortSMA     []EquityPoint `json:"shortSma"`
	LongSMA      []EquityPoint `json:"longSma"`

	Signals []Signal `json:"signals"`
	Trades  []Trade  `json:"trades"`

	TotalTrades    int     `json:"totalTrades"`
	WinRate        float64 `json:"winRate"`
	AvgTradeReturn float64 `json:"avgTradeReturn"`
	MaxDrawdown    float64 `json:"maxDrawdown"`

	FinalStrategyValue float64 `json:"finalStrategyValue"`
	FinalBuyHoldValue  float64 `json:"finalBuyHoldValue"`

	Open *OpenPosition `json:"openPosition,omitempty"`
}
