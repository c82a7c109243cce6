package backtest

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParams is returned when backtest parameters fail validation.
// All other degenerate inputs (empty series, no crossovers) produce a
// well-defined result instead of an error.
var ErrInvalidParams = errors.New("invalid backtest parameters")

func (p Params) Validate() error {
	if p.ShortWindow <= 0 || p.LongWindow <= 0 {
		return fmt.Errorf("%w: windows must be positive (short=%d, long=%d)",
			ErrInvalidParams, p.ShortWindow, p.LongWindow)
	}
	if p.ShortWindow >= p.LongWindow {
		return fmt.Errorf("%w: short window (%d) must be smaller than long window (%d)",
			ErrInvalidParams, p.ShortWindow, p.LongWindow)
	}
	if p.InitialBalance <= 0 {
		return fmt.Errorf("%w: initial balance must be positive (got %.2f)",
			ErrInvalidParams, p.InitialBalance)
	}
	return nil
}

// Run replays the price series against the SMA-crossover strategy and a
// buy-and-hold baseline. The whole computation is a pure function of its
// inputs: no retained state, safe to call repeatedly with different
// parameters on each UI interaction.
//
// Position handling: a buy converts the entire cash balance into BTC at the
// signal's close; a sell converts the entire holding back to cash and
// realizes a Trade. A position still open at the last timestamp is marked
// to market for reporting but not force-closed, so only sell-triggered
// trades count toward the trade statistics.
func Run(prices []PricePoint, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Params:             p,
		EquityCurve:        []EquityPoint{},
		BuyHoldCurve:       []EquityPoint{},
		ShortSMA:           []EquityPoint{},
		LongSMA:            []EquityPoint{},
		Signals:            []Signal{},
		Trades:             []Trade{},
		FinalStrategyValue: p.InitialBalance,
		FinalBuyHoldValue:  p.InitialBalance,
	}
	if len(prices) == 0 {
		return res, nil
	}

	closes := make([]float64, len(prices))
	for i, pt := range prices {
		closes[i] = pt.Close
	}

	shortSMA := SMA(closes, p.ShortWindow)
	longSMA := SMA(closes, p.LongWindow)
	res.ShortSMA = definedPoints(prices, shortSMA)
	res.LongSMA = definedPoints(prices, longSMA)
	res.Signals = Crossovers(prices, shortSMA, longSMA)

	res.EquityCurve, res.Trades, res.Open = replay(prices, res.Signals, p.InitialBalance)

	buyHoldQty := p.InitialBalance / prices[0].Close
	for _, pt := range prices {
		res.BuyHoldCurve = append(res.BuyHoldCurve, EquityPoint{
			Timestamp: pt.Timestamp,
			Value:     buyHoldQty * pt.Close,
		})
	}

	res.TotalTrades = len(res.Trades)
	wins := 0
	var sumReturns float64
	for _, tr := range res.Trades {
		if tr.ReturnPct > 0 {
			wins++
		}
		sumReturns += tr.ReturnPct
	}
	if res.TotalTrades > 0 {
		res.WinRate = float64(wins) / float64(res.TotalTrades)
		res.AvgTradeReturn = sumReturns / float64(res.TotalTrades)
	}

	res.MaxDrawdown = MaxDrawdown(res.EquityCurve)
	res.FinalStrategyValue = res.EquityCurve[len(res.EquityCurve)-1].Value
	res.FinalBuyHoldValue = res.BuyHoldCurve[len(res.BuyHoldCurve)-1].Value

	return res, nil
}

// replay walks the series day by day applying signals to a single simulated
// position. States are flat (holding cash) and long (holding BTC); buys
// while long and sells while flat are ignored. The equity curve always has
// one point per price point.
func replay(prices []PricePoint, signals []Signal, initialBalance float64) ([]EquityPoint, []Trade, *OpenPosition) {
	equity := make([]EquityPoint, 0, len(prices))
	trades := []Trade{}

	cash := initialBalance
	var qty, entryPrice float64
	var entryTime time.Time
	long := false
	si := 0

	for _, pt := range prices {
		for si < len(signals) && signals[si].Timestamp.Equal(pt.Timestamp) {
			sig := signals[si]
			si++
			switch {
			case sig.Type == SignalBuy && !long:
				qty = cash / pt.Close
				cash = 0
				entryPrice = pt.Close
				entryTime = pt.Timestamp
				long = true
			case sig.Type == SignalSell && long:
				cash = qty * pt.Close
				trades = append(trades, Trade{
					EntryTime:  entryTime,
					ExitTime:   pt.Timestamp,
					EntryPrice: entryPrice,
					ExitPrice:  pt.Close,
					ReturnPct:  pt.Close/entryPrice - 1,
				})
				qty = 0
				long = false
			}
		}

		value := cash
		if long {
			value = qty * pt.Close
		}
		equity = append(equity, EquityPoint{Timestamp: pt.Timestamp, Value: value})
	}

	var open *OpenPosition
	if long {
		last := prices[len(prices)-1]
		open = &OpenPosition{
			EntryTime:     entryTime,
			EntryPrice:    entryPrice,
			Quantity:      qty,
			MarketValue:   qty * last.Close,
			UnrealizedPct: last.Close/entryPrice - 1,
		}
	}

	return equity, trades, open
}

// MaxDrawdown returns the largest peak-to-trough decline over the equity
// curve as a fraction of the peak, computed with a running peak in a single
// forward pass. An empty or monotonically rising curve yields 0.
func MaxDrawdown(curve []EquityPoint) float64 {
	var peak, maxDD float64
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
