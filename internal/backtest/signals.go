package backtest

import "math"

// Crossovers derives buy and sell signals from short and long SMA series
// aligned to the price series. A buy fires when the short average moves from
// at-or-below the long average to strictly above it between consecutive
// points; a sell fires on the opposite transition. Equal values count as
// "not crossed", so touching without crossing never signals. The first point
// where both averages are defined never fires, since there is no prior point
// to compare against. At most one signal can fire per timestamp.
func Crossovers(prices []PricePoint, short, long []float64) []Signal {
	signals := []Signal{}

	prevDefined := false
	var prevShort, prevLong float64

	for i := range prices {
		s, l := short[i], long[i]
		if math.IsNaN(s) || math.IsNaN(l) {
			prevDefined = false
			continue
		}

		if prevDefined {
			switch {
			case prevShort <= prevLong && s > l:
				signals = append(signals, Signal{
					Timestamp: prices[i].Timestamp,
					Type:      SignalBuy,
					Price:     prices[i].Close,
				})
			case prevShort >= prevLong && s < l:
				signals = append(signals, Signal{
					Timestamp: prices[i].Timestamp,
					Type:      SignalSell,
					Price:     prices[i].Close,
				})
			}
		}

		prevShort, prevLong = s, l
		prevDefined = true
	}

	return signals
}
