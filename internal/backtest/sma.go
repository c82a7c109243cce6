package backtest

import "math"

// SMA computes a simple moving average over closes with the given window.
// The result is aligned to the input: the first window-1 entries are NaN
// because the window is not yet full. A non-positive window, or a window
// larger than the series, yields an all-NaN series rather than an error;
// downstream code treats that as "no signals possible".
func SMA(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || window > len(closes) {
		return out
	}

	// Moving sum: add the newest close, drop the one leaving the window.
	var sum float64
	for i, c := range closes {
		sum += c
		if i >= window {
			sum -= closes[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// definedPoints pairs the defined (non-NaN) entries of an SMA series with
// their timestamps for charting.
func definedPoints(prices []PricePoint, sma []float64) []EquityPoint {
	out := []EquityPoint{}
	for i, v := range sma {
		if math.IsNaN(v) {
			continue
		}
		out = append(out, EquityPoint{Timestamp: prices[i].Timestamp, Value: v})
	}
	return out
}
