package models

import "time"

// DailyClose is one cached day of BTC closing-price data. The day string is
// a UTC calendar date (YYYY-MM-DD); closes come from the CoinGecko daily
// market chart and are re-upserted on every refresh.
type DailyClose struct {
	ID        int64     `json:"id"`
	Day       string    `json:"day"`
	Close     float64   `json:"close"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}
