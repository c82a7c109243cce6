package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kjannette/btc-backtest-backend/internal/httputil"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// HistoryPoint is one daily close from the CoinGecko market chart,
// normalized to 00:00 UTC of its calendar day.
type HistoryPoint struct {
	Timestamp time.Time `json:"t"`
	Close     float64   `json:"close"`
}

type CoinGeckoOptions struct {
	CoinID     string        // e.g. "bitcoin"
	VsCurrency string        // e.g. "usd"
	CacheTTL   time.Duration // how long a fetched history stays fresh
}

type CoinGeckoClient struct {
	coinID     string
	vsCurrency string
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig

	mu            sync.Mutex
	cachedHistory []HistoryPoint
	cachedDays    int
	lastFetch     time.Time
	cacheTTL      time.Duration
}

func NewCoinGeckoClient(opts CoinGeckoOptions) *CoinGeckoClient {
	coinID := opts.CoinID
	if coinID == "" {
		coinID = "bitcoin"
	}
	vsCurrency := opts.VsCurrency
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &CoinGeckoClient{
		coinID:     coinID,
		vsCurrency: vsCurrency,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cacheTTL:   ttl,
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

// GetPrice returns the current spot price.
func (c *CoinGeckoClient) GetPrice(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", c.baseURL, c.coinID, c.vsCurrency)

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return 0, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var data map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	price := data[c.coinID][c.vsCurrency]
	if price <= 0 {
		return 0, fmt.Errorf("invalid price: %f", price)
	}
	return price, nil
}

// GetDailyHistory returns the last `days` of daily closes. Results are cached
// in memory within the TTL so repeated UI interactions do not hammer the API;
// forceRefresh bypasses the cache.
func (c *CoinGeckoClient) GetDailyHistory(ctx context.Context, days int, forceRefresh bool) ([]HistoryPoint, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive (got %d)", days)
	}

	c.mu.Lock()
	if !forceRefresh && c.cachedDays == days && len(c.cachedHistory) > 0 && time.Since(c.lastFetch) < c.cacheTTL {
		cached := make([]HistoryPoint, len(c.cachedHistory))
		copy(cached, c.cachedHistory)
		age := time.Since(c.lastFetch)
		c.mu.Unlock()
		fmt.Printf("[COINGECKO] Using cached history (age: %.1f min)\n", age.Minutes())
		return cached, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=%s&days=%d&interval=daily",
		c.baseURL, c.coinID, c.vsCurrency, days)

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("coingecko market chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var data struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	points, err := normalizeDaily(data.Prices)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cachedHistory = points
	c.cachedDays = days
	c.lastFetch = time.Now()
	c.mu.Unlock()

	fmt.Printf("[COINGECKO] Fetched %d daily closes (%s/%s, %d days)\n",
		len(points), c.coinID, c.vsCurrency, days)

	return points, nil
}

// SeedCache pre-populates the cache from closes previously persisted in the
// database, so a restart does not immediately refetch. Ignored when the data
// is older than the TTL.
func (c *CoinGeckoClient) SeedCache(points []HistoryPoint, days int, fetchedAt time.Time) {
	if len(points) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	age := time.Since(fetchedAt)
	if age >= c.cacheTTL {
		fmt.Printf("[COINGECKO] DB history too old (%.1f min), not seeding cache\n", age.Minutes())
		return
	}

	c.cachedHistory = points
	c.cachedDays = days
	c.lastFetch = fetchedAt
	fmt.Printf("[COINGECKO] Cache seeded from DB: %d closes (age: %.1f min)\n", len(points), age.Minutes())
}

func (c *CoinGeckoClient) NeedsRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cachedHistory) == 0 {
		return true
	}
	return time.Since(c.lastFetch) >= c.cacheTTL
}

// normalizeDaily converts CoinGecko [timestampMillis, price] pairs into one
// point per UTC calendar day. The API appends the current partial day as a
// final point, which can share a day with the previous one; the later value
// wins. Input pairs arrive in ascending time order.
func normalizeDaily(pairs [][]float64) ([]HistoryPoint, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("coingecko returned no price data")
	}

	var points []HistoryPoint
	for _, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed price pair: %v", pair)
		}
		ts := time.UnixMilli(int64(pair[0])).UTC()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		close := pair[1]
		if close <= 0 {
			return nil, fmt.Errorf("invalid close %f at %s", close, day.Format("2006-01-02"))
		}

		if n := len(points); n > 0 && points[n-1].Timestamp.Equal(day) {
			points[n-1].Close = close
			continue
		}
		if n := len(points); n > 0 && day.Before(points[n-1].Timestamp) {
			return nil, fmt.Errorf("price data out of order at %s", day.Format("2006-01-02"))
		}
		points = append(points, HistoryPoint{Timestamp: day, Close: close})
	}
	return points, nil
}
