package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func TestNormalizeDaily(t *testing.T) {
	day := func(y int, m time.Month, d int) float64 {
		return float64(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli())
	}

	pairs := [][]float64{
		{day(2025, 6, 1), 68000},
		{day(2025, 6, 2), 69500},
		{day(2025, 6, 3), 67200},
		// Partial current day: same calendar day as the previous point
		// but a later intraday timestamp. The later value wins.
		{day(2025, 6, 3) + 9*3600*1000, 67900},
	}

	points, err := normalizeDaily(pairs)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points after dedup, got %d", len(points))
	}
	if points[2].Close != 67900 {
		t.Fatalf("later intraday value should win: got %f", points[2].Close)
	}
	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			t.Fatalf("timestamps not strictly increasing at %d", i)
		}
	}
	for _, p := range points {
		if p.Timestamp.Hour() != 0 || p.Timestamp.Minute() != 0 {
			t.Fatalf("expected UTC midnight, got %s", p.Timestamp)
		}
	}
}

func TestNormalizeDaily_Invalid(t *testing.T) {
	if _, err := normalizeDaily(nil); err == nil {
		t.Fatal("expected error for empty data")
	}
	if _, err := normalizeDaily([][]float64{{1e12}}); err == nil {
		t.Fatal("expected error for malformed pair")
	}
	if _, err := normalizeDaily([][]float64{{1e12, -5}}); err == nil {
		t.Fatal("expected error for non-positive close")
	}
}

func TestGetDailyHistory_CachesWithinTTL(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prices":[[1748736000000,104000],[1748822400000,105500],[1748908800000,104800]]}`))
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(CoinGeckoOptions{CacheTTL: time.Hour})
	client.baseURL = srv.URL

	ctx := context.Background()
	points, err := client.GetDailyHistory(ctx, 3, false)
	if err != nil {
		t.Fatalf("GetDailyHistory: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if client.NeedsRefresh() {
		t.Fatal("should not need refresh right after fetch")
	}

	// Second call within the TTL must come from the cache.
	again, err := client.GetDailyHistory(ctx, 3, false)
	if err != nil {
		t.Fatalf("cached GetDailyHistory: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
	if again[1].Close != points[1].Close {
		t.Fatal("cache returned different data")
	}

	// forceRefresh bypasses the cache.
	if _, err := client.GetDailyHistory(ctx, 3, true); err != nil {
		t.Fatalf("forced GetDailyHistory: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected forced refresh to hit upstream, got %d calls", calls)
	}
}

func TestGetDailyHistory_DifferentRangeMissesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"prices":[[1748736000000,104000]]}`))
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(CoinGeckoOptions{CacheTTL: time.Hour})
	client.baseURL = srv.URL

	ctx := context.Background()
	if _, err := client.GetDailyHistory(ctx, 30, false); err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetDailyHistory(ctx, 90, false); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("a different range must refetch, got %d calls", calls)
	}
}

func TestGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{"usd":104250.12}}`))
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(CoinGeckoOptions{})
	client.baseURL = srv.URL

	price, err := client.GetPrice(context.Background())
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price != 104250.12 {
		t.Fatalf("expected 104250.12, got %f", price)
	}
}

func TestSeedCache_RespectsTTL(t *testing.T) {
	client := NewCoinGeckoClient(CoinGeckoOptions{CacheTTL: 5 * time.Minute})

	stale := []HistoryPoint{{Timestamp: time.Now().UTC(), Close: 100000}}
	client.SeedCache(stale, 365, time.Now().Add(-time.Hour))
	if !client.NeedsRefresh() {
		t.Fatal("stale seed should not satisfy the cache")
	}

	client.SeedCache(stale, 365, time.Now().Add(-time.Minute))
	if client.NeedsRefresh() {
		t.Fatal("fresh seed should satisfy the cache")
	}
}

// Live API test, opt-in so the suite stays runnable offline.
func TestCoinGeckoLive(t *testing.T) {
	if os.Getenv("COINGECKO_LIVE_TESTS") == "" {
		t.Skip("COINGECKO_LIVE_TESTS not set, skipping")
	}

	client := NewCoinGeckoClient(CoinGeckoOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	price, err := client.GetPrice(ctx)
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if price <= 0 {
		t.Fatalf("expected positive price, got %f", price)
	}
	t.Logf("BTC price: $%.2f", price)

	points, err := client.GetDailyHistory(ctx, 7, false)
	if err != nil {
		t.Fatalf("GetDailyHistory: %v", err)
	}
	if len(points) < 7 {
		t.Fatalf("expected at least 7 daily closes, got %d", len(points))
	}
	t.Logf("History: %d closes, latest %s $%.2f",
		len(points), points[len(points)-1].Timestamp.Format("2006-01-02"), points[len(points)-1].Close)
}
