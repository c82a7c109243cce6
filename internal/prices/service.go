package prices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjannette/btc-backtest-backend/internal/backtest"
	"github.com/kjannette/btc-backtest-backend/internal/external"
	"github.com/kjannette/btc-backtest-backend/internal/models"
	"github.com/kjannette/btc-backtest-backend/internal/repository"
)

// HistorySource fetches daily closes from the upstream market-data API.
type HistorySource interface {
	GetDailyHistory(ctx context.Context, days int, forceRefresh bool) ([]external.HistoryPoint, error)
}

// CloseStore is the persistence side of the price cache.
type CloseStore interface {
	UpsertBatch(ctx context.Context, points []models.DailyClose) (int, error)
	GetLastN(ctx context.Context, n int) ([]models.DailyClose, error)
}

// Service keeps the local daily-close cache in sync with the upstream API
// and hands ordered price series to the backtest endpoint. The core never
// sees the fetch/cache machinery; it just receives a series.
type Service struct {
	source      HistorySource
	store       CloseStore
	historyDays int
	staleAfter  time.Duration

	mu          sync.Mutex
	lastRefresh time.Time
}

func NewService(source HistorySource, store CloseStore, historyDays int, staleAfter time.Duration) *Service {
	if historyDays <= 0 {
		historyDays = 365
	}
	if staleAfter <= 0 {
		staleAfter = 12 * time.Hour
	}
	return &Service{
		source:      source,
		store:       store,
		historyDays: historyDays,
		staleAfter:  staleAfter,
	}
}

// Refresh fetches the full history window from upstream and upserts it into
// the database. Returns the number of closes written.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	// The client's own TTL cache absorbs rapid repeat refreshes, e.g. the
	// startup fetch racing the scheduler's initial tick.
	points, err := s.source.GetDailyHistory(ctx, s.historyDays, false)
	if err != nil {
		return 0, fmt.Errorf("fetch history: %w", err)
	}

	closes := make([]models.DailyClose, len(points))
	for i, p := range points {
		closes[i] = models.DailyClose{
			Day:    repository.UTCDay(p.Timestamp),
			Close:  p.Close,
			Source: "coingecko",
		}
	}

	n, err := s.store.UpsertBatch(ctx, closes)
	if err != nil {
		return n, fmt.Errorf("store closes: %w", err)
	}

	s.mu.Lock()
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	fmt.Printf("[PRICES] Refreshed %d daily closes\n", n)
	return n, nil
}

// Series returns up to `days` most recent daily closes as a backtest price
// series, refreshing from upstream first when the local cache is empty or
// stale. A failed refresh degrades to whatever the database already has;
// the caller decides what an empty series means.
func (s *Service) Series(ctx context.Context, days int) ([]backtest.PricePoint, error) {
	if days <= 0 || days > s.historyDays {
		days = s.historyDays
	}

	if s.needsRefresh() {
		if _, err := s.Refresh(ctx); err != nil {
			fmt.Printf("[PRICES] Refresh failed, serving stored data: %v\n", err)
		}
	}

	closes, err := s.store.GetLastN(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("load closes: %w", err)
	}

	series := make([]backtest.PricePoint, 0, len(closes))
	for _, c := range closes {
		day, err := time.ParseInLocation("2006-01-02", c.Day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("malformed day %q in store: %w", c.Day, err)
		}
		series = append(series, backtest.PricePoint{Timestamp: day, Close: c.Close})
	}
	return series, nil
}

func (s *Service) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

func (s *Service) needsRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh.IsZero() || time.Since(s.lastRefresh) >= s.staleAfter
}
