package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/kjannette/btc-backtest-backend/internal/models"
	"github.com/kjannette/btc-backtest-backend/internal/repository"
	"github.com/kjannette/btc-backtest-backend/internal/testutil"
)

// ---------- CloseRepo ----------

func TestCloseRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewCloseRepo(pool)
	ctx := context.Background()

	// Upsert
	ts := time.Date(2019, 6, 1, 14, 30, 0, 0, time.UTC)
	c, err := repo.Upsert(ctx, ts, 8545.12, "coingecko")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if c.Day != "2019-06-01" {
		t.Fatalf("day mismatch: got %s", c.Day)
	}
	if c.Close != 8545.12 {
		t.Fatalf("close mismatch: got %f", c.Close)
	}
	t.Logf("Upserted close: id=%d day=%s close=%.2f", c.ID, c.Day, c.Close)

	// Upsert same day replaces the close, keeps one row
	c2, err := repo.Upsert(ctx, ts.Add(6*time.Hour), 8600.00, "coingecko")
	if err != nil {
		t.Fatalf("Upsert (conflict): %v", err)
	}
	if c2.ID != c.ID {
		t.Fatalf("expected same row on conflict: got id=%d want id=%d", c2.ID, c.ID)
	}
	if c2.Close != 8600.00 {
		t.Fatalf("expected updated close 8600.00, got %f", c2.Close)
	}

	// UpsertBatch
	batch := []models.DailyClose{
		{Day: "2019-06-02", Close: 8700, Source: "coingecko"},
		{Day: "2019-06-03", Close: 8650, Source: "coingecko"},
		{Day: "2019-06-04", Close: 8800, Source: "coingecko"},
	}
	n, err := repo.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 writes, got %d", n)
	}

	// GetLastN returns ascending day order
	closes, err := repo.GetLastN(ctx, 3)
	if err != nil {
		t.Fatalf("GetLastN: %v", err)
	}
	if len(closes) != 3 {
		t.Fatalf("expected 3 closes, got %d", len(closes))
	}
	for i := 1; i < len(closes); i++ {
		if closes[i].Day <= closes[i-1].Day {
			t.Fatalf("closes not ascending: %s then %s", closes[i-1].Day, closes[i].Day)
		}
	}
	t.Logf("GetLastN(3): %s .. %s", closes[0].Day, closes[len(closes)-1].Day)

	// GetLatest
	latest, err := repo.GetLatest(ctx)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a latest close")
	}
	t.Logf("Latest: day=%s close=%.2f", latest.Day, latest.Close)

	// Count
	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count < 4 {
		t.Fatalf("expected at least 4 rows, got %d", count)
	}
}

// ---------- RunLogRepo ----------

func TestRunLogRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewRunLogRepo(pool)
	ctx := context.Background()

	run := &models.BacktestRun{
		ShortWindow:        10,
		LongWindow:         40,
		InitialBalance:     10000,
		HistoryDays:        365,
		TotalTrades:        7,
		WinRate:            0.571,
		MaxDrawdown:        0.18,
		FinalStrategyValue: 13250.50,
		FinalBuyHoldValue:  12100.25,
	}

	// Record
	saved, err := repo.Record(ctx, run)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if saved.ShortWindow != 10 || saved.LongWindow != 40 {
		t.Fatalf("window mismatch: %+v", saved)
	}
	if saved.FinalStrategyValue != 13250.50 {
		t.Fatalf("final value mismatch: got %f", saved.FinalStrategyValue)
	}
	t.Logf("Recorded run: id=%d short=%d long=%d final=%.2f",
		saved.ID, saved.ShortWindow, saved.LongWindow, saved.FinalStrategyValue)

	// GetRecent
	runs, err := repo.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("expected at least one run")
	}
	if runs[0].ID != saved.ID {
		t.Fatalf("expected most recent run first: got id=%d want id=%d", runs[0].ID, saved.ID)
	}
	t.Logf("GetRecent: %d runs, newest id=%d", len(runs), runs[0].ID)
}

// ---------- UTCDay ----------

func TestUTCDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 11 PM EST is already the next day in UTC.
	ts := time.Date(2025, 3, 10, 23, 0, 0, 0, est)
	if got := repository.UTCDay(ts); got != "2025-03-11" {
		t.Fatalf("expected 2025-03-11, got %s", got)
	}

	utc := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := repository.UTCDay(utc); got != "2025-03-10" {
		t.Fatalf("expected 2025-03-10, got %s", got)
	}
}
