package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/btc-backtest-backend/internal/api"
	"github.com/kjannette/btc-backtest-backend/internal/config"
	"github.com/kjannette/btc-backtest-backend/internal/db"
	"github.com/kjannette/btc-backtest-backend/internal/external"
	"github.com/kjannette/btc-backtest-backend/internal/notifications"
	"github.com/kjannette/btc-backtest-backend/internal/prices"
	"github.com/kjannette/btc-backtest-backend/internal/repository"
	"github.com/kjannette/btc-backtest-backend/internal/scheduler"
	"github.com/kjannette/btc-backtest-backend/internal/stream"
)

const banner = `
╔══════════════════════════════════════╗
║      BTC SMA Backtester v0.1         ║
║                                      ║
╚══════════════════════════════════════╝
`

const apiPort = 3001

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Database
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Schema setup failed: %v\n", err)
		os.Exit(1)
	}

	// Repos
	closeRepo := repository.NewCloseRepo(pool)

	// CoinGecko client
	gecko := external.NewCoinGeckoClient(external.CoinGeckoOptions{
		CoinID:     cfg.CoinID,
		VsCurrency: cfg.VsCurrency,
		CacheTTL:   cfg.FetchCacheTTL(),
	})

	// Warm the fetch cache from DB so a restart does not hammer the API.
	if stored, err := closeRepo.GetLastN(context.Background(), cfg.HistoryDays); err == nil && len(stored) > 0 {
		points := make([]external.HistoryPoint, 0, len(stored))
		for _, c := range stored {
			day, err := time.ParseInLocation("2006-01-02", c.Day, time.UTC)
			if err != nil {
				continue
			}
			points = append(points, external.HistoryPoint{Timestamp: day, Close: c.Close})
		}
		gecko.SeedCache(points, cfg.HistoryDays, stored[len(stored)-1].CreatedAt)
		fmt.Printf("[CACHE] Seeded %d closes from database\n", len(points))
	}

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName)

	// Websocket hub for UI refresh events
	hub := stream.NewHub()

	// Price service
	priceSvc := prices.NewService(gecko, closeRepo, cfg.HistoryDays, cfg.RefreshInterval())

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	defaults := api.BacktestDefaults{
		ShortWindow:    cfg.DefaultShortWindow,
		LongWindow:     cfg.DefaultLongWindow,
		InitialBalance: cfg.DefaultInitialBalance,
		HistoryDays:    cfg.HistoryDays,
	}
	srv := api.NewServer(pool, apiPort, cfg.APIKey, cfg.CORSAllowOrigin, priceSvc, hub, defaults)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Refresh scheduler
	sched := scheduler.NewRefreshScheduler(priceSvc, notify, scheduler.RefreshSchedulerConfig{
		Interval: cfg.RefreshInterval(),
		OnRefresh: func(closesWritten int) {
			hub.Broadcast("prices_updated", map[string]any{
				"closes_written": closesWritten,
			})
		},
	})
	sched.Start()

	notify.Send("BTC backtester started")
	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	sched.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
