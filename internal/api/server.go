package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/btc-backtest-backend/internal/backtest"
	"github.com/kjannette/btc-backtest-backend/internal/repository"
	"github.com/kjannette/btc-backtest-backend/internal/stream"
)

const maxQueryLimit = 1000

// PriceSource supplies ordered daily price series for backtests. Satisfied
// by prices.Service.
type PriceSource interface {
	Series(ctx context.Context, days int) ([]backtest.PricePoint, error)
	LastRefresh() time.Time
}

// BacktestDefaults are applied when a request omits a parameter; they come
// from config and mirror the UI's initial widget values.
type BacktestDefaults struct {
	ShortWindow    int
	LongWindow     int
	InitialBalance float64
	HistoryDays    int
}

type Server struct {
	pool       *pgxpool.Pool
	closeRepo  *repository.CloseRepo
	runRepo    *repository.RunLogRepo
	prices     PriceSource
	hub        *stream.Hub
	defaults   BacktestDefaults
	httpServer *http.Server
	apiKey     string
}

func NewServer(pool *pgxpool.Pool, port int, apiKey, corsOrigin string,
	prices PriceSource, hub *stream.Hub, defaults BacktestDefaults) *Server {

	s := &Server{
		pool:      pool,
		closeRepo: repository.NewCloseRepo(pool),
		runRepo:   repository.NewRunLogRepo(pool),
		prices:    prices,
		hub:       hub,
		defaults:  defaults,
		apiKey:    apiKey,
	}

	mux := http.NewServeMux()

	// Backtest
	mux.HandleFunc("GET /v1/backtest", s.handleBacktest)
	mux.HandleFunc("GET /v1/runs/recent", s.handleRecentRuns)

	// Price routes
	mux.HandleFunc("GET /v1/prices/history", s.handlePriceHistory)
	mux.HandleFunc("GET /v1/prices/latest", s.handleLatestPrice)

	// UI push channel (no auth: browsers cannot set headers on websocket opens)
	mux.HandleFunc("GET /v1/ws", s.handleWS)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.authMiddleware(corsMiddleware(mux, corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotFound, "streaming not enabled")
		return
	}
	s.hub.HandleWS(w, r)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" || r.URL.Path == "/v1/ws" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
