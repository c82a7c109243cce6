package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kjannette/btc-backtest-backend/internal/backtest"
	"github.com/kjannette/btc-backtest-backend/internal/models"
)

const (
	maxWindow      = 400
	maxHistoryDays = 2000
)

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := backtest.Params{
		ShortWindow:    s.defaults.ShortWindow,
		LongWindow:     s.defaults.LongWindow,
		InitialBalance: s.defaults.InitialBalance,
	}
	days := s.defaults.HistoryDays

	var err error
	if params.ShortWindow, err = intParam(q, "short", params.ShortWindow); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if params.LongWindow, err = intParam(q, "long", params.LongWindow); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if params.InitialBalance, err = floatParam(q, "balance", params.InitialBalance); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if days, err = intParam(q, "days", days); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if params.ShortWindow > maxWindow || params.LongWindow > maxWindow {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("windows must not exceed %d days", maxWindow))
		return
	}
	if days <= 0 || days > maxHistoryDays {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("days must be between 1 and %d", maxHistoryDays))
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	series, err := s.prices.Series(ctx, days)
	if err != nil {
		fmt.Printf("Error loading price series: %v\n", err)
		writeError(w, http.StatusBadGateway, "failed to load price data")
		return
	}
	if len(series) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no price data available yet")
		return
	}

	result, err := backtest.Run(series, params)
	if err != nil {
		if errors.Is(err, backtest.ErrInvalidParams) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		fmt.Printf("Error running backtest: %v\n", err)
		writeError(w, http.StatusInternalServerError, "backtest failed")
		return
	}

	s.logRun(ctx, result, days)
	writeJSON(w, http.StatusOK, result)
}

// logRun records the invocation for the UI's recent-runs list. Best effort:
// a logging failure never fails the request.
func (s *Server) logRun(ctx context.Context, res *backtest.Result, days int) {
	if s.runRepo == nil {
		return
	}
	_, err := s.runRepo.Record(ctx, &models.BacktestRun{
		ShortWindow:        res.Params.ShortWindow,
		LongWindow:         res.Params.LongWindow,
		InitialBalance:     res.Params.InitialBalance,
		HistoryDays:        days,
		TotalTrades:        res.TotalTrades,
		WinRate:            res.WinRate,
		MaxDrawdown:        res.MaxDrawdown,
		FinalStrategyValue: res.FinalStrategyValue,
		FinalBuyHoldValue:  res.FinalBuyHoldValue,
	})
	if err != nil {
		fmt.Printf("Error logging backtest run: %v\n", err)
	}
}

func (s *Server) handleRecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	runs, err := s.runRepo.GetRecent(r.Context(), limit)
	if err != nil {
		fmt.Printf("Error fetching recent runs: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch recent runs")
		return
	}
	if runs == nil {
		runs = []models.BacktestRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// --- query parsing ---

func intParam(q url.Values, key string, fallback int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q, expected an integer", key, v)
	}
	return n, nil
}

func floatParam(q url.Values, key string, fallback float64) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q, expected a number", key, v)
	}
	return f, nil
}
