package api

import (
	"fmt"
	"net/http"
)

type closeJSON struct {
	T     int64   `json:"t"`
	Close float64 `json:"close"`
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query(), "days", s.defaults.HistoryDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if days <= 0 || days > maxHistoryDays {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("days must be between 1 and %d", maxHistoryDays))
		return
	}

	series, err := s.prices.Series(r.Context(), days)
	if err != nil {
		fmt.Printf("Error fetching price history: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch price history")
		return
	}

	out := make([]closeJSON, len(series))
	for i, p := range series {
		out[i] = closeJSON{T: p.Timestamp.UnixMilli(), Close: p.Close}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLatestPrice(w http.ResponseWriter, r *http.Request) {
	latest, err := s.closeRepo.GetLatest(r.Context())
	if err != nil {
		fmt.Printf("Error fetching latest close: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch latest close")
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, "no price data available")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}
