package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status      string         `json:"status"`
	Timestamp   string         `json:"timestamp"`
	LastRefresh *string        `json:"lastRefresh,omitempty"`
	Services    healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if s.pool == nil {
		dbStatus = "not configured"
	} else if err := s.pool.Ping(r.Context()); err != nil {
		dbStatus = "disconnected"
	}

	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus},
	}
	if s.prices != nil {
		if lr := s.prices.LastRefresh(); !lr.IsZero() {
			ts := lr.UTC().Format(time.RFC3339)
			resp.LastRefresh = &ts
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
