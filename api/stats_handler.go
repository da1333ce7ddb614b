package api

import (
	"encoding/json"
	"net/http"

	"github.com/ratefence/ratefence/stats"
)

// StatsProvider defines the interface for getting a stats snapshot.
type StatsProvider interface {
	Snapshot() *stats.Snapshot
}

// StatsHandler handles GET /stats requests.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// ServeHTTP serves the current stats snapshot as JSON.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.provider.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}
