package api

import (
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/isaac-evs/side-b/internal/api/respond"
)

// StatsHandler always answers 200; degraded stores show up as zero values.
type StatsHandler struct {
	stats Stats
}

func NewStatsHandler(s Stats) *StatsHandler { return &StatsHandler{stats: s} }

// GetStats GET /api/users/{userId}/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, h.stats.GetUserStats(r.Context(), mux.Vars(r)["userId"]))
}

// GetInsights GET /api/users/{userId}/insights
func (h *StatsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, h.stats.GetUserInsights(r.Context(), mux.Vars(r)["userId"]))
}

// GetSongHistory GET /api/users/{userId}/songs/{songId}/history
func (h *StatsHandler) GetSongHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	respond.WriteJSON(w, http.StatusOK, h.stats.GetSongHistory(r.Context(), vars["userId"], vars["songId"]))
}
