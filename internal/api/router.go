package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/isaac-evs/side-b/internal/api/recovery"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	if d.Location == nil {
		d.Location = time.UTC
	}
	router := mux.NewRouter()

	// Global middlewares; recovery sits inside instrument so panics are counted as 500s.
	router.Use(instrument(d.Metrics))
	router.Use(recovery.Middleware(d.Log))

	healthHandler := NewHealthHandler(d.ServiceHealthy, d.Stores, d.Metrics)
	journalHandler := NewJournalHandler(d)
	musicHandler := NewMusicHandler(d)
	statsHandler := NewStatsHandler(d.Stats)

	// Health & metrics
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods(http.MethodGet)
	router.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)

	// Users
	router.HandleFunc("/api/users", journalHandler.CreateUser).Methods(http.MethodPost)
	router.HandleFunc("/api/users/{userId}", journalHandler.GetUser).Methods(http.MethodGet)

	// Entries
	router.HandleFunc("/api/users/{userId}/entries", journalHandler.CreateEntry).Methods(http.MethodPost)
	router.HandleFunc("/api/users/{userId}/entries", journalHandler.ListEntries).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userId}/entries/{entryId}", journalHandler.GetEntry).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userId}/entries/{entryId}/media", journalHandler.AttachMedia).Methods(http.MethodPost)

	// Dashboard
	router.HandleFunc("/api/users/{userId}/stats", statsHandler.GetStats).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userId}/insights", statsHandler.GetInsights).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userId}/songs/{songId}/history", statsHandler.GetSongHistory).Methods(http.MethodGet)

	// Moods & songs; /top is registered before the id route
	router.HandleFunc("/api/moods/classify", musicHandler.Classify).Methods(http.MethodPost)
	router.HandleFunc("/api/recommendations", musicHandler.Recommend).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/top", musicHandler.TopSongs).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{songId}", musicHandler.GetSong).Methods(http.MethodGet)

	return router
}
