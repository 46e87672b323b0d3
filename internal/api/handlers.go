// Package api is the HTTP surface of the journal backend.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	respond "github.com/isaac-evs/side-b/internal/api/respond"
	"github.com/isaac-evs/side-b/internal/journal"
	"github.com/isaac-evs/side-b/internal/metrics"
	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/recommend"
)

// Journal is the write path and primary reads.
type Journal interface {
	CreateUser(ctx context.Context, u *model.User) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	CreateEntry(ctx context.Context, req journal.CreateEntryRequest) (*model.Entry, error)
	GetEntry(ctx context.Context, userID, entryID string) (*model.Entry, error)
	ListEntries(ctx context.Context, userID string, limit int) ([]*model.Entry, error)
	AttachMedia(ctx context.Context, userID, entryID string, m model.MediaAttachment) (*model.Entry, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) string
}

type Recommender interface {
	Recommend(ctx context.Context, text string) recommend.Recommendation
}

// Stats serves the dashboard reads. Failures surface as zero values, never errors.
type Stats interface {
	GetUserStats(ctx context.Context, userID string) model.Stats
	GetUserInsights(ctx context.Context, userID string) model.Insights
	GetSongHistory(ctx context.Context, userID, songID string) model.SongHistory
}

// Catalog reads songs and selection charts from the primary store.
type Catalog interface {
	Get(ctx context.Context, songID string) (*model.Song, error)
}

type Charts interface {
	TopSongsByMood(ctx context.Context, perMood int) ([]model.MoodTopSongs, error)
}

// StoreHealth probes the registered stores.
type StoreHealth interface {
	HealthCheckAll(ctx context.Context) map[string]bool
}

// Deps wires the router. Metrics may be nil.
type Deps struct {
	Journal        Journal
	Classifier     Classifier
	Recommender    Recommender
	Stats          Stats
	Catalog        Catalog
	Charts         Charts
	Stores         StoreHealth
	ServiceHealthy func() bool
	Metrics        *metrics.Metrics
	Location       *time.Location
	Log            zerolog.Logger
}

const (
	maxBodyBytes     = 1 << 20
	defaultListLimit = 30
	maxListLimit     = 365
	defaultTopSongs  = 5
)

// decode reads a JSON body into v, rejecting unknown fields and oversized bodies.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return false
	}
	return true
}

// intParam reads a positive integer query parameter, falling back to def and capping at ceiling.
func intParam(r *http.Request, name string, def, ceiling int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > ceiling {
		n = ceiling
	}
	return n, true
}
