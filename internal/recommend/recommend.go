// Package recommend turns free text into a bounded list of catalog songs matching the
// text's mood.
package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/isaac-evs/side-b/internal/metrics"
	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

// DefaultLimit is the number of songs returned when the catalog allows it.
const DefaultLimit = 8

// Classifier labels text with a mood. It never fails.
type Classifier interface {
	Classify(ctx context.Context, text string) string
}

// Recommendation is the result of Recommend. Songs is never nil.
type Recommendation struct {
	Mood  string        `json:"mood"`
	Songs []*model.Song `json:"songs"`
}

type Recommender struct {
	classifier Classifier
	catalog    stores.Songs
	vector     stores.Vector
	active     func() bool
	limit      int
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Recommender)

func WithLimit(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithActive gates vector lookups, typically on the store manager's activation flag.
func WithActive(fn func() bool) Option { return func(r *Recommender) { r.active = fn } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Recommender) { r.metrics = m } }

// New creates a recommender. vector may be nil, in which case every request is served
// from the catalog fallback.
func New(classifier Classifier, catalog stores.Songs, vector stores.Vector, log zerolog.Logger, opts ...Option) *Recommender {
	r := &Recommender{
		classifier: classifier,
		catalog:    catalog,
		vector:     vector,
		active:     func() bool { return true },
		limit:      DefaultLimit,
		log:        log.With().Str("component", "recommend").Logger(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Recommend returns up to the configured limit of distinct songs of the classified mood.
// Vector matches come first in rank order; the rest is filled from the catalog ordered
// by song id. Store failures only shrink the result.
func (r *Recommender) Recommend(ctx context.Context, text string) Recommendation {
	mood := r.classifier.Classify(ctx, text)
	pick := newPicker(mood, r.limit)

	if r.vector != nil && r.active() {
		r.fromVector(ctx, text, pick)
	}
	fromVector := len(pick.songs)
	if !pick.full() {
		r.fromCatalog(ctx, pick)
	}
	r.metrics.RecommendedSongs("vector", fromVector)
	r.metrics.RecommendedSongs("fallback", len(pick.songs)-fromVector)

	if !pick.full() {
		r.metrics.RecommendationShortfall()
		r.log.Debug().Str("mood", mood).Int("songs", len(pick.songs)).Int("limit", r.limit).Msg("recommendation shortfall")
	}
	return Recommendation{Mood: mood, Songs: pick.songs}
}

func (r *Recommender) fromVector(ctx context.Context, text string, pick *picker) {
	hits, err := r.vector.Query(ctx, stores.CollectionSongs, text, map[string]string{"mood": pick.mood}, r.limit)
	if err != nil {
		r.log.Warn().Err(err).Str("mood", pick.mood).Msg("song vector search failed; using catalog fallback")
		return
	}
	if len(hits) == 0 {
		return
	}
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	resolved, err := r.catalog.GetMany(ctx, ids)
	if err != nil {
		r.log.Warn().Err(err).Int("ids", len(ids)).Msg("resolve vector matches failed")
		return
	}
	for _, id := range ids {
		if s, ok := resolved[id]; ok {
			pick.add(s)
		}
	}
}

func (r *Recommender) fromCatalog(ctx context.Context, pick *picker) {
	songs, err := r.catalog.ListByMood(ctx, pick.mood, pick.ids(), r.limit-len(pick.songs))
	if err != nil {
		r.log.Warn().Err(err).Str("mood", pick.mood).Msg("catalog fallback failed")
		return
	}
	for _, s := range songs {
		pick.add(s)
	}
}

// picker accumulates distinct songs of one mood up to a limit.
type picker struct {
	mood  string
	limit int
	seen  map[string]bool
	songs []*model.Song
}

func newPicker(mood string, limit int) *picker {
	return &picker{mood: mood, limit: limit, seen: make(map[string]bool), songs: []*model.Song{}}
}

func (p *picker) full() bool { return len(p.songs) >= p.limit }

func (p *picker) add(s *model.Song) {
	if s == nil || p.full() || p.seen[s.SongID] || s.Mood != p.mood {
		return
	}
	p.seen[s.SongID] = true
	p.songs = append(p.songs, s)
}

func (p *picker) ids() []string {
	out := make([]string, 0, len(p.songs))
	for _, s := range p.songs {
		out = append(out, s.SongID)
	}
	return out
}

// IndexReport summarizes an IndexSongs run.
type IndexReport struct {
	Stored    int `json:"stored"`
	Projected int `json:"projected"`
}

// IndexSongs upserts songs into the catalog and projects them into the songs vector
// collection. Catalog failures are returned joined; projection failures are logged.
func (r *Recommender) IndexSongs(ctx context.Context, songs []*model.Song) (IndexReport, error) {
	var rep IndexReport
	var errs []error
	project := r.vector != nil && r.active()
	for _, s := range songs {
		stored, err := r.catalog.Insert(ctx, s)
		if err != nil {
			errs = append(errs, fmt.Errorf("song %s: %w", s.SongID, err))
			continue
		}
		rep.Stored++
		if !project {
			continue
		}
		doc := stores.Document{
			ID:   stored.SongID,
			Text: stored.EmbeddingText(),
			Metadata: map[string]string{
				"mood":   stored.Mood,
				"title":  stored.Title,
				"artist": stored.Artist,
			},
		}
		if err := r.vector.Add(ctx, stores.CollectionSongs, doc); err != nil {
			r.log.Warn().Err(err).Str("songId", stored.SongID).Msg("song projection failed")
			continue
		}
		rep.Projected++
	}
	return rep, errors.Join(errs...)
}
