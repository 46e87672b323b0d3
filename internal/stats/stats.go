// Package stats serves the per-user dashboard numbers and graph insights. Reads are
// best effort: any store failure yields zero values.
package stats

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/isaac-evs/side-b/internal/graph"
	"github.com/isaac-evs/side-b/internal/metrics"
	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

const (
	timelineWindow    = 365
	defaultTopArtists = 5
)

type Aggregator struct {
	timeline   stores.Timeline
	graph      stores.Graph
	active     func(name string) bool
	loc        *time.Location
	now        func() time.Time
	topArtists int
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Aggregator)

// WithLocation sets the zone calendar days are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option { return func(a *Aggregator) { a.now = now } }

// WithActive consults the store manager before reading a store.
func WithActive(fn func(name string) bool) Option { return func(a *Aggregator) { a.active = fn } }

func WithTopArtists(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.topArtists = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option { return func(a *Aggregator) { a.metrics = m } }

// New creates an aggregator. Either store may be nil.
func New(timeline stores.Timeline, g stores.Graph, log zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		timeline:   timeline,
		graph:      g,
		active:     func(string) bool { return true },
		loc:        time.UTC,
		now:        time.Now,
		topArtists: defaultTopArtists,
		log:        log.With().Str("component", "stats").Logger(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// GetUserStats computes streak and weekly counts from the entry timeline, the monthly
// entry counter and the lifetime song selection total.
func (a *Aggregator) GetUserStats(ctx context.Context, userID string) model.Stats {
	if a.timeline == nil || !a.active(stores.NameTimeline) {
		a.degraded("stats", nil, userID)
		return model.Stats{}
	}
	now := a.now()

	times, err := a.timeline.EntryTimes(ctx, userID, timelineWindow)
	if err != nil {
		a.degraded("stats", err, userID)
		return model.Stats{}
	}
	monthly, err := a.timeline.Monthly(ctx, userID, model.YearMonth(now))
	if err != nil {
		a.degraded("stats", err, userID)
		return model.Stats{}
	}
	freq, err := a.timeline.SelectionFrequency(ctx, userID)
	if err != nil {
		a.degraded("stats", err, userID)
		return model.Stats{}
	}
	var songs int64
	for _, n := range freq {
		songs += n
	}

	return model.Stats{
		Streak:      ComputeStreak(times, now, a.loc),
		SongsLogged: songs,
		ThisMonth:   monthly.EntriesCount,
		ThisWeek:    ThisWeek(times, now, a.loc),
	}
}

// GetUserInsights folds the user's graph neighbourhood into mood and artist counts.
func (a *Aggregator) GetUserInsights(ctx context.Context, userID string) model.Insights {
	empty := graph.InsightsResult{}.Insights(a.topArtists)
	if a.graph == nil || !a.active(stores.NameGraph) {
		a.degraded("insights", nil, userID)
		return empty
	}
	var res graph.InsightsResult
	if err := a.graph.Query(ctx, graph.InsightsQuery, map[string]string{"userId": userID}, &res); err != nil {
		a.degraded("insights", err, userID)
		return empty
	}
	return res.Insights(a.topArtists)
}

// GetSongHistory reports how many times the user picked songID and the first and last
// time they did.
func (a *Aggregator) GetSongHistory(ctx context.Context, userID, songID string) model.SongHistory {
	out := model.SongHistory{SongID: songID}
	if a.timeline == nil || !a.active(stores.NameTimeline) {
		a.degraded("song_history", nil, userID)
		return out
	}
	freq, err := a.timeline.SelectionFrequency(ctx, userID)
	if err != nil {
		a.degraded("song_history", err, userID)
		return out
	}
	out.Count = freq[songID]
	if out.Count == 0 {
		return out
	}
	span, err := a.timeline.SelectionSpan(ctx, userID, songID)
	if err != nil {
		a.degraded("song_history", err, userID)
		return out
	}
	if !span.First.IsZero() {
		first := span.First.UTC()
		out.First = &first
	}
	if !span.Last.IsZero() {
		last := span.Last.UTC()
		out.Last = &last
	}
	return out
}

func (a *Aggregator) degraded(kind string, err error, userID string) {
	a.metrics.DegradedRead(kind)
	ev := a.log.Warn().Str("userId", userID).Str("kind", kind)
	if err != nil {
		ev = ev.Err(err)
	} else {
		ev = ev.Str("reason", "store inactive")
	}
	ev.Msg("stats unavailable; returning zero values")
}
