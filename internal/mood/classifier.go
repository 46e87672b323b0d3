// Package mood labels free text with one of the supported moods by nearest-anchor
// similarity over the vector store.
package mood

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/isaac-evs/side-b/internal/metrics"
	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

// DefaultMood is returned whenever classification is not possible.
const DefaultMood = model.MoodJoy

const (
	neighbours      = 3
	defaultCacheTTL = time.Hour
)

// Classifier is safe for concurrent use.
type Classifier struct {
	vector  stores.Vector
	active  func() bool
	cache   *cache.Cache
	log     zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*Classifier)

// WithActive gates vector lookups, typically on the store manager's activation flag.
func WithActive(fn func() bool) Option { return func(c *Classifier) { c.active = fn } }

// WithCacheTTL sets how long a label is remembered per text.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Classifier) { c.cache = cache.New(ttl, 2*ttl) }
}

func WithMetrics(m *metrics.Metrics) Option { return func(c *Classifier) { c.metrics = m } }

// NewClassifier creates a classifier over vector. A nil vector always yields DefaultMood.
func NewClassifier(vector stores.Vector, log zerolog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		vector: vector,
		active: func() bool { return true },
		log:    log.With().Str("component", "mood").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cache = cache.New(defaultCacheTTL, 2*defaultCacheTTL)
	}
	return c
}

func (c *Classifier) available() bool { return c.vector != nil && c.active() }

// Classify returns the mood of the closest anchor to text. It never fails; empty text,
// an unavailable vector store or an empty result all yield DefaultMood. Only labels
// backed by a vector match are cached.
func (c *Classifier) Classify(ctx context.Context, text string) string {
	key := strings.TrimSpace(text)
	if key == "" {
		c.metrics.Classification("default")
		return DefaultMood
	}
	if v, ok := c.cache.Get(key); ok {
		c.metrics.Classification("cache")
		return v.(string)
	}
	if !c.available() {
		c.log.Warn().Msg("classification unavailable: vector store inactive")
		c.metrics.Classification("default")
		return DefaultMood
	}

	hits, err := c.vector.Query(ctx, stores.CollectionAnchors, key, nil, neighbours)
	if err != nil {
		c.log.Warn().Err(err).Msg("classification unavailable: anchor query failed")
		c.metrics.Classification("default")
		return DefaultMood
	}
	label, ok := closest(hits)
	if !ok {
		c.log.Warn().Int("hits", len(hits)).Msg("classification unavailable: no usable anchors")
		c.metrics.Classification("default")
		return DefaultMood
	}
	c.cache.SetDefault(key, label)
	c.metrics.Classification("vector")
	return label
}

// closest picks the label of the nearest hit; equal distances go to the anchor
// seeded first.
func closest(hits []stores.Hit) (string, bool) {
	best, bestSeq, found := "", math.MaxInt, false
	bestDist := math.Inf(1)
	for _, h := range hits {
		label := h.Metadata["mood"]
		if !model.IsMood(label) {
			continue
		}
		seq := math.MaxInt
		if v, err := strconv.Atoi(h.Metadata["seq"]); err == nil {
			seq = v
		}
		if h.Distance < bestDist || (h.Distance == bestDist && seq < bestSeq) {
			best, bestDist, bestSeq, found = label, h.Distance, seq, true
		}
	}
	return best, found
}

// SeedAnchorsIfEmpty writes the anchor set when the anchors collection is empty.
// Two processes racing here both seed; ids are deterministic so the result stays
// correct either way.
func (c *Classifier) SeedAnchorsIfEmpty(ctx context.Context) (bool, error) {
	if !c.available() {
		return false, fmt.Errorf("seed anchors: vector store unavailable")
	}
	n, err := c.vector.Count(ctx, stores.CollectionAnchors)
	if err != nil {
		return false, fmt.Errorf("seed anchors: count: %w", err)
	}
	if n > 0 {
		c.log.Info().Int("anchors", n).Msg("mood anchors already present")
		return false, nil
	}
	anchors := Anchors()
	for _, a := range anchors {
		doc := stores.Document{
			ID:   a.AnchorID,
			Text: a.Text,
			Metadata: map[string]string{
				"mood":    a.Mood,
				"seq":     strconv.Itoa(a.Seq),
				"version": a.Version,
			},
		}
		if err := c.vector.Add(ctx, stores.CollectionAnchors, doc); err != nil {
			return false, fmt.Errorf("seed anchor %s: %w", a.AnchorID, err)
		}
	}
	c.log.Info().Int("anchors", len(anchors)).Str("version", AnchorVersion).Msg("mood anchors seeded")
	return true, nil
}
