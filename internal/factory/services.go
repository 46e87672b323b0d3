package factory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/isaac-evs/side-b/internal/config"
	"github.com/isaac-evs/side-b/internal/journal"
	"github.com/isaac-evs/side-b/internal/metrics"
	"github.com/isaac-evs/side-b/internal/mood"
	"github.com/isaac-evs/side-b/internal/recommend"
	"github.com/isaac-evs/side-b/internal/stats"
	"github.com/isaac-evs/side-b/internal/stores"
)

// Services is the wired application graph shared by the server and the CLI.
// Timeline, Graph and Vector are nil when their driver is "none".
type Services struct {
	Manager     *stores.Manager
	Primary     stores.Primary
	Timeline    stores.Timeline
	Graph       stores.Graph
	Vector      stores.Vector
	Classifier  *mood.Classifier
	Recommender *recommend.Recommender
	Stats       *stats.Aggregator
	Journal     *journal.Coordinator
}

// NewServices builds every store adapter for cfg, registers them with a Manager and
// wires the domain services on top. Nothing is connected yet.
func NewServices(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) (*Services, error) {
	emb, err := NewEmbeddingProvider(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	s := &Services{Manager: stores.NewManager(log, cfg.StoreProbeTimeout)}
	if s.Primary, err = NewPrimary(cfg); err != nil {
		return nil, err
	}
	if s.Timeline, err = NewTimeline(cfg); err != nil {
		return nil, err
	}
	if s.Graph, err = NewGraph(cfg); err != nil {
		return nil, err
	}
	if s.Vector, err = NewVector(cfg, emb, log); err != nil {
		return nil, err
	}

	for _, r := range []struct {
		name    string
		adapter stores.Adapter
	}{
		{stores.NamePrimary, s.Primary},
		{stores.NameTimeline, s.Timeline},
		{stores.NameGraph, s.Graph},
		{stores.NameVector, s.Vector},
	} {
		if r.adapter == nil {
			continue
		}
		if err := s.Manager.Register(r.name, r.adapter); err != nil {
			return nil, errors.Wrapf(err, "register %s", r.name)
		}
	}

	mode, err := journal.ParseMode(cfg.PropagationMode)
	if err != nil {
		return nil, err
	}
	vectorActive := func() bool { return s.Manager.IsActive(stores.NameVector) }

	s.Classifier = mood.NewClassifier(s.Vector, log,
		mood.WithActive(vectorActive),
		mood.WithCacheTTL(cfg.ClassifierCacheTTL),
		mood.WithMetrics(m),
	)
	s.Recommender = recommend.New(s.Classifier, s.Primary.Songs(), s.Vector, log,
		recommend.WithLimit(cfg.RecommendLimit),
		recommend.WithActive(vectorActive),
		recommend.WithMetrics(m),
	)
	s.Stats = stats.New(s.Timeline, s.Graph, log,
		stats.WithLocation(cfg.Location()),
		stats.WithActive(s.Manager.IsActive),
		stats.WithMetrics(m),
	)
	s.Journal = journal.New(journal.Stores{
		Primary:  s.Primary,
		Timeline: s.Timeline,
		Graph:    s.Graph,
		Vector:   s.Vector,
		Active:   s.Manager.IsActive,
	}, log,
		journal.WithMode(mode),
		journal.WithTimeouts(journal.Timeouts{Timeline: cfg.TimelineTimeout, Graph: cfg.GraphTimeout, Vector: cfg.VectorTimeout}),
		journal.WithLocation(cfg.Location()),
		journal.WithClassifier(s.Classifier),
		journal.WithMetrics(m),
	)
	return s, nil
}

// Start connects and initializes every registered store. Failures are logged by the
// Manager and returned keyed by store; a failed primary is fatal for callers that write.
func (s *Services) Start(ctx context.Context) map[string]error {
	out := map[string]error{}
	for name, err := range s.Manager.ConnectAll(ctx) {
		if err != nil {
			out[name] = err
		}
	}
	for name, err := range s.Manager.InitializeAll(ctx) {
		if err != nil && out[name] == nil {
			out[name] = err
		}
	}
	return out
}

// Stop waits for in-flight propagation and disconnects every store.
func (s *Services) Stop(ctx context.Context) error {
	waitErr := s.Journal.Wait(ctx)
	s.Manager.DisconnectAll(context.WithoutCancel(ctx))
	return waitErr
}
