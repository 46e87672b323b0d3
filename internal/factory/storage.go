package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/isaac-evs/side-b/internal/config"
	"github.com/isaac-evs/side-b/internal/embeddings"
	"github.com/isaac-evs/side-b/internal/stores"
	"github.com/isaac-evs/side-b/internal/stores/cassandra"
	"github.com/isaac-evs/side-b/internal/stores/dgraph"
	"github.com/isaac-evs/side-b/internal/stores/memory"
	"github.com/isaac-evs/side-b/internal/stores/postgres"
	"github.com/isaac-evs/side-b/internal/stores/sqlite"
	"github.com/isaac-evs/side-b/internal/stores/weaviate"
)

// NewPrimary returns the authoritative store for cfg.PrimaryDriver.
func NewPrimary(cfg *config.Config) (stores.Primary, error) {
	switch cfg.PrimaryDriver {
	case config.DriverSQLite:
		return sqlite.New(cfg.SQLitePath), nil
	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("SIDEB_BACKEND_POSTGRES_DSN is required when PRIMARY_DRIVER=postgres")
		}
		return postgres.New(cfg.PostgresDSN), nil
	default:
		return nil, fmt.Errorf("unknown PRIMARY_DRIVER: %s", cfg.PrimaryDriver)
	}
}

// NewTimeline returns nil when the timeline is disabled.
func NewTimeline(cfg *config.Config) (stores.Timeline, error) {
	switch cfg.TimelineDriver {
	case config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		return memory.NewTimeline(), nil
	case config.DriverCassandra:
		return cassandra.New(cassandra.Options{
			Hosts:             cfg.CassandraHosts,
			Keyspace:          cfg.CassandraKeyspace,
			ReplicationFactor: cfg.CassandraReplication,
			Timeout:           cfg.TimelineTimeout,
			Consistency:       cfg.CassandraConsistency,
		}), nil
	default:
		return nil, fmt.Errorf("unknown TIMELINE_DRIVER: %s", cfg.TimelineDriver)
	}
}

// NewGraph returns nil when the graph is disabled.
func NewGraph(cfg *config.Config) (stores.Graph, error) {
	switch cfg.GraphDriver {
	case config.DriverNone:
		return nil, nil
	case config.DriverDgraph:
		return dgraph.New(cfg.DgraphURL, cfg.GraphTimeout), nil
	default:
		return nil, fmt.Errorf("unknown GRAPH_DRIVER: %s", cfg.GraphDriver)
	}
}

// NewVector returns nil when the vector store is disabled.
func NewVector(cfg *config.Config, emb embeddings.Provider, log zerolog.Logger) (stores.Vector, error) {
	switch cfg.VectorStore {
	case config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		return memory.NewVector(emb), nil
	case config.DriverWeaviate:
		return weaviate.New(cfg.WeaviateURL, emb, log), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_STORE: %s", cfg.VectorStore)
	}
}
