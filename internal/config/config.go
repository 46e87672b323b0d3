package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Prefix of every environment variable read by New.
const Prefix = "SIDEB_BACKEND"

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Driver names.
const (
	DriverAuto      = "auto"
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverMemory    = "memory"
	DriverCassandra = "cassandra"
	DriverWeaviate  = "weaviate"
	DriverDgraph    = "dgraph"
	DriverNone      = "none"
	EmbedHash       = "hash"
	EmbedOllama     = "ollama"
)

// Config holds the configuration for the journal service.
// Environment variables are parsed from the SIDEB_BACKEND_ prefix.
type Config struct {
	// Build target selects high-level environment: local, cloud-dev, cloud
	BuildTarget string      `envconfig:"BUILD_TARGET" default:"local"`
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP Configuration
	HTTPPort        int           `envconfig:"HTTP_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`

	// Derived or override drivers
	PrimaryDriver  string `envconfig:"PRIMARY_DRIVER" default:"auto"`
	TimelineDriver string `envconfig:"TIMELINE_DRIVER" default:"auto"`
	GraphDriver    string `envconfig:"GRAPH_DRIVER" default:"auto"`
	VectorStore    string `envconfig:"VECTOR_STORE" default:"auto"`
	EmbedProvider  string `envconfig:"EMBED_PROVIDER" default:"auto"`

	// Primary store
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"sideb.db"`

	// Timeline store
	CassandraHosts       []string `envconfig:"CASSANDRA_HOSTS" default:"localhost:9042"`
	CassandraKeyspace    string   `envconfig:"CASSANDRA_KEYSPACE" default:"sideb"`
	CassandraConsistency string   `envconfig:"CASSANDRA_CONSISTENCY" default:"QUORUM"`
	CassandraReplication int      `envconfig:"CASSANDRA_REPLICATION" default:"1"`

	// Graph and vector stores
	DgraphURL   string `envconfig:"DGRAPH_URL" default:""`
	WeaviateURL string `envconfig:"WEAVIATE_URL" default:"localhost:8082"`

	// Embeddings
	OllamaURL       string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	EmbedModel      string `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`
	EmbedDimensions int    `envconfig:"EMBED_DIMENSIONS" default:"256"`
	EmbedPull       bool   `envconfig:"EMBED_PULL" default:"false"`

	// Write path
	PropagationMode string        `envconfig:"PROPAGATION_MODE" default:"await"`
	TimelineTimeout time.Duration `envconfig:"TIMELINE_TIMEOUT" default:"3s"`
	GraphTimeout    time.Duration `envconfig:"GRAPH_TIMEOUT" default:"5s"`
	VectorTimeout   time.Duration `envconfig:"VECTOR_TIMEOUT" default:"10s"`

	// Read path
	Timezone           string        `envconfig:"TIMEZONE" default:"UTC"`
	RecommendLimit     int           `envconfig:"RECOMMEND_LIMIT" default:"8"`
	ClassifierCacheTTL time.Duration `envconfig:"CLASSIFIER_CACHE_TTL" default:"1h"`

	// Lifecycle
	StoreProbeTimeout  time.Duration `envconfig:"STORE_PROBE_TIMEOUT" default:"2s"`
	HealthInterval     time.Duration `envconfig:"HEALTH_INTERVAL" default:"30s"`
	BootstrapTimeout   time.Duration `envconfig:"BOOTSTRAP_TIMEOUT" default:"30s"`
	SeedAnchorsOnStart bool          `envconfig:"SEED_ANCHORS_ON_START" default:"true"`

	location *time.Location
}

// ResolveDefaults validates BuildTarget and derives every driver left at "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var primary, timeline, graph, vector, embed string
	switch c.BuildTarget {
	case "local":
		primary, timeline, vector, embed = DriverSQLite, DriverMemory, DriverMemory, EmbedHash
		graph = DriverNone
		if c.DgraphURL != "" {
			graph = DriverDgraph
		}
	case "cloud-dev", "cloud":
		primary, timeline, graph, vector, embed = DriverPostgres, DriverCassandra, DriverDgraph, DriverWeaviate, EmbedOllama
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	pick := func(cur *string, def string) {
		if *cur == "" || *cur == DriverAuto {
			*cur = def
		}
	}
	pick(&c.PrimaryDriver, primary)
	pick(&c.TimelineDriver, timeline)
	pick(&c.GraphDriver, graph)
	pick(&c.VectorStore, vector)
	pick(&c.EmbedProvider, embed)

	checks := []struct {
		name, value string
		allowed     []string
	}{
		{"PRIMARY_DRIVER", c.PrimaryDriver, []string{DriverSQLite, DriverPostgres}},
		{"TIMELINE_DRIVER", c.TimelineDriver, []string{DriverMemory, DriverCassandra, DriverNone}},
		{"GRAPH_DRIVER", c.GraphDriver, []string{DriverDgraph, DriverNone}},
		{"VECTOR_STORE", c.VectorStore, []string{DriverMemory, DriverWeaviate, DriverNone}},
		{"EMBED_PROVIDER", c.EmbedProvider, []string{EmbedHash, EmbedOllama}},
		{"PROPAGATION_MODE", c.PropagationMode, []string{"await", "async"}},
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("unsupported %s: %s", ch.name, ch.value)
		}
	}

	if c.PrimaryDriver == DriverPostgres && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for the postgres primary store")
	}
	if c.PrimaryDriver == DriverSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite primary store")
	}
	if c.GraphDriver == DriverDgraph && c.DgraphURL == "" {
		return fmt.Errorf("DGRAPH_URL is required for the dgraph graph store")
	}
	if c.TimelineDriver == DriverCassandra && len(c.CassandraHosts) == 0 {
		return fmt.Errorf("CASSANDRA_HOSTS is required for the cassandra timeline store")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// LoadDotEnv loads variables from the given files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Example: SIDEB_BACKEND_BUILD_TARGET, SIDEB_BACKEND_HTTP_PORT
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("primary", cfg.PrimaryDriver).
		Str("timeline", cfg.TimelineDriver).
		Str("graph", cfg.GraphDriver).
		Str("vector", cfg.VectorStore).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Str("propagation_mode", cfg.PropagationMode).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Str("timezone", cfg.Timezone).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a resolved local config backed by in-process stores.
func NewForTesting() *Config {
	cfg := &Config{
		BuildTarget:        "local",
		Environment:        EnvTesting,
		LogLevel:           "disabled",
		HTTPPort:           8080,
		ShutdownTimeout:    5 * time.Second,
		SQLitePath:         ":memory:",
		CassandraKeyspace:  "sideb_test",
		EmbedDimensions:    64,
		PropagationMode:    "await",
		TimelineTimeout:    time.Second,
		GraphTimeout:       time.Second,
		VectorTimeout:      time.Second,
		Timezone:           "UTC",
		RecommendLimit:     8,
		ClassifierCacheTTL: time.Minute,
		StoreProbeTimeout:  time.Second,
		HealthInterval:     time.Second,
		BootstrapTimeout:   5 * time.Second,
		SeedAnchorsOnStart: true,
	}
	if err := cfg.ResolveDefaults(); err != nil {
		panic(err)
	}
	return cfg
}

// Location is the zone calendar days are evaluated in. Valid after ResolveDefaults.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
