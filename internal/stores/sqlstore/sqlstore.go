// Package sqlstore implements stores.Primary over database/sql. Drivers plug in a
// Dialect (see stores/postgres and stores/sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

// Dialect captures what differs between SQL engines.
type Dialect struct {
	// Name is used in logs and errors.
	Name string
	// Open returns a pool for the dsn without checking connectivity.
	Open func(dsn string) (*sql.DB, error)
	// Schema statements are applied in order by Initialize; they must be idempotent.
	Schema []string
	// Numbered rewrites ? placeholders as $1..$n.
	Numbered bool
	// LockSuffix is appended to row reads inside read-modify-write transactions.
	LockSuffix string
	// IsUniqueViolation recognizes unique index failures.
	IsUniqueViolation func(err error) bool
}

// Store is a Primary backed by a *sql.DB.
type Store struct {
	dsn     string
	dialect Dialect

	mu sync.RWMutex
	db *sql.DB
}

// New creates an unconnected store.
func New(dsn string, d Dialect) *Store {
	return &Store{dsn: dsn, dialect: d}
}

// NewWithDB wraps an already open pool; the store starts connected.
func NewWithDB(db *sql.DB, d Dialect) *Store {
	return &Store{dialect: d, db: db}
}

func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	if s.dsn == "" {
		return fmt.Errorf("%s DSN is empty", s.dialect.Name)
	}
	db, err := s.dialect.Open(s.dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

// Initialize applies the dialect schema.
func (s *Store) Initialize(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	for _, stmt := range s.dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s schema: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (s *Store) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB exposes the pool for tests and tooling; nil when disconnected.
func (s *Store) DB() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

func (s *Store) Users() stores.Users     { return &users{s} }
func (s *Store) Entries() stores.Entries { return &entries{s} }
func (s *Store) Songs() stores.Songs     { return &songs{s} }

func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, model.ErrNotConnected
	}
	return s.db, nil
}

// q rewrites placeholders for the dialect.
func (s *Store) q(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var _ stores.Primary = (*Store)(nil)
