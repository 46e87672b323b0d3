// Package stores defines the capability interfaces of the four backing stores and
// the lifecycle manager that connects, initializes and health-checks them.
// Implementations live under internal/stores/<driver>/.
package stores

import (
	"context"
	"time"

	"github.com/isaac-evs/side-b/internal/graph"
	"github.com/isaac-evs/side-b/internal/model"
)

// Registry names used when adapters are registered with the Manager.
const (
	NamePrimary  = "primary"
	NameTimeline = "timeline"
	NameGraph    = "graph"
	NameVector   = "vector"
)

// Adapter is the lifecycle contract shared by every store.
type Adapter interface {
	Connect(ctx context.Context) error
	Initialize(ctx context.Context) error
	HealthPing(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Primary is the authoritative document store for users, entries and songs.
type Primary interface {
	Adapter
	Users() Users
	Entries() Entries
	Songs() Songs
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
}

type Entries interface {
	// Insert commits e and returns the row as stored.
	Insert(ctx context.Context, e *model.Entry) (*model.Entry, error)
	Get(ctx context.Context, entryID string) (*model.Entry, error)
	// FindForDay returns the user's entry whose date falls in [start, end], or a
	// model.NotFoundError when there is none.
	FindForDay(ctx context.Context, userID string, start, end time.Time) (*model.Entry, error)
	// ListByUser returns entries newest day first; limit <= 0 means all.
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Entry, error)
	ListUserIDs(ctx context.Context) ([]string, error)
	AttachMedia(ctx context.Context, entryID string, m model.MediaAttachment) (*model.Entry, error)
	TopSongsByMood(ctx context.Context, perMood int) ([]model.MoodTopSongs, error)
}

type Songs interface {
	Insert(ctx context.Context, s *model.Song) (*model.Song, error)
	Get(ctx context.Context, songID string) (*model.Song, error)
	// GetMany resolves ids; missing ids are absent from the result.
	GetMany(ctx context.Context, songIDs []string) (map[string]*model.Song, error)
	// ListByMood returns up to limit songs of the mood ordered by song id, skipping exclude.
	ListByMood(ctx context.Context, mood string, exclude []string, limit int) ([]*model.Song, error)
}

// Timeline is the append-only event log and counter store.
type Timeline interface {
	Adapter
	AppendEntry(ctx context.Context, row model.EntryRow) error
	AppendSelection(ctx context.Context, row model.SelectionRow) error
	AppendMedia(ctx context.Context, row model.MediaRow) error
	// Increment adds delta to a counter atomically on the store side.
	Increment(ctx context.Context, c model.Counter, delta int64) error
	// MarkSelected records first_selected if absent and always updates last_selected.
	MarkSelected(ctx context.Context, userID, songID string, at time.Time) error

	// EntryTimes returns up to limit entry creation times, newest first.
	EntryTimes(ctx context.Context, userID string, limit int) ([]time.Time, error)
	Monthly(ctx context.Context, userID, yearMonth string) (model.MonthlyStat, error)
	SelectionFrequency(ctx context.Context, userID string) (map[string]int64, error)
	SelectionSpan(ctx context.Context, userID, songID string) (model.SelectionSpan, error)
}

// Graph is the derived relationship projection.
type Graph interface {
	Adapter
	Upsert(ctx context.Context, mu graph.Mutation) error
	// Query runs a read query and decodes the "data" object into out.
	Query(ctx context.Context, query string, vars map[string]string, out any) error
}

// Vector collections.
const (
	CollectionAnchors = "mood_anchors"
	CollectionSongs   = "songs"
	CollectionEntries = "entries"
)

// Document is a text to embed together with filterable string metadata.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Hit is a ranked similarity result; lower Distance is closer.
type Hit struct {
	ID       string
	Distance float64
	Metadata map[string]string
}

// Vector is the embedding index.
type Vector interface {
	Adapter
	Add(ctx context.Context, collection string, doc Document) error
	// Query returns up to k hits ordered by ascending distance whose metadata
	// matches every key/value in filter.
	Query(ctx context.Context, collection, text string, filter map[string]string, k int) ([]Hit, error)
	Count(ctx context.Context, collection string) (int, error)
}
