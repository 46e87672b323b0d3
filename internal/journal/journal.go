// Package journal is the write path for journal entries: the primary store commit
// followed by best-effort propagation into the timeline, graph and vector stores.
package journal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/isaac-evs/side-b/internal/metrics"
	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

// Mode selects whether CreateEntry waits for secondary propagation.
type Mode string

const (
	ModeAwait Mode = "await"
	ModeAsync Mode = "async"
)

// ParseMode accepts "await" (default for "") or "async".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAwait:
		return ModeAwait, nil
	case ModeAsync:
		return ModeAsync, nil
	default:
		return "", fmt.Errorf("unknown propagation mode %q", s)
	}
}

// Classifier fills in a missing mood.
type Classifier interface {
	Classify(ctx context.Context, text string) string
}

// Timeouts bound each secondary propagation task.
type Timeouts struct {
	Timeline time.Duration
	Graph    time.Duration
	Vector   time.Duration
}

// DefaultTimeouts are used for zero fields.
var DefaultTimeouts = Timeouts{Timeline: 3 * time.Second, Graph: 5 * time.Second, Vector: 10 * time.Second}

// Stores are the adapters the coordinator writes to. Only Primary is required.
type Stores struct {
	Primary  stores.Primary
	Timeline stores.Timeline
	Graph    stores.Graph
	Vector   stores.Vector
	// Active reports whether a named store takes part in propagation.
	Active func(name string) bool
}

// CreateEntryRequest is the input of CreateEntry. An empty Mood is classified from Text.
// A Song carrying only an id is resolved against the catalog.
type CreateEntryRequest struct {
	UserID string
	Date   time.Time
	Text   string
	Mood   string
	Song   *model.SongSelection
	Media  []model.MediaAttachment
}

type Coordinator struct {
	stores     Stores
	classifier Classifier
	mode       Mode
	timeouts   Timeouts
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger
	metrics    *metrics.Metrics

	onPropagated func(entryID string, results []TaskResult)
	inflight     sync.WaitGroup
}

type Option func(*Coordinator)

func WithMode(m Mode) Option { return func(c *Coordinator) { c.mode = m } }

func WithTimeouts(t Timeouts) Option {
	return func(c *Coordinator) {
		if t.Timeline > 0 {
			c.timeouts.Timeline = t.Timeline
		}
		if t.Graph > 0 {
			c.timeouts.Graph = t.Graph
		}
		if t.Vector > 0 {
			c.timeouts.Vector = t.Vector
		}
	}
}

// WithLocation sets the zone that decides which calendar day an entry belongs to.
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Coordinator) { c.metrics = m } }

// WithClassifier fills missing moods; without one they default to joy.
func WithClassifier(cl Classifier) Option { return func(c *Coordinator) { c.classifier = cl } }

// OnPropagated is called once per propagation run after every task finished.
func OnPropagated(fn func(entryID string, results []TaskResult)) Option {
	return func(c *Coordinator) { c.onPropagated = fn }
}

func New(s Stores, log zerolog.Logger, opts ...Option) *Coordinator {
	if s.Active == nil {
		s.Active = func(string) bool { return true }
	}
	c := &Coordinator{
		stores:   s,
		mode:     ModeAwait,
		timeouts: DefaultTimeouts,
		loc:      time.UTC,
		now:      time.Now,
		log:      log.With().Str("component", "journal").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// dayBounds returns the first and last instant of the calendar day of t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func (c *Coordinator) validate(req CreateEntryRequest) error {
	switch {
	case req.UserID == "":
		return model.NewValidationError("userId", "is required")
	case req.Date.IsZero():
		return model.NewValidationError("date", "is required")
	case req.Mood != "" && !model.IsMood(req.Mood):
		return model.NewValidationError("mood", fmt.Sprintf("unsupported mood %q", req.Mood))
	}
	for _, m := range req.Media {
		if m.FileType == "" {
			return model.NewValidationError("media.fileType", "is required")
		}
	}
	return nil
}

// CreateEntry commits an entry to the primary store and propagates it to the secondary
// stores. Only validation, duplicate-day and primary failures are returned; secondary
// failures are logged and counted.
func (c *Coordinator) CreateEntry(ctx context.Context, req CreateEntryRequest) (*model.Entry, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}
	entries := c.stores.Primary.Entries()
	start, end := dayBounds(req.Date, c.loc)

	existing, err := entries.FindForDay(ctx, req.UserID, start, end)
	switch {
	case err == nil && existing != nil:
		return nil, model.DuplicateEntryError{UserID: req.UserID, Day: start}
	case err != nil && !model.IsNotFoundError(err):
		c.metrics.PrimaryWrite("lookup", err)
		return nil, model.PrimaryWriteError{Op: "lookup", Err: err}
	}

	song, err := c.resolveSong(ctx, req.Song)
	if err != nil {
		return nil, err
	}
	mood := req.Mood
	if mood == "" {
		mood = c.classify(ctx, req.Text)
	}

	now := c.now().UTC()
	media := make([]model.MediaAttachment, 0, len(req.Media))
	for _, m := range req.Media {
		media = append(media, c.stampMedia(m, now))
	}

	entry, err := entries.Insert(ctx, &model.Entry{
		UserID:       req.UserID,
		Date:         req.Date.In(c.loc),
		Text:         req.Text,
		Mood:         mood,
		Song:         song,
		Media:        media,
		CreationTime: now,
		UpdateTime:   now,
	})
	c.metrics.PrimaryWrite("insert", err)
	if err != nil {
		if model.IsDuplicateEntry(err) || model.IsValidationError(err) {
			return nil, err
		}
		return nil, model.PrimaryWriteError{Op: "insert", Err: err}
	}

	c.log.Info().Str("entryId", entry.EntryID).Str("userId", entry.UserID).Str("mood", entry.Mood).Msg("entry committed")
	c.propagate(ctx, entry.EntryID, c.entryTasks(entry))
	return entry, nil
}

func (c *Coordinator) classify(ctx context.Context, text string) string {
	if c.classifier == nil {
		return model.MoodJoy
	}
	return c.classifier.Classify(ctx, text)
}

// resolveSong snapshots the catalog row for the selected song. A song unknown to the
// catalog is kept as given when it carries a title.
func (c *Coordinator) resolveSong(ctx context.Context, sel *model.SongSelection) (*model.SongSelection, error) {
	if sel == nil {
		return nil, nil
	}
	if sel.SongID == "" {
		return nil, model.NewValidationError("song.songId", "is required")
	}
	s, err := c.stores.Primary.Songs().Get(ctx, sel.SongID)
	switch {
	case err == nil:
		return s.Selection(), nil
	case model.IsNotFoundError(err):
		if sel.Title == "" {
			return nil, model.NewValidationError("song.songId", fmt.Sprintf("unknown song %q", sel.SongID))
		}
		out := *sel
		return &out, nil
	default:
		c.metrics.PrimaryWrite("song_lookup", err)
		return nil, model.PrimaryWriteError{Op: "song_lookup", Err: err}
	}
}

func (c *Coordinator) stampMedia(m model.MediaAttachment, now time.Time) model.MediaAttachment {
	if m.FileID == "" {
		m.FileID = uuid.New().String()
	}
	if m.AttachedAt.IsZero() {
		m.AttachedAt = now
	}
	return m
}

// GetEntry reads an entry owned by userID.
func (c *Coordinator) GetEntry(ctx context.Context, userID, entryID string) (*model.Entry, error) {
	e, err := c.stores.Primary.Entries().Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, model.NewNotFoundError("entry", entryID)
	}
	return e, nil
}

// ListEntries returns the user's entries newest day first; limit <= 0 means all.
func (c *Coordinator) ListEntries(ctx context.Context, userID string, limit int) ([]*model.Entry, error) {
	if userID == "" {
		return nil, model.NewValidationError("userId", "is required")
	}
	out, err := c.stores.Primary.Entries().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*model.Entry{}
	}
	return out, nil
}

// CreateUser registers an account in the primary store. Users live only there; the
// graph learns about them on their first entry.
func (c *Coordinator) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	switch {
	case u == nil || u.Username == "":
		return nil, model.NewValidationError("username", "is required")
	case u.Email == "":
		return nil, model.NewValidationError("email", "is required")
	}
	out, err := c.stores.Primary.Users().Create(ctx, u)
	c.metrics.PrimaryWrite("create_user", err)
	if err != nil {
		if model.IsValidationError(err) {
			return nil, err
		}
		return nil, model.PrimaryWriteError{Op: "create_user", Err: err}
	}
	return out, nil
}

func (c *Coordinator) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return c.stores.Primary.Users().Get(ctx, userID)
}

// AttachMedia adds a media reference to an existing entry. The primary update is
// authoritative; counters and the graph edge are best effort.
func (c *Coordinator) AttachMedia(ctx context.Context, userID, entryID string, m model.MediaAttachment) (*model.Entry, error) {
	if m.FileType == "" {
		return nil, model.NewValidationError("fileType", "is required")
	}
	if _, err := c.GetEntry(ctx, userID, entryID); err != nil {
		if model.IsNotFoundError(err) {
			return nil, err
		}
		return nil, model.PrimaryWriteError{Op: "get", Err: err}
	}

	m = c.stampMedia(m, c.now().UTC())
	entry, err := c.stores.Primary.Entries().AttachMedia(ctx, entryID, m)
	c.metrics.PrimaryWrite("attach_media", err)
	if err != nil {
		if model.IsNotFoundError(err) {
			return nil, err
		}
		return nil, model.PrimaryWriteError{Op: "attach_media", Err: err}
	}

	c.propagate(ctx, entryID, c.mediaTasks(userID, entryID, m))
	return entry, nil
}

// Wait blocks until background propagation started in async mode has finished or ctx
// is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
