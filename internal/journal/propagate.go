package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/isaac-evs/side-b/internal/graph"
	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

// TaskResult is the outcome of one secondary store write.
type TaskResult struct {
	Store    string
	Err      error
	Duration time.Duration
}

type task struct {
	store   string
	timeout time.Duration
	run     func(ctx context.Context) error
}

func (c *Coordinator) enabled(name string, adapter any) bool {
	return adapter != nil && c.stores.Active(name)
}

// entryTasks lists the propagation writes for a committed entry.
func (c *Coordinator) entryTasks(e *model.Entry) []task {
	var tasks []task
	if c.enabled(stores.NameTimeline, c.stores.Timeline) {
		tasks = append(tasks, task{stores.NameTimeline, c.timeouts.Timeline, func(ctx context.Context) error {
			return c.writeTimeline(ctx, e)
		}})
	}
	if c.enabled(stores.NameGraph, c.stores.Graph) {
		tasks = append(tasks, task{stores.NameGraph, c.timeouts.Graph, func(ctx context.Context) error {
			return c.writeGraph(ctx, e)
		}})
	}
	if e.Text != "" && c.enabled(stores.NameVector, c.stores.Vector) {
		tasks = append(tasks, task{stores.NameVector, c.timeouts.Vector, func(ctx context.Context) error {
			return c.writeVector(ctx, e)
		}})
	}
	return tasks
}

// mediaTasks lists the propagation writes for a media attachment.
func (c *Coordinator) mediaTasks(userID, entryID string, m model.MediaAttachment) []task {
	var tasks []task
	if c.enabled(stores.NameTimeline, c.stores.Timeline) {
		tasks = append(tasks, task{stores.NameTimeline, c.timeouts.Timeline, func(ctx context.Context) error {
			return c.writeMedia(ctx, userID, entryID, m)
		}})
	}
	if c.enabled(stores.NameGraph, c.stores.Graph) {
		tasks = append(tasks, task{stores.NameGraph, c.timeouts.Graph, func(ctx context.Context) error {
			mu, err := graph.NewMediaMutation(entryID, m)
			if err != nil {
				return err
			}
			return c.stores.Graph.Upsert(ctx, mu)
		}})
	}
	return tasks
}

// propagate runs tasks detached from the caller's cancellation. In async mode it
// returns immediately and the run is tracked for Wait.
func (c *Coordinator) propagate(ctx context.Context, entryID string, tasks []task) {
	if len(tasks) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	if c.mode == ModeAsync {
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			c.run(detached, entryID, tasks)
		}()
		return
	}
	c.run(detached, entryID, tasks)
}

// run executes every task concurrently under its own timeout and joins them.
func (c *Coordinator) run(ctx context.Context, entryID string, tasks []task) []TaskResult {
	results := make([]TaskResult, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			tctx, cancel := context.WithTimeout(ctx, t.timeout)
			defer cancel()
			start := time.Now()
			err := safeRun(tctx, t.run)
			results[i] = TaskResult{Store: t.store, Err: err, Duration: time.Since(start)}
		}(i, t)
	}
	wg.Wait()

	for _, r := range results {
		c.metrics.Propagation(r.Store, r.Duration, r.Err)
		if r.Err != nil {
			err := model.SecondaryWriteError{Store: r.Store, Err: r.Err}
			c.log.Error().Stack().Err(err).Str("entryId", entryID).Str("store", r.Store).Dur("took", r.Duration).Msg("propagation failed")
			continue
		}
		c.log.Debug().Str("entryId", entryID).Str("store", r.Store).Dur("took", r.Duration).Msg("propagated")
	}
	if c.onPropagated != nil {
		c.onPropagated(entryID, results)
	}
	return results
}

func safeRun(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("propagation panic: %v", rec)
		}
	}()
	return fn(ctx)
}

// writeTimeline appends the entry, selection and media rows and bumps their counters.
// Rows are keyed by the entry's own date so backdated entries land on their day.
// Every write is attempted; failures are joined.
func (c *Coordinator) writeTimeline(ctx context.Context, e *model.Entry) error {
	tl := c.stores.Timeline
	at := e.Date
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(tl.AppendEntry(ctx, model.EntryRow{UserID: e.UserID, EntryID: e.EntryID, CreatedAt: at, Text: e.Text}))
	add(tl.Increment(ctx, model.MonthlyCounter(e.UserID, at, model.FieldEntries), 1))

	if s := e.Song; s != nil {
		mood := s.Mood
		if mood == "" {
			mood = e.Mood
		}
		add(tl.AppendSelection(ctx, model.SelectionRow{UserID: e.UserID, EntryID: e.EntryID, SongID: s.SongID, Mood: mood, SelectedAt: at}))
		add(tl.Increment(ctx, model.Counter{Kind: model.CounterSongFrequency, UserID: e.UserID, Key: s.SongID}, 1))
		add(tl.Increment(ctx, model.MonthlyCounter(e.UserID, at, model.FieldSongsSelected), 1))
		add(tl.MarkSelected(ctx, e.UserID, s.SongID, at))
	}
	for _, m := range e.Media {
		add(c.writeMedia(ctx, e.UserID, e.EntryID, m))
	}
	return errors.Join(errs...)
}

func (c *Coordinator) writeMedia(ctx context.Context, userID, entryID string, m model.MediaAttachment) error {
	tl := c.stores.Timeline
	return errors.Join(
		tl.AppendMedia(ctx, model.MediaRow{UserID: userID, EntryID: entryID, FileID: m.FileID, FileType: m.FileType, URL: m.URL, AttachedAt: m.AttachedAt}),
		tl.Increment(ctx, model.MonthlyCounter(userID, m.AttachedAt, model.FieldMediaAttached), 1),
		tl.Increment(ctx, model.Counter{Kind: model.CounterMediaType, UserID: userID, Key: m.FileType}, 1),
	)
}

func (c *Coordinator) writeGraph(ctx context.Context, e *model.Entry) error {
	username := ""
	if u, err := c.stores.Primary.Users().Get(ctx, e.UserID); err == nil {
		username = u.Username
	}
	mu, err := graph.NewEntryMutation(e, username)
	if err != nil {
		return err
	}
	return c.stores.Graph.Upsert(ctx, mu)
}

func (c *Coordinator) writeVector(ctx context.Context, e *model.Entry) error {
	meta := map[string]string{
		"userId": e.UserID,
		"date":   e.Date.In(c.loc).Format("2006-01-02"),
		"mood":   e.Mood,
	}
	if e.Song != nil {
		meta["songTitle"] = e.Song.Title
		meta["songArtist"] = e.Song.Artist
	}
	return c.stores.Vector.Add(ctx, stores.CollectionEntries, stores.Document{ID: e.EntryID, Text: e.Text, Metadata: meta})
}
