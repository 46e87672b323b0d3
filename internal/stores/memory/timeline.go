package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/isaac-evs/side-b/internal/model"
)

type counterKey struct {
	kind   model.CounterKind
	userID string
	key    string
	field  string
}

// Timeline keeps rows and counters in maps guarded by a single mutex.
type Timeline struct {
	lifecycle

	mu         sync.RWMutex
	entries    map[string][]model.EntryRow
	selections map[string][]model.SelectionRow
	media      map[string][]model.MediaRow
	counters   map[counterKey]int64
	spans      map[[2]string]model.SelectionSpan
}

func NewTimeline() *Timeline {
	return &Timeline{
		entries:    make(map[string][]model.EntryRow),
		selections: make(map[string][]model.SelectionRow),
		media:      make(map[string][]model.MediaRow),
		counters:   make(map[counterKey]int64),
		spans:      make(map[[2]string]model.SelectionSpan),
	}
}

func (t *Timeline) AppendEntry(_ context.Context, row model.EntryRow) error {
	if err := t.check(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[row.UserID] = append(t.entries[row.UserID], row)
	return nil
}

func (t *Timeline) AppendSelection(_ context.Context, row model.SelectionRow) error {
	if err := t.check(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selections[row.UserID] = append(t.selections[row.UserID], row)
	return nil
}

func (t *Timeline) AppendMedia(_ context.Context, row model.MediaRow) error {
	if err := t.check(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.media[row.UserID] = append(t.media[row.UserID], row)
	return nil
}

func (t *Timeline) Increment(_ context.Context, c model.Counter, delta int64) error {
	if err := t.check(); err != nil {
		return err
	}
	if c.Kind == model.CounterMonthly {
		switch c.Field {
		case model.FieldEntries, model.FieldSongsSelected, model.FieldMediaAttached:
		default:
			return fmt.Errorf("unknown monthly counter field %q", c.Field)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters[counterKey{c.Kind, c.UserID, c.Key, c.Field}] += delta
	return nil
}

func (t *Timeline) MarkSelected(_ context.Context, userID, songID string, at time.Time) error {
	if err := t.check(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	k := [2]string{userID, songID}
	span := t.spans[k]
	if span.First.IsZero() {
		span.First = at
	}
	span.Last = at
	t.spans[k] = span
	return nil
}

func (t *Timeline) EntryTimes(_ context.Context, userID string, limit int) ([]time.Time, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	rows := t.entries[userID]
	out := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CreatedAt)
	}
	t.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].After(out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *Timeline) Monthly(_ context.Context, userID, yearMonth string) (model.MonthlyStat, error) {
	if err := t.check(); err != nil {
		return model.MonthlyStat{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	get := func(field string) int64 {
		return t.counters[counterKey{model.CounterMonthly, userID, yearMonth, field}]
	}
	return model.MonthlyStat{
		UserID:        userID,
		YearMonth:     yearMonth,
		EntriesCount:  get(model.FieldEntries),
		SongsSelected: get(model.FieldSongsSelected),
		MediaAttached: get(model.FieldMediaAttached),
	}, nil
}

func (t *Timeline) SelectionFrequency(_ context.Context, userID string) (map[string]int64, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := map[string]int64{}
	for k, v := range t.counters {
		if k.kind == model.CounterSongFrequency && k.userID == userID {
			out[k.key] += v
		}
	}
	return out, nil
}

func (t *Timeline) SelectionSpan(_ context.Context, userID, songID string) (model.SelectionSpan, error) {
	if err := t.check(); err != nil {
		return model.SelectionSpan{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	span, ok := t.spans[[2]string{userID, songID}]
	if !ok {
		return model.SelectionSpan{}, model.NewNotFoundError("song", songID)
	}
	return span, nil
}

// MediaTypeCounts returns the per-type media counters of a user.
func (t *Timeline) MediaTypeCounts(userID string) map[string]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := map[string]int64{}
	for k, v := range t.counters {
		if k.kind == model.CounterMediaType && k.userID == userID {
			out[k.key] += v
		}
	}
	return out
}

// Rows returns copies of the raw rows recorded for a user.
func (t *Timeline) Rows(userID string) ([]model.EntryRow, []model.SelectionRow, []model.MediaRow) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.EntryRow(nil), t.entries[userID]...),
		append([]model.SelectionRow(nil), t.selections[userID]...),
		append([]model.MediaRow(nil), t.media[userID]...)
}
