package model

import "time"

// EntryRow is one row of the per-user entry timeline.
type EntryRow struct {
	UserID    string
	EntryID   string
	CreatedAt time.Time
	Text      string
}

// SelectionRow records that a user picked a song for an entry.
type SelectionRow struct {
	UserID     string
	EntryID    string
	SongID     string
	Mood       string
	SelectedAt time.Time
}

// MediaRow records a media attachment event.
type MediaRow struct {
	UserID     string
	EntryID    string
	FileID     string
	FileType   string
	URL        string
	AttachedAt time.Time
}

// CounterKind names a family of counters kept by the timeline store.
type CounterKind string

const (
	// CounterMonthly is keyed by year-month; Field picks the column.
	CounterMonthly CounterKind = "monthly"
	// CounterSongFrequency is keyed by song id.
	CounterSongFrequency CounterKind = "song_frequency"
	// CounterMediaType is keyed by media type.
	CounterMediaType CounterKind = "media_type"
)

// Monthly counter fields.
const (
	FieldEntries       = "entries_count"
	FieldSongsSelected = "songs_selected_count"
	FieldMediaAttached = "media_attached_count"
)

// Counter addresses a single counter cell.
type Counter struct {
	Kind   CounterKind
	UserID string
	Key    string
	Field  string
}

// MonthlyCounter addresses a monthly counter field for the month containing t.
func MonthlyCounter(userID string, t time.Time, field string) Counter {
	return Counter{Kind: CounterMonthly, UserID: userID, Key: YearMonth(t), Field: field}
}

// YearMonth formats t as the monthly partition key.
func YearMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MonthlyStat is the set of monthly counters for a user.
type MonthlyStat struct {
	UserID        string
	YearMonth     string
	EntriesCount  int64
	SongsSelected int64
	MediaAttached int64
}

// SelectionSpan holds the first and last time a user picked a song.
type SelectionSpan struct {
	First time.Time
	Last  time.Time
}
