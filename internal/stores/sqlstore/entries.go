package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/isaac-evs/side-b/internal/model"
)

const dayLayout = "2006-01-02"

const entryColumns = `entry_id, user_id, entry_date, text, mood, song_id, song_title, song_artist, song_mood, media, creation_time, update_time`

type entries struct{ s *Store }

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*model.Entry, error) {
	var e model.Entry
	var songID, title, artist, songMood, media sql.NullString
	if err := row.Scan(&e.EntryID, &e.UserID, &e.Date, &e.Text, &e.Mood, &songID, &title, &artist, &songMood, &media, &e.CreationTime, &e.UpdateTime); err != nil {
		return nil, err
	}
	if songID.Valid && songID.String != "" {
		e.Song = &model.SongSelection{SongID: songID.String, Title: title.String, Artist: artist.String, Mood: songMood.String}
	}
	if media.Valid && media.String != "" {
		if err := json.Unmarshal([]byte(media.String), &e.Media); err != nil {
			return nil, fmt.Errorf("decode media of %s: %w", e.EntryID, err)
		}
	}
	e.Date = e.Date.UTC()
	e.CreationTime = e.CreationTime.UTC()
	e.UpdateTime = e.UpdateTime.UTC()
	return &e, nil
}

func mediaJSON(m []model.MediaAttachment) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Insert stores e keyed by the calendar day of e.Date in e.Date's location.
func (r *entries) Insert(ctx context.Context, e *model.Entry) (*model.Entry, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	id := e.EntryID
	if id == "" {
		id = uuid.New().String()
	}
	media, err := mediaJSON(e.Media)
	if err != nil {
		return nil, err
	}
	var songID, title, artist, songMood string
	if e.Song != nil {
		songID, title, artist, songMood = e.Song.SongID, e.Song.Title, e.Song.Artist, e.Song.Mood
	}
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, r.s.q(`
        INSERT INTO entries (entry_id, user_id, entry_day, entry_date, text, mood, song_id, song_title, song_artist, song_mood, media, creation_time, update_time)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
    `), id, e.UserID, e.Date.Format(dayLayout), e.Date.UTC(), e.Text, e.Mood,
		nullable(songID), nullable(title), nullable(artist), nullable(songMood), media, now, now)
	if err != nil {
		if r.s.dialect.IsUniqueViolation(err) {
			return nil, model.DuplicateEntryError{UserID: e.UserID, Day: e.Date}
		}
		return nil, err
	}
	got, err := r.Get(ctx, id)
	if err != nil {
		// the row is committed; answer with what was written
		out := *e
		out.EntryID = id
		out.Date = e.Date.UTC()
		out.CreationTime, out.UpdateTime = now, now
		return &out, nil
	}
	return got, nil
}

func (r *entries) Get(ctx context.Context, entryID string) (*model.Entry, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	e, err := scanEntry(db.QueryRowContext(ctx, r.s.q(`SELECT `+entryColumns+` FROM entries WHERE entry_id=?`), entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("entry", entryID)
	}
	return e, err
}

// FindForDay matches on the day key, so start and end must be expressed in the
// location entries were written with.
func (r *entries) FindForDay(ctx context.Context, userID string, start, end time.Time) (*model.Entry, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	e, err := scanEntry(db.QueryRowContext(ctx, r.s.q(`
        SELECT `+entryColumns+` FROM entries
        WHERE user_id=? AND entry_day>=? AND entry_day<=?
        ORDER BY entry_day LIMIT 1
    `), userID, start.Format(dayLayout), end.Format(dayLayout)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("entry", userID+"@"+start.Format(dayLayout))
	}
	return e, err
}

// ListByUser returns entries newest day first. limit <= 0 means all.
func (r *entries) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Entry, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id=? ORDER BY entry_day DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := db.QueryContext(ctx, r.s.q(query), userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListUserIDs returns every user id that owns at least one entry.
func (r *entries) ListUserIDs(ctx context.Context) ([]string, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT user_id FROM entries ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *entries) AttachMedia(ctx context.Context, entryID string, m model.MediaAttachment) (*model.Entry, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	e, err := scanEntry(tx.QueryRowContext(ctx, r.s.q(`SELECT `+entryColumns+` FROM entries WHERE entry_id=?`+r.s.dialect.LockSuffix), entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("entry", entryID)
	}
	if err != nil {
		return nil, err
	}
	if m.FileID == "" {
		m.FileID = uuid.New().String()
	}
	if m.AttachedAt.IsZero() {
		m.AttachedAt = time.Now().UTC()
	}
	media, err := mediaJSON(append(e.Media, m))
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, r.s.q(`UPDATE entries SET media=?, update_time=? WHERE entry_id=?`), media, time.Now().UTC(), entryID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.Get(ctx, entryID)
}

// TopSongsByMood ranks selected songs per mood by the number of entries that picked them.
func (r *entries) TopSongsByMood(ctx context.Context, perMood int) ([]model.MoodTopSongs, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
        SELECT mood, song_id, MIN(song_title), MIN(song_artist), COUNT(*) AS plays
        FROM entries WHERE song_id IS NOT NULL
        GROUP BY mood, song_id
        ORDER BY mood, plays DESC, song_id
    `)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	byMood := map[string]*model.MoodTopSongs{}
	var order []string
	for rows.Next() {
		var mood string
		var sc model.SongCount
		var title, artist sql.NullString
		if err := rows.Scan(&mood, &sc.SongID, &title, &artist, &sc.Count); err != nil {
			return nil, err
		}
		sc.Title, sc.Artist = title.String, artist.String
		g, ok := byMood[mood]
		if !ok {
			g = &model.MoodTopSongs{Mood: mood}
			byMood[mood] = g
			order = append(order, mood)
		}
		if perMood <= 0 || len(g.TopSongs) < perMood {
			g.TopSongs = append(g.TopSongs, sc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]model.MoodTopSongs, 0, len(order))
	for _, m := range order {
		out = append(out, *byMood[m])
	}
	return out, nil
}
