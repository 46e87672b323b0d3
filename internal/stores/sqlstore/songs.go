package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/isaac-evs/side-b/internal/model"
)

const songColumns = `song_id, title, artist, album, mood, description, album_art, duration, playback_ref, created_at`

type songs struct{ s *Store }

func scanSong(row scanner) (*model.Song, error) {
	var out model.Song
	if err := row.Scan(&out.SongID, &out.Title, &out.Artist, &out.Album, &out.Mood, &out.Description, &out.AlbumArt, &out.Duration, &out.PlaybackRef, &out.CreatedAt); err != nil {
		return nil, err
	}
	out.CreatedAt = out.CreatedAt.UTC()
	return &out, nil
}

// Insert upserts a catalog row by song id.
func (r *songs) Insert(ctx context.Context, m *model.Song) (*model.Song, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	if !model.IsMood(m.Mood) {
		return nil, model.NewValidationError("mood", fmt.Sprintf("unsupported mood %q", m.Mood))
	}
	if m.Title == "" {
		return nil, model.NewValidationError("title", "is required")
	}
	out := *m
	if out.SongID == "" {
		out.SongID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	_, err = db.ExecContext(ctx, r.s.q(`
        INSERT INTO songs (`+songColumns+`)
        VALUES (?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT (song_id) DO UPDATE SET
            title=excluded.title, artist=excluded.artist, album=excluded.album, mood=excluded.mood,
            description=excluded.description, album_art=excluded.album_art, duration=excluded.duration,
            playback_ref=excluded.playback_ref
    `), out.SongID, out.Title, out.Artist, out.Album, out.Mood, out.Description, out.AlbumArt, out.Duration, out.PlaybackRef, out.CreatedAt.UTC())
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *songs) Get(ctx context.Context, songID string) (*model.Song, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	out, err := scanSong(db.QueryRowContext(ctx, r.s.q(`SELECT `+songColumns+` FROM songs WHERE song_id=?`), songID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("song", songID)
	}
	return out, err
}

func (r *songs) GetMany(ctx context.Context, songIDs []string) (map[string]*model.Song, error) {
	out := make(map[string]*model.Song, len(songIDs))
	if len(songIDs) == 0 {
		return out, nil
	}
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	args := make([]any, len(songIDs))
	for i, id := range songIDs {
		args[i] = id
	}
	rows, err := db.QueryContext(ctx, r.s.q(`SELECT `+songColumns+` FROM songs WHERE song_id IN (`+placeholders(len(songIDs))+`)`), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		out[s.SongID] = s
	}
	return out, rows.Err()
}

func (r *songs) ListByMood(ctx context.Context, mood string, exclude []string, limit int) ([]*model.Song, error) {
	db, err := r.s.conn()
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + songColumns + ` FROM songs WHERE mood=?`
	args := []any{mood}
	if len(exclude) > 0 {
		query += ` AND song_id NOT IN (` + placeholders(len(exclude)) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	query += ` ORDER BY song_id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := db.QueryContext(ctx, r.s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Song
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
