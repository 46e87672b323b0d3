// Package postgres is the cloud primary store: sqlstore over the pgx stdlib driver.
package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/isaac-evs/side-b/internal/stores/sqlstore"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        user_id       TEXT PRIMARY KEY,
        username      TEXT NOT NULL,
        email         TEXT NOT NULL DEFAULT '',
        name          TEXT NOT NULL DEFAULT '',
        creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_idx ON users (username)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (email) WHERE email <> ''`,
	`CREATE TABLE IF NOT EXISTS entries (
        entry_id      TEXT PRIMARY KEY,
        user_id       TEXT NOT NULL,
        entry_day     TEXT NOT NULL,
        entry_date    TIMESTAMPTZ NOT NULL,
        text          TEXT NOT NULL DEFAULT '',
        mood          TEXT NOT NULL,
        song_id       TEXT,
        song_title    TEXT,
        song_artist   TEXT,
        song_mood     TEXT,
        media         JSONB,
        creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
        update_time   TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS entries_user_day_idx ON entries (user_id, entry_day)`,
	`CREATE INDEX IF NOT EXISTS entries_song_idx ON entries (mood, song_id)`,
	`CREATE TABLE IF NOT EXISTS songs (
        song_id      TEXT PRIMARY KEY,
        title        TEXT NOT NULL,
        artist       TEXT NOT NULL DEFAULT '',
        album        TEXT NOT NULL DEFAULT '',
        mood         TEXT NOT NULL,
        description  TEXT NOT NULL DEFAULT '',
        album_art    TEXT NOT NULL DEFAULT '',
        duration     INTEGER NOT NULL DEFAULT 0,
        playback_ref TEXT NOT NULL DEFAULT '',
        created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS songs_mood_idx ON songs (mood, song_id)`,
}

// Dialect returns the Postgres flavour of sqlstore.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:              "postgres",
		Open:              func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) },
		Schema:            schema,
		Numbered:          true,
		LockSuffix:        " FOR UPDATE",
		IsUniqueViolation: isUniqueViolation,
	}
}

// New returns an unconnected primary store for dsn.
func New(dsn string) *sqlstore.Store { return sqlstore.New(dsn, Dialect()) }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
