// Package sqlite is the local primary store: sqlstore over modernc.org/sqlite.
package sqlite

import (
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/isaac-evs/side-b/internal/stores/sqlstore"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        user_id       TEXT PRIMARY KEY,
        username      TEXT NOT NULL,
        email         TEXT NOT NULL DEFAULT '',
        name          TEXT NOT NULL DEFAULT '',
        creation_time TIMESTAMP NOT NULL
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_idx ON users (username)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (email) WHERE email <> ''`,
	`CREATE TABLE IF NOT EXISTS entries (
        entry_id      TEXT PRIMARY KEY,
        user_id       TEXT NOT NULL,
        entry_day     TEXT NOT NULL,
        entry_date    TIMESTAMP NOT NULL,
        text          TEXT NOT NULL DEFAULT '',
        mood          TEXT NOT NULL,
        song_id       TEXT,
        song_title    TEXT,
        song_artist   TEXT,
        song_mood     TEXT,
        media         TEXT,
        creation_time TIMESTAMP NOT NULL,
        update_time   TIMESTAMP NOT NULL
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
        created_at   TIMESTAMP NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS songs_mood_idx ON songs (mood, song_id)`,
}

// Dialect returns the SQLite flavour of sqlstore.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:              "sqlite",
		Open:              open,
		Schema:            schema,
		IsUniqueViolation: isUniqueViolation,
	}
}

// New returns an unconnected primary store for a database file path or
// ":memory:".
func New(path string) *sqlstore.Store { return sqlstore.New(path, Dialect()) }

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
