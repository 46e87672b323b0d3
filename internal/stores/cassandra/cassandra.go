// Package cassandra is the cloud Timeline store. Counters are Cassandra counter
// columns so increments are atomic on the server.
package cassandra

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

// Options configures the cluster connection.
type Options struct {
	Hosts             []string
	Keyspace          string
	ReplicationFactor int
	Timeout           time.Duration
	Consistency       string
}

// Store implements stores.Timeline over a gocql session.
type Store struct {
	opts Options

	mu      sync.RWMutex
	session *gocql.Session
}

func New(opts Options) *Store {
	if opts.Keyspace == "" {
		opts.Keyspace = "sideb"
	}
	if opts.ReplicationFactor <= 0 {
		opts.ReplicationFactor = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Store{opts: opts}
}

// Connect opens a session without a default keyspace; statements are fully qualified
// so the keyspace can be created by Initialize.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return nil
	}
	if len(s.opts.Hosts) == 0 {
		return fmt.Errorf("cassandra hosts are empty")
	}
	cluster := gocql.NewCluster(s.opts.Hosts...)
	cluster.Timeout = s.opts.Timeout
	cluster.ConnectTimeout = s.opts.Timeout
	if s.opts.Consistency != "" {
		c, err := gocql.ParseConsistencyWrapper(s.opts.Consistency)
		if err != nil {
			return err
		}
		cluster.Consistency = c
	} else {
		cluster.Consistency = gocql.Quorum
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("cassandra session: %w", err)
	}
	s.session = session
	return nil
}

// Initialize creates the keyspace and tables when missing.
func (s *Store) Initialize(ctx context.Context) error {
	session, err := s.conn()
	if err != nil {
		return err
	}
	for _, stmt := range schema(s.opts.Keyspace, s.opts.ReplicationFactor) {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("cassandra schema: %w", err)
		}
	}
	return nil
}

func (s *Store) HealthPing(ctx context.Context) error {
	session, err := s.conn()
	if err != nil {
		return err
	}
	var version string
	return session.Query(`SELECT release_version FROM system.local`).WithContext(ctx).Scan(&version)
}

func (s *Store) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
	return nil
}

func (s *Store) conn() (*gocql.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, model.ErrNotConnected
	}
	return s.session, nil
}

// t qualifies a table name with the keyspace.
func (s *Store) t(table string) string { return s.opts.Keyspace + "." + table }

func (s *Store) exec(ctx context.Context, stmt string, args ...any) error {
	session, err := s.conn()
	if err != nil {
		return err
	}
	return session.Query(stmt, args...).WithContext(ctx).Exec()
}

func (s *Store) AppendEntry(ctx context.Context, row model.EntryRow) error {
	at := row.CreatedAt.UTC()
	if err := s.exec(ctx, `INSERT INTO `+s.t("journal_entries_by_user")+` (user_id, entry_id, created_at, text) VALUES (?, ?, ?, ?)`,
		row.UserID, row.EntryID, at, row.Text); err != nil {
		return err
	}
	return s.exec(ctx, `INSERT INTO `+s.t("journal_entries_timeline")+` (user_id, created_at, entry_id) VALUES (?, ?, ?)`,
		row.UserID, at, row.EntryID)
}

func (s *Store) AppendSelection(ctx context.Context, row model.SelectionRow) error {
	return s.exec(ctx, `INSERT INTO `+s.t("song_selections_by_user")+` (user_id, selection_timestamp, entry_id, song_id, mood) VALUES (?, ?, ?, ?, ?)`,
		row.UserID, row.SelectedAt.UTC(), row.EntryID, row.SongID, row.Mood)
}

func (s *Store) AppendMedia(ctx context.Context, row model.MediaRow) error {
	return s.exec(ctx, `INSERT INTO `+s.t("media_attachments_log")+` (user_id, entry_id, attachment_timestamp, file_id, file_type, url) VALUES (?, ?, ?, ?, ?, ?)`,
		row.UserID, row.EntryID, gocql.UUIDFromTime(row.AttachedAt), row.FileID, row.FileType, row.URL)
}

func (s *Store) Increment(ctx context.Context, c model.Counter, delta int64) error {
	stmt, args, err := s.counterUpdate(c, delta)
	if err != nil {
		return err
	}
	return s.exec(ctx, stmt, args...)
}

func (s *Store) counterUpdate(c model.Counter, delta int64) (string, []any, error) {
	switch c.Kind {
	case model.CounterMonthly:
		col, err := monthlyColumn(c.Field)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf(`UPDATE %s SET %s = %s + ? WHERE user_id = ? AND year_month = ?`, s.t("user_monthly_stats"), col, col),
			[]any{delta, c.UserID, c.Key}, nil
	case model.CounterSongFrequency:
		return `UPDATE ` + s.t("song_selection_frequency") + ` SET selection_count = selection_count + ? WHERE user_id = ? AND song_id = ?`,
			[]any{delta, c.UserID, c.Key}, nil
	case model.CounterMediaType:
		return `UPDATE ` + s.t("media_attachment_type_counts") + ` SET count = count + ? WHERE user_id = ? AND media_type = ?`,
			[]any{delta, c.UserID, c.Key}, nil
	default:
		return "", nil, fmt.Errorf("unknown counter kind %q", c.Kind)
	}
}

func monthlyColumn(field string) (string, error) {
	switch field {
	case model.FieldEntries, model.FieldSongsSelected, model.FieldMediaAttached:
		return field, nil
	default:
		return "", fmt.Errorf("unknown monthly counter field %q", field)
	}
}

// MarkSelected inserts the first-selected row with a lightweight transaction, then
// always moves last_selected forward.
func (s *Store) MarkSelected(ctx context.Context, userID, songID string, at time.Time) error {
	session, err := s.conn()
	if err != nil {
		return err
	}
	at = at.UTC()
	if _, err := session.Query(`INSERT INTO `+s.t("song_selection_timestamps")+` (user_id, song_id, first_selected, last_selected) VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		userID, songID, at, at).WithContext(ctx).MapScanCAS(map[string]any{}); err != nil {
		return err
	}
	return session.Query(`UPDATE `+s.t("song_selection_timestamps")+` SET last_selected = ? WHERE user_id = ? AND song_id = ?`,
		at, userID, songID).WithContext(ctx).Exec()
}

func (s *Store) EntryTimes(ctx context.Context, userID string, limit int) ([]time.Time, error) {
	session, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 365
	}
	iter := session.Query(`SELECT created_at FROM `+s.t("journal_entries_timeline")+` WHERE user_id = ? LIMIT ?`, userID, limit).WithContext(ctx).Iter()
	var out []time.Time
	var at time.Time
	for iter.Scan(&at) {
		out = append(out, at.UTC())
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Monthly(ctx context.Context, userID, yearMonth string) (model.MonthlyStat, error) {
	out := model.MonthlyStat{UserID: userID, YearMonth: yearMonth}
	session, err := s.conn()
	if err != nil {
		return out, err
	}
	err = session.Query(`SELECT entries_count, songs_selected_count, media_attached_count FROM `+s.t("user_monthly_stats")+` WHERE user_id = ? AND year_month = ?`,
		userID, yearMonth).WithContext(ctx).Scan(&out.EntriesCount, &out.SongsSelected, &out.MediaAttached)
	if err == gocql.ErrNotFound {
		return out, nil
	}
	return out, err
}

func (s *Store) SelectionFrequency(ctx context.Context, userID string) (map[string]int64, error) {
	session, err := s.conn()
	if err != nil {
		return nil, err
	}
	iter := session.Query(`SELECT song_id, selection_count FROM `+s.t("song_selection_frequency")+` WHERE user_id = ?`, userID).WithContext(ctx).Iter()
	out := map[string]int64{}
	var songID string
	var n int64
	for iter.Scan(&songID, &n) {
		out[songID] = n
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SelectionSpan(ctx context.Context, userID, songID string) (model.SelectionSpan, error) {
	var out model.SelectionSpan
	session, err := s.conn()
	if err != nil {
		return out, err
	}
	err = session.Query(`SELECT first_selected, last_selected FROM `+s.t("song_selection_timestamps")+` WHERE user_id = ? AND song_id = ?`,
		userID, songID).WithContext(ctx).Scan(&out.First, &out.Last)
	if err == gocql.ErrNotFound {
		return out, model.NewNotFoundError("song", songID)
	}
	out.First, out.Last = out.First.UTC(), out.Last.UTC()
	return out, err
}

func schema(keyspace string, rf int) []string {
	q := func(s string) string { return strings.ReplaceAll(s, "{ks}", keyspace) }
	return []string{
		fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}`, keyspace, rf),
		q(`CREATE TABLE IF NOT EXISTS {ks}.song_selections_by_user (
            user_id TEXT, selection_timestamp TIMESTAMP, entry_id TEXT, song_id TEXT, mood TEXT,
            PRIMARY KEY (user_id, selection_timestamp)
        ) WITH CLUSTERING ORDER BY (selection_timestamp DESC)`),
		q(`CREATE TABLE IF NOT EXISTS {ks}.song_selection_frequency (
            user_id TEXT, song_id TEXT, selection_count COUNTER,
            PRIMARY KEY (user_id, song_id)
        )`),
		q(`CREATE TABLE IF NOT EXISTS {ks}.song_selection_timestamps (
            user_id TEXT, song_id TEXT, first_selected TIMESTAMP, last_selected TIMESTAMP,
            PRIMARY KEY (user_id, song_id)
        )`),
		q(`CREATE TABLE IF NOT EXISTS {ks}.media_attachments_log (
            user_id TEXT, entry_id TEXT, attachment_timestamp TIMEUUID, file_id TEXT, file_type TEXT, url TEXT,
            PRIMARY KEY ((user_id, entry_id), attachment_timestamp)
        ) WITH CLUSTERING ORDER BY (attachment_timestamp DESC)`),
		q(`CREATE TABLE IF NOT EXISTS {ks}.media_attachment_type_counts (
            user_id TEXT, media_type TEXT, count COUNTER,
            PRIMARY KEY (user_id, media_type)
        )`),
		q(`CREATE TABLE IF NOT EXISTS {ks}.user_monthly_stats (
            user_id TEXT, year_month TEXT,
            entries_count COUNTER, songs_selected_count COUNTER, media_attached_count COUNTER,
            PRIMARY KEY (user_id, year_month)
        )`),
		q(`CREATE TABLE IF NOT EXISTS {ks}.journal_entries_by_user (
            user_id TEXT, entry_id TEXT, created_at TIMESTAMP, text TEXT,
            PRIMARY KEY (user_id, entry_id)
        )`),
		q(`CREATE TABLE IF NOT EXISTS {ks}.journal_entries_timeline (
            user_id TEXT, created_at TIMESTAMP, entry_id TEXT,
            PRIMARY KEY (user_id, created_at)
        ) WITH CLUSTERING ORDER BY (created_at DESC)`),
	}
}

var _ stores.Timeline = (*Store)(nil)
