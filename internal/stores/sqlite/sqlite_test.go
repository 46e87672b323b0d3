package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
	"github.com/isaac-evs/side-b/internal/stores/sqlstore"
	"github.com/isaac-evs/side-b/internal/stores/storetest"
)

func makeSQLiteStore(t *testing.T) stores.Primary {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "sideb.db"))
	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Initialize(ctx))
	// schema is idempotent
	require.NoError(t, s.Initialize(ctx))
	t.Cleanup(func() { _ = s.Disconnect(ctx) })
	return s
}

func TestSQLiteStore_Compliance(t *testing.T) {
	storetest.Run(t, makeSQLiteStore)
}

func TestSQLiteStore_ConnectRequiresPath(t *testing.T) {
	require.Error(t, New("").Connect(context.Background()))
}

func TestSQLiteStore_InsertSurvivesFailedReadBack(t *testing.T) {
	ctx := context.Background()
	db, err := open(filepath.Join(t.TempDir(), "sideb.db"))
	require.NoError(t, err)
	s := sqlstore.NewWithDB(db, Dialect())
	t.Cleanup(func() { _ = s.Disconnect(ctx) })
	require.NoError(t, s.Initialize(ctx))

	// leave an undecodable media column behind so the read after INSERT fails
	_, err = db.ExecContext(ctx, `CREATE TRIGGER corrupt_media AFTER INSERT ON entries
        BEGIN UPDATE entries SET media = '{' WHERE entry_id = NEW.entry_id; END`)
	require.NoError(t, err)

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	e, err := s.Entries().Insert(ctx, &model.Entry{
		UserID: "u1",
		Date:   day,
		Text:   "committed",
		Mood:   model.MoodCalm,
		Media:  []model.MediaAttachment{{FileID: "f1", FileType: "image"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.EntryID)
	assert.True(t, e.Date.Equal(day))
	assert.Equal(t, "committed", e.Text)
	assert.Len(t, e.Media, 1)
	assert.False(t, e.CreationTime.IsZero())

	_, err = s.Entries().Get(ctx, e.EntryID)
	assert.Error(t, err)
	_, err = s.Entries().Insert(ctx, &model.Entry{UserID: "u1", Date: day, Text: "again", Mood: model.MoodJoy})
	assert.True(t, model.IsDuplicateEntry(err), "got %v", err)
}
