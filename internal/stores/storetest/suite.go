// Package storetest is a compliance suite for stores.Primary implementations.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

// Run exercises a connected, initialized store. makeStore must return an isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) stores.Primary) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()
	require.NoError(t, s.HealthPing(ctx))

	userID := "u-" + uuid.New().String()

	t.Run("users", func(t *testing.T) {
		username := "ana_" + userID[2:10]
		u, err := s.Users().Create(ctx, &model.User{UserID: userID, Username: username, Email: userID + "@example.test"})
		require.NoError(t, err)
		assert.False(t, u.CreationTime.IsZero())

		got, err := s.Users().Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, username, got.Username)

		_, err = s.Users().Create(ctx, &model.User{Username: username, Email: "other-" + userID + "@example.test"})
		var verr model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "username", verr.Field)

		_, err = s.Users().Create(ctx, &model.User{Username: username + "_b", Email: userID + "@example.test"})
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "email", verr.Field)

		_, err = s.Users().Get(ctx, "missing-"+userID)
		assert.True(t, model.IsNotFoundError(err))
	})

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	var first *model.Entry

	t.Run("entries are unique per day", func(t *testing.T) {
		var err error
		first, err = s.Entries().Insert(ctx, &model.Entry{
			UserID: userID,
			Date:   day,
			Text:   "first",
			Mood:   model.MoodCalm,
			Song:   &model.SongSelection{SongID: "s-calm-1", Title: "Weightless", Artist: "Marconi Union", Mood: model.MoodCalm},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, first.EntryID)
		assert.Equal(t, "s-calm-1", first.Song.SongID)
		assert.True(t, first.Date.Equal(day))

		_, err = s.Entries().Insert(ctx, &model.Entry{UserID: userID, Date: day.Add(3 * time.Hour), Text: "again", Mood: model.MoodJoy})
		assert.True(t, model.IsDuplicateEntry(err), "got %v", err)

		next, err := s.Entries().Insert(ctx, &model.Entry{UserID: userID, Date: day.AddDate(0, 0, 1), Text: "next", Mood: model.MoodJoy})
		require.NoError(t, err)
		assert.Nil(t, next.Song)
	})

	t.Run("find for day", func(t *testing.T) {
		got, err := s.Entries().FindForDay(ctx, userID, day, day.Add(24*time.Hour-time.Nanosecond))
		require.NoError(t, err)
		assert.Equal(t, first.EntryID, got.EntryID)

		_, err = s.Entries().FindForDay(ctx, userID, day.AddDate(0, 0, 5), day.AddDate(0, 0, 6).Add(-time.Nanosecond))
		assert.True(t, model.IsNotFoundError(err))
	})

	t.Run("list and attach media", func(t *testing.T) {
		lst, err := s.Entries().ListByUser(ctx, userID, 0)
		require.NoError(t, err)
		require.Len(t, lst, 2)
		assert.Equal(t, "next", lst[0].Text)

		lst, err = s.Entries().ListByUser(ctx, userID, 1)
		require.NoError(t, err)
		assert.Len(t, lst, 1)

		ids, err := s.Entries().ListUserIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, userID)

		got, err := s.Entries().AttachMedia(ctx, first.EntryID, model.MediaAttachment{FileType: "image", URL: "https://x/y.png"})
		require.NoError(t, err)
		require.Len(t, got.Media, 1)
		assert.NotEmpty(t, got.Media[0].FileID)
		assert.False(t, got.Media[0].AttachedAt.IsZero())

		got, err = s.Entries().AttachMedia(ctx, first.EntryID, model.MediaAttachment{FileID: "f2", FileType: "book"})
		require.NoError(t, err)
		assert.Len(t, got.Media, 2)

		_, err = s.Entries().AttachMedia(ctx, "missing", model.MediaAttachment{FileType: "note"})
		assert.True(t, model.IsNotFoundError(err))
	})

	t.Run("top songs by mood", func(t *testing.T) {
		top, err := s.Entries().TopSongsByMood(ctx, 3)
		require.NoError(t, err)
		var calm *model.MoodTopSongs
		for i := range top {
			if top[i].Mood == model.MoodCalm {
				calm = &top[i]
			}
		}
		require.NotNil(t, calm)
		require.NotEmpty(t, calm.TopSongs)
		assert.Equal(t, "Weightless", calm.TopSongs[0].Title)
		assert.GreaterOrEqual(t, calm.TopSongs[0].Count, int64(1))
	})

	t.Run("songs", func(t *testing.T) {
		prefix := uuid.New().String()[:8]
		for _, id := range []string{"c", "a", "b"} {
			_, err := s.Songs().Insert(ctx, &model.Song{SongID: prefix + "-" + id, Title: "T" + id, Artist: "A", Mood: model.MoodSad})
			require.NoError(t, err)
		}
		_, err := s.Songs().Insert(ctx, &model.Song{SongID: prefix + "-x", Title: "X", Mood: "angry"})
		assert.True(t, model.IsValidationError(err))

		// upsert keeps a single row
		_, err = s.Songs().Insert(ctx, &model.Song{SongID: prefix + "-a", Title: "Ta2", Artist: "A", Mood: model.MoodSad})
		require.NoError(t, err)
		got, err := s.Songs().Get(ctx, prefix+"-a")
		require.NoError(t, err)
		assert.Equal(t, "Ta2", got.Title)

		many, err := s.Songs().GetMany(ctx, []string{prefix + "-a", prefix + "-missing"})
		require.NoError(t, err)
		assert.Len(t, many, 1)
		assert.Contains(t, many, prefix+"-a")

		lst, err := s.Songs().ListByMood(ctx, model.MoodSad, []string{prefix + "-b"}, 0)
		require.NoError(t, err)
		var ids []string
		for _, song := range lst {
			if len(song.SongID) > len(prefix) && song.SongID[:len(prefix)] == prefix {
				ids = append(ids, song.SongID)
			}
		}
		assert.Equal(t, []string{prefix + "-a", prefix + "-c"}, ids)

		_, err = s.Songs().Get(ctx, "missing")
		assert.True(t, model.IsNotFoundError(err))
	})

	t.Run("disconnect", func(t *testing.T) {
		require.NoError(t, s.Disconnect(ctx))
		assert.ErrorIs(t, s.HealthPing(ctx), model.ErrNotConnected)
		_, err := s.Users().Get(ctx, userID)
		assert.ErrorIs(t, err, model.ErrNotConnected)
	})
}
