package graph

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaac-evs/side-b/internal/model"
)

func sampleEntry() *model.Entry {
	return &model.Entry{
		EntryID: "e1",
		UserID:  "u1",
		Date:    time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Text:    "a quiet walk",
		Mood:    model.MoodCalm,
		Song:    &model.SongSelection{SongID: "s1", Title: "Weightless", Artist: "Marconi Union", Mood: model.MoodCalm},
		Media:   []model.MediaAttachment{{FileID: "f1", FileType: "image", URL: "https://x/y.png"}},
	}
}

func TestNewEntryMutation_BindsAllNodes(t *testing.T) {
	mu, err := NewEntryMutation(sampleEntry(), "ana")
	require.NoError(t, err)

	assert.Contains(t, mu.Query, `u as var(func: eq(user_id, "u1"))`)
	assert.Contains(t, mu.Query, `m as var(func: eq(mood_name, "calm"))`)
	assert.Contains(t, mu.Query, `s as var(func: eq(song_id, "s1"))`)
	assert.Contains(t, mu.Query, `f0 as var(func: eq(file_id, "f1"))`)
	assert.Empty(t, mu.Cond)
	require.Len(t, mu.Set, 5)

	entry, ok := mu.Set[len(mu.Set)-1].(EntryNode)
	require.True(t, ok)
	assert.Equal(t, "uid(e)", entry.UID)
	assert.Equal(t, "uid(u)", entry.Creator.UID)
	assert.Equal(t, "uid(m)", entry.HasMood.UID)
	assert.Equal(t, "uid(s)", entry.SelectedSong.UID)
	assert.Equal(t, []Ref{{UID: "uid(f0)"}}, entry.Media)
	assert.Equal(t, len("a quiet walk"), entry.TextLength)
}

func TestNewEntryMutation_WithoutSongOrMedia(t *testing.T) {
	e := sampleEntry()
	e.Song = nil
	e.Media = nil
	mu, err := NewEntryMutation(e, "")
	require.NoError(t, err)
	require.Len(t, mu.Set, 3)
	assert.NotContains(t, mu.Query, "song_id")

	raw, err := json.Marshal(mu.Set[2])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "selected_song")
}

func TestNewEntryMutation_Validation(t *testing.T) {
	cases := map[string]func(e *model.Entry){
		"missing entry id": func(e *model.Entry) { e.EntryID = "" },
		"missing user":     func(e *model.Entry) { e.UserID = "" },
		"bad mood":         func(e *model.Entry) { e.Mood = "angry" },
		"zero date":        func(e *model.Entry) { e.Date = time.Time{} },
		"song without id":  func(e *model.Entry) { e.Song.SongID = "" },
		"media without id": func(e *model.Entry) { e.Media[0].FileID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			e := sampleEntry()
			mutate(e)
			_, err := NewEntryMutation(e, "ana")
			require.Error(t, err)
			assert.True(t, model.IsValidationError(err))
		})
	}

	_, err := NewEntryMutation(nil, "")
	assert.True(t, model.IsValidationError(err))
}

func TestNewEntryMutation_QuotesValues(t *testing.T) {
	e := sampleEntry()
	e.UserID = `u"1`
	mu, err := NewEntryMutation(e, "")
	require.NoError(t, err)
	assert.Contains(t, mu.Query, `eq(user_id, "u\"1")`)
}

func TestNewMediaMutation_IsConditional(t *testing.T) {
	mu, err := NewMediaMutation("e1", model.MediaAttachment{FileID: "f9", FileType: "book"})
	require.NoError(t, err)
	assert.Equal(t, "@if(eq(len(e), 1))", mu.Cond)
	require.Len(t, mu.Set, 2)

	raw, err := json.Marshal(mu.Set[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"uid":"uid(e)","entry_has_media":[{"uid":"uid(f)"}]}`, string(raw))

	_, err = NewMediaMutation("", model.MediaAttachment{FileID: "f9", FileType: "book"})
	assert.True(t, model.IsValidationError(err))
	_, err = NewMediaMutation("e1", model.MediaAttachment{FileID: "f9"})
	assert.True(t, model.IsValidationError(err))
}

func TestInsightsResult_Insights(t *testing.T) {
	raw := `{"user":[{"username":"ana","entries":[
		{"entry_id":"1","has_mood":{"mood_name":"calm"},"selected_song":{"song_id":"s1","title":"Weightless","artist":"Marconi Union"}},
		{"entry_id":"2","has_mood":{"mood_name":"calm"},"selected_song":{"song_id":"s1","title":"Weightless","artist":"Marconi Union"}},
		{"entry_id":"3","has_mood":{"mood_name":"joy"},"selected_song":{"song_id":"s2","title":"Happy","artist":"Pharrell"}},
		{"entry_id":"4","has_mood":{"mood_name":"sad"}}
	]}]}`
	var r InsightsResult
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	got := r.Insights(5)
	assert.Equal(t, "ana", got.Username)
	assert.Equal(t, 4, got.TotalEntries)
	assert.Equal(t, []model.NamedCount{{Name: "calm", Value: 2}, {Name: "joy", Value: 1}, {Name: "sad", Value: 1}}, got.TopMoods)
	assert.Equal(t, []model.NamedCount{{Name: "Marconi Union", Value: 2}, {Name: "Pharrell", Value: 1}}, got.TopArtists)
	assert.Equal(t, []model.GraphLink{{Source: "calm", Target: "Weightless"}, {Source: "joy", Target: "Happy"}}, got.Links)
}

func TestInsightsResult_UnknownUser(t *testing.T) {
	got := InsightsResult{}.Insights(5)
	assert.Equal(t, 0, got.TotalEntries)
	assert.NotNil(t, got.TopMoods)
	assert.NotNil(t, got.Links)
}
