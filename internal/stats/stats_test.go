package stats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
	"github.com/isaac-evs/side-b/internal/stores/memory"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestComputeStreak(t *testing.T) {
	now := date("2024-05-10 18:00")
	today, yesterday := date("2024-05-10 09:00"), date("2024-05-09 22:00")
	cases := []struct {
		name  string
		times []time.Time
		want  int
	}{
		{"empty", nil, 0},
		{"three consecutive ending today", []time.Time{date("2024-05-10 08:00"), date("2024-05-09 08:00"), date("2024-05-08 08:00")}, 3},
		{"only an old day", []time.Time{date("2024-05-08 08:00")}, 0},
		{"today and yesterday then gap", []time.Time{today, yesterday, date("2024-05-07 10:00")}, 2},
		{"today then gap", []time.Time{today, date("2024-05-08 10:00")}, 1},
		{"yesterday and day before", []time.Time{yesterday, date("2024-05-08 10:00")}, 2},
		{"yesterday only", []time.Time{yesterday}, 1},
		{"duplicates collapse", []time.Time{today, today.Add(time.Hour), yesterday, yesterday}, 2},
		{"unordered input", []time.Time{date("2024-05-08 08:00"), today, yesterday}, 3},
		{"future day breaks", []time.Time{date("2024-05-11 08:00"), today}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeStreak(tc.times, now, time.UTC))
		})
	}
}

func TestComputeStreak_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := date("2024-05-10 03:00") // still 05-09 in loc
	times := []time.Time{date("2024-05-10 01:00"), date("2024-05-08 20:00")}
	assert.Equal(t, 1, ComputeStreak(times, now, time.UTC))
	assert.Equal(t, 2, ComputeStreak(times, now, loc))
}

func TestThisWeek(t *testing.T) {
	now := date("2024-05-10 12:00") // Friday
	times := []time.Time{
		date("2024-05-10 08:00"),
		date("2024-05-10 09:00"),
		date("2024-05-06 00:00"), // Monday
		date("2024-05-05 23:59"), // Sunday before
	}
	assert.Equal(t, 3, ThisWeek(times, now, time.UTC))
	assert.Equal(t, 3, ThisWeek(times, date("2024-05-06 10:00"), time.UTC))
	assert.Equal(t, 0, ThisWeek(nil, now, time.UTC))

	sunday := date("2024-05-12 10:00")
	assert.Equal(t, 3, ThisWeek(times, sunday, time.UTC))
}

func TestGetUserStats(t *testing.T) {
	ctx := context.Background()
	tl := memory.NewTimeline()
	require.NoError(t, tl.Connect(ctx))
	now := date("2024-05-10 18:00")
	for _, at := range []time.Time{date("2024-05-10 09:00"), date("2024-05-09 09:00"), date("2024-04-30 09:00")} {
		require.NoError(t, tl.AppendEntry(ctx, model.EntryRow{UserID: "u", EntryID: "e", CreatedAt: at}))
		require.NoError(t, tl.Increment(ctx, model.MonthlyCounter("u", at, model.FieldEntries), 1))
	}
	for _, id := range []string{"s1", "s1", "s2"} {
		require.NoError(t, tl.Increment(ctx, model.Counter{Kind: model.CounterSongFrequency, UserID: "u", Key: id}, 1))
	}

	a := New(tl, nil, zerolog.Nop(), WithClock(func() time.Time { return now }))
	assert.Equal(t, model.Stats{Streak: 2, SongsLogged: 3, ThisMonth: 2, ThisWeek: 2}, a.GetUserStats(ctx, "u"))
	assert.Equal(t, model.Stats{}, a.GetUserStats(ctx, "nobody"))
}

type failingTimeline struct {
	stores.Timeline
	failMonthly bool
}

func (f failingTimeline) EntryTimes(context.Context, string, int) ([]time.Time, error) {
	if f.failMonthly {
		return []time.Time{time.Now()}, nil
	}
	return nil, errors.New("timeout")
}

func (f failingTimeline) Monthly(context.Context, string, string) (model.MonthlyStat, error) {
	return model.MonthlyStat{}, errors.New("timeout")
}

func (f failingTimeline) SelectionFrequency(context.Context, string) (map[string]int64, error) {
	return nil, errors.New("timeout")
}

func TestGetUserStats_ZeroOnFailure(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, model.Stats{}, New(failingTimeline{}, nil, zerolog.Nop()).GetUserStats(ctx, "u"))
	assert.Equal(t, model.Stats{}, New(failingTimeline{failMonthly: true}, nil, zerolog.Nop()).GetUserStats(ctx, "u"))
	assert.Equal(t, model.Stats{}, New(nil, nil, zerolog.Nop()).GetUserStats(ctx, "u"))

	tl := memory.NewTimeline()
	require.NoError(t, tl.Connect(ctx))
	inactive := New(tl, nil, zerolog.Nop(), WithActive(func(string) bool { return false }))
	assert.Equal(t, model.Stats{}, inactive.GetUserStats(ctx, "u"))
}

type fakeGraph struct {
	stores.Graph
	data string
	err  error
	vars map[string]string
}

func (f *fakeGraph) Query(_ context.Context, _ string, vars map[string]string, out any) error {
	f.vars = vars
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.data), out)
}

func TestGetUserInsights(t *testing.T) {
	g := &fakeGraph{data: `{"user":[{"username":"ana","entries":[
		{"entry_id":"1","has_mood":{"mood_name":"sad"},"selected_song":{"song_id":"s1","title":"Hurt","artist":"Johnny Cash"}},
		{"entry_id":"2","has_mood":{"mood_name":"sad"},"selected_song":{"song_id":"s2","title":"Creep","artist":"Radiohead"}},
		{"entry_id":"3","has_mood":{"mood_name":"joy"},"selected_song":{"song_id":"s3","title":"Lucky","artist":"Radiohead"}}
	]}]}`}
	a := New(nil, g, zerolog.Nop(), WithTopArtists(1))
	got := a.GetUserInsights(context.Background(), "u1")
	assert.Equal(t, map[string]string{"userId": "u1"}, g.vars)
	assert.Equal(t, 3, got.TotalEntries)
	assert.Equal(t, []model.NamedCount{{Name: "Radiohead", Value: 2}}, got.TopArtists)
	assert.Equal(t, []model.NamedCount{{Name: "sad", Value: 2}, {Name: "joy", Value: 1}}, got.TopMoods)
	assert.Len(t, got.Links, 3)
}

func TestGetUserInsights_ZeroOnFailure(t *testing.T) {
	a := New(nil, &fakeGraph{err: errors.New("dgraph down")}, zerolog.Nop())
	got := a.GetUserInsights(context.Background(), "u1")
	assert.Zero(t, got.TotalEntries)
	assert.NotNil(t, got.TopMoods)

	got = New(nil, nil, zerolog.Nop()).GetUserInsights(context.Background(), "u1")
	assert.NotNil(t, got.Links)
}

func TestGetSongHistory(t *testing.T) {
	ctx := context.Background()
	tl := memory.NewTimeline()
	require.NoError(t, tl.Connect(ctx))
	first, last := date("2024-05-01 08:00"), date("2024-05-09 21:30")
	for _, at := range []time.Time{first, last} {
		require.NoError(t, tl.Increment(ctx, model.Counter{Kind: model.CounterSongFrequency, UserID: "u", Key: "s1"}, 1))
		require.NoError(t, tl.MarkSelected(ctx, "u", "s1", at))
	}

	a := New(tl, nil, zerolog.Nop())
	got := a.GetSongHistory(ctx, "u", "s1")
	assert.Equal(t, int64(2), got.Count)
	require.NotNil(t, got.First)
	require.NotNil(t, got.Last)
	assert.True(t, first.Equal(*got.First))
	assert.True(t, last.Equal(*got.Last))

	none := a.GetSongHistory(ctx, "u", "s2")
	assert.Equal(t, model.SongHistory{SongID: "s2"}, none)
	assert.Equal(t, model.SongHistory{SongID: "s1"}, New(failingTimeline{}, nil, zerolog.Nop()).GetSongHistory(ctx, "u", "s1"))
}
