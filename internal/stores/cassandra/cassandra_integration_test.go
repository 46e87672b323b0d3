//go:build integration

package cassandra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/isaac-evs/side-b/internal/model"
)

func startCassandra(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cassandra:4.1",
			ExposedPorts: []string{"9042/tcp"},
			Env:          map[string]string{"MAX_HEAP_SIZE": "512M", "HEAP_NEWSIZE": "128M"},
			WaitingFor:   wait.ForLog("Startup complete").WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("cassandra container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9042")
	require.NoError(t, err)

	s := New(Options{Hosts: []string{host + ":" + port.Port()}, Keyspace: "sideb_test", Consistency: "ONE", Timeout: 10 * time.Second})
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Initialize(ctx))
	t.Cleanup(func() { _ = s.Disconnect(ctx) })
	return s
}

func TestCassandraStore_Timeline(t *testing.T) {
	s := startCassandra(t)
	ctx := context.Background()
	require.NoError(t, s.HealthPing(ctx))

	base := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.AddDate(0, 0, -i)
		require.NoError(t, s.AppendEntry(ctx, model.EntryRow{UserID: "u", EntryID: at.Format("e-02"), CreatedAt: at, Text: "t"}))
		require.NoError(t, s.Increment(ctx, model.MonthlyCounter("u", at, model.FieldEntries), 1))
	}
	times, err := s.EntryTimes(ctx, "u", 2)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{base, base.AddDate(0, 0, -1)}, times)

	m, err := s.Monthly(ctx, "u", "2024-05")
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.EntriesCount)

	empty, err := s.Monthly(ctx, "u", "1999-01")
	require.NoError(t, err)
	assert.Zero(t, empty.EntriesCount)

	require.NoError(t, s.Increment(ctx, model.Counter{Kind: model.CounterSongFrequency, UserID: "u", Key: "s1"}, 1))
	require.NoError(t, s.Increment(ctx, model.Counter{Kind: model.CounterSongFrequency, UserID: "u", Key: "s1"}, 1))
	freq, err := s.SelectionFrequency(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"s1": 2}, freq)

	require.NoError(t, s.MarkSelected(ctx, "u", "s1", base.AddDate(0, 0, -2)))
	require.NoError(t, s.MarkSelected(ctx, "u", "s1", base))
	span, err := s.SelectionSpan(ctx, "u", "s1")
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, -2), span.First)
	assert.Equal(t, base, span.Last)

	require.NoError(t, s.AppendSelection(ctx, model.SelectionRow{UserID: "u", EntryID: "e", SongID: "s1", Mood: "calm", SelectedAt: base}))
	require.NoError(t, s.AppendMedia(ctx, model.MediaRow{UserID: "u", EntryID: "e", FileID: "f", FileType: "image", AttachedAt: base}))
}
