//go:build integration

package weaviate

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/isaac-evs/side-b/internal/embeddings/hash"
	"github.com/isaac-evs/side-b/internal/stores"
)

func startWeaviate(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "semitechnologies/weaviate:1.31.4",
			ExposedPorts: []string{"8080/tcp"},
			Env: map[string]string{
				"AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED": "true",
				"DEFAULT_VECTORIZER_MODULE":               "none",
				"PERSISTENCE_DATA_PATH":                   "/var/lib/weaviate",
			},
			WaitingFor: wait.ForHTTP("/v1/.well-known/ready").WithPort("8080/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("weaviate container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "8080/tcp", "")
	require.NoError(t, err)

	s := New(endpoint, hash.New(64), zerolog.Nop())
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))
	t.Cleanup(func() { _ = s.Disconnect(ctx) })
	return s
}

func TestWeaviateStore_AddQueryCount(t *testing.T) {
	s := startWeaviate(t)
	ctx := context.Background()

	docs := []stores.Document{
		{ID: "s1", Text: "rain on a quiet window", Metadata: map[string]string{"mood": "calm", "title": "Rain", "artist": "A"}},
		{ID: "s2", Text: "dance all night in the sun", Metadata: map[string]string{"mood": "joy", "title": "Sun", "artist": "B"}},
		{ID: "s3", Text: "quiet evening by the window", Metadata: map[string]string{"mood": "calm", "title": "Evening", "artist": "C"}},
	}
	for _, d := range docs {
		require.NoError(t, s.Add(ctx, stores.CollectionSongs, d))
	}
	// re-adding replaces
	require.NoError(t, s.Add(ctx, stores.CollectionSongs, docs[0]))

	n, err := s.Count(ctx, stores.CollectionSongs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := s.Query(ctx, stores.CollectionSongs, "quiet window", map[string]string{"mood": "calm"}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "calm", h.Metadata["mood"])
	}
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}
