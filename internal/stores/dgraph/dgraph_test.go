package dgraph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaac-evs/side-b/internal/graph"
	"github.com/isaac-evs/side-b/internal/model"
)

type fakeDgraph struct {
	mu        sync.Mutex
	schema    string
	mutations []map[string]any
	queries   []map[string]any
	commitNow []string
	healthy   atomic.Bool
	failQuery atomic.Bool
}

func (f *fakeDgraph) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if !f.healthy.Load() {
			status = "unhealthy"
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{{"status": status}})
	})
	mux.HandleFunc("/alter", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.schema = string(b)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"data":{"code":"Success"}}`))
	})
	mux.HandleFunc("/mutate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.mutations = append(f.mutations, body)
		f.commitNow = append(f.commitNow, r.URL.Query().Get("commitNow"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"data":{"code":"Success","uids":{}}}`))
	})
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.queries = append(f.queries, body)
		f.mu.Unlock()
		if f.failQuery.Load() {
			_, _ = w.Write([]byte(`{"errors":[{"message":"while lexing"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"user":[{"username":"ana","entries":[{"entry_id":"e1","has_mood":{"mood_name":"joy"}}]}]}}`))
	})
	return mux
}

func newTestStore(t *testing.T) (*Store, *fakeDgraph) {
	t.Helper()
	f := &fakeDgraph{}
	f.healthy.Store(true)
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	s := New(srv.URL, time.Second)
	require.NoError(t, s.Connect(context.Background()))
	return s, f
}

func TestStore_InitializeAppliesSchema(t *testing.T) {
	s, f := newTestStore(t)
	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, graph.Schema, f.schema)
}

func TestStore_UpsertSendsUpsertBlock(t *testing.T) {
	s, f := newTestStore(t)
	mu, err := graph.NewEntryMutation(&model.Entry{EntryID: "e1", UserID: "u1", Mood: "joy", Date: time.Now()}, "ana")
	require.NoError(t, err)
	require.NoError(t, s.Upsert(context.Background(), mu))

	require.Len(t, f.mutations, 1)
	assert.Equal(t, "true", f.commitNow[0])
	assert.Equal(t, mu.Query, f.mutations[0]["query"])
	blocks := f.mutations[0]["mutations"].([]any)
	require.Len(t, blocks, 1)
	set := blocks[0].(map[string]any)["set"].([]any)
	assert.Len(t, set, 3)

	// empty mutations never hit the wire
	require.NoError(t, s.Upsert(context.Background(), graph.Mutation{}))
	assert.Len(t, f.mutations, 1)
}

func TestStore_QueryDecodesData(t *testing.T) {
	s, f := newTestStore(t)
	var res graph.InsightsResult
	require.NoError(t, s.Query(context.Background(), graph.InsightsQuery, map[string]string{"userId": "u1"}, &res))
	require.Len(t, res.User, 1)
	assert.Equal(t, "ana", res.User[0].Username)
	assert.Equal(t, map[string]any{"$userId": "u1"}, f.queries[0]["variables"])

	f.failQuery.Store(true)
	err := s.Query(context.Background(), "{ bad", nil, &res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "while lexing")
}

func TestStore_HealthAndLifecycle(t *testing.T) {
	s, f := newTestStore(t)
	ctx := context.Background()
	assert.NoError(t, s.HealthPing(ctx))

	f.healthy.Store(false)
	assert.Error(t, s.HealthPing(ctx))

	require.NoError(t, s.Disconnect(ctx))
	assert.ErrorIs(t, s.HealthPing(ctx), model.ErrNotConnected)
	assert.ErrorIs(t, s.Upsert(ctx, graph.Mutation{Set: []any{1}}), model.ErrNotConnected)

	assert.Error(t, New("", 0).Connect(ctx))
}
