// Package weaviate is the cloud Vector store. Classes use vectorizer "none";
// vectors come from the configured embeddings.Provider.
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	wv "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/isaac-evs/side-b/internal/embeddings"
	"github.com/isaac-evs/side-b/internal/model"
	"github.com/isaac-evs/side-b/internal/stores"
)

const (
	propDocID = "docId"
	propText  = "text"
)

// classSpec maps a collection onto a Weaviate class and its metadata properties.
type classSpec struct {
	class string
	meta  []string
}

var classes = map[string]classSpec{
	stores.CollectionAnchors: {class: "MoodAnchor", meta: []string{"mood", "seq", "version"}},
	stores.CollectionSongs:   {class: "SongVector", meta: []string{"mood", "title", "artist"}},
	stores.CollectionEntries: {class: "JournalEntry", meta: []string{"userId", "date", "mood", "songTitle", "songArtist"}},
}

func classFor(collection string) (classSpec, error) {
	c, ok := classes[collection]
	if !ok {
		return classSpec{}, fmt.Errorf("unknown collection %q", collection)
	}
	return c, nil
}

// objectID derives a stable Weaviate id from the document id so re-adding replaces.
func objectID(collection, docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(collection+"/"+docID)).String()
}

// Store implements stores.Vector.
type Store struct {
	host     string
	scheme   string
	embedder embeddings.Provider
	log      zerolog.Logger

	mu     sync.RWMutex
	client *wv.Client
}

// New creates a store for host (host:port, optional scheme prefix).
func New(host string, embedder embeddings.Provider, log zerolog.Logger) *Store {
	scheme := "http"
	switch {
	case strings.HasPrefix(host, "https://"):
		scheme, host = "https", strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
	}
	return &Store{host: host, scheme: scheme, embedder: embedder, log: log.With().Str("store", "weaviate").Logger()}
}

func (s *Store) Connect(ctx context.Context) error {
	if s.host == "" {
		return fmt.Errorf("weaviate host is empty")
	}
	cl, err := wv.NewClient(wv.Config{Scheme: s.scheme, Host: s.host})
	if err != nil {
		return err
	}
	if _, err := cl.Misc().MetaGetter().Do(ctx); err != nil {
		return fmt.Errorf("weaviate meta: %w", err)
	}
	s.mu.Lock()
	s.client = cl
	s.mu.Unlock()
	return nil
}

// Initialize creates any missing class.
func (s *Store) Initialize(ctx context.Context) error {
	cl, err := s.conn()
	if err != nil {
		return err
	}
	for _, c := range classes {
		if err := ensureClass(ctx, cl, classDefinition(c)); err != nil {
			return err
		}
	}
	return nil
}

func classDefinition(c classSpec) *models.Class {
	props := []*models.Property{
		{Name: propDocID, DataType: []string{"text"}, Tokenization: "field"},
		{Name: propText, DataType: []string{"text"}},
	}
	for _, m := range c.meta {
		props = append(props, &models.Property{Name: m, DataType: []string{"text"}, Tokenization: "field"})
	}
	return &models.Class{Class: c.class, Vectorizer: "none", Properties: props}
}

func ensureClass(ctx context.Context, cl *wv.Client, desired *models.Class) error {
	exists, err := cl.Schema().ClassExistenceChecker().WithClassName(desired.Class).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", desired.Class, err)
	}
	if exists {
		return nil
	}
	if err := cl.Schema().ClassCreator().WithClass(desired).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", desired.Class, err)
	}
	return nil
}

// HealthPing calls /v1/meta.
func (s *Store) HealthPing(ctx context.Context) error {
	cl, err := s.conn()
	if err != nil {
		return err
	}
	_, err = cl.Misc().MetaGetter().Do(ctx)
	return err
}

func (s *Store) Disconnect(context.Context) error {
	s.mu.Lock()
	s.client = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) conn() (*wv.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, model.ErrNotConnected
	}
	return s.client, nil
}

// Add embeds doc.Text and writes the object under a deterministic id.
func (s *Store) Add(ctx context.Context, collection string, doc stores.Document) error {
	cl, err := s.conn()
	if err != nil {
		return err
	}
	c, err := classFor(collection)
	if err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	vec, err := s.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("embed %s: %w", doc.ID, err)
	}
	res, err := cl.Batch().ObjectsBatcher().WithObjects(newObject(c, collection, doc, vec)).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate upsert %s: %w", doc.ID, err)
	}
	return batchError(res)
}

// newObject builds the Weaviate object for doc; batching an existing id replaces it.
func newObject(c classSpec, collection string, doc stores.Document, vec []float32) *models.Object {
	props := map[string]any{propDocID: doc.ID, propText: doc.Text}
	for k, v := range doc.Metadata {
		props[k] = v
	}
	return &models.Object{
		Class:      c.class,
		ID:         strfmt.UUID(objectID(collection, doc.ID)),
		Properties: props,
		Vector:     vec,
	}
}

func batchError(res []models.ObjectsGetResponse) error {
	for _, r := range res {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil && e.Message != "" {
				return fmt.Errorf("weaviate object %s: %s", r.ID, e.Message)
			}
		}
	}
	return nil
}

// Query runs nearVector with an optional conjunctive equality filter.
func (s *Store) Query(ctx context.Context, collection, text string, filter map[string]string, k int) ([]stores.Hit, error) {
	cl, err := s.conn()
	if err != nil {
		return nil, err
	}
	c, err := classFor(collection)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fields := []gql.Field{{Name: propDocID}}
	for _, m := range c.meta {
		fields = append(fields, gql.Field{Name: m})
	}
	fields = append(fields, gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "distance"}}})

	req := cl.GraphQL().Get().
		WithClassName(c.class).
		WithNearVector(cl.GraphQL().NearVectorArgBuilder().WithVector(vec)).
		WithLimit(k).
		WithFields(fields...)
	if where := whereFilter(filter); where != nil {
		req = req.WithWhere(where)
	}
	resp, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate graphql: %s", formatGraphQLErrors(resp.Errors))
	}
	return parseHits(resp.Data, c), nil
}

// Count aggregates the object count of a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	cl, err := s.conn()
	if err != nil {
		return 0, err
	}
	c, err := classFor(collection)
	if err != nil {
		return 0, err
	}
	resp, err := cl.GraphQL().Aggregate().
		WithClassName(c.class).
		WithFields(gql.Field{Name: "meta", Fields: []gql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(resp.Errors) > 0 {
		return 0, fmt.Errorf("weaviate graphql: %s", formatGraphQLErrors(resp.Errors))
	}
	return parseCount(resp.Data, c.class), nil
}

// whereFilter builds an And of Equal operands, sorted by key for stable requests.
func whereFilter(filter map[string]string) *filters.WhereBuilder {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ops := make([]*filters.WhereBuilder, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, filters.Where().WithPath([]string{k}).WithOperator(filters.Equal).WithValueText(filter[k]))
	}
	if len(ops) == 1 {
		return ops[0]
	}
	return filters.Where().WithOperator(filters.And).WithOperands(ops)
}

func parseHits(data map[string]models.JSONObject, c classSpec) []stores.Hit {
	getData, ok := data["Get"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := getData[c.class].([]any)
	if !ok {
		return []stores.Hit{}
	}
	out := make([]stores.Hit, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		hit := stores.Hit{Metadata: map[string]string{}}
		hit.ID, _ = m[propDocID].(string)
		for _, k := range c.meta {
			if v, ok := m[k].(string); ok {
				hit.Metadata[k] = v
			}
		}
		if add, ok := m["_additional"].(map[string]any); ok {
			switch v := add["distance"].(type) {
			case float64:
				hit.Distance = v
			case string:
				hit.Distance, _ = strconv.ParseFloat(v, 64)
			}
		}
		out = append(out, hit)
	}
	return out
}

func parseCount(data map[string]models.JSONObject, class string) int {
	agg, ok := data["Aggregate"].(map[string]any)
	if !ok {
		return 0
	}
	arr, ok := agg[class].([]any)
	if !ok || len(arr) == 0 {
		return 0
	}
	first, _ := arr[0].(map[string]any)
	meta, _ := first["meta"].(map[string]any)
	switch v := meta["count"].(type) {
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

// formatGraphQLErrors returns compact string with messages extracted for logging.
func formatGraphQLErrors(errs any) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}

var _ stores.Vector = (*Store)(nil)
