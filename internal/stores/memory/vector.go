package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/isaac-evs/side-b/internal/embeddings"
	"github.com/isaac-evs/side-b/internal/stores"
)

type vectorDoc struct {
	doc stores.Document
	vec []float32
	seq int
}

// Vector is a brute-force cosine index. Adding an existing id replaces the document
// but keeps its original insertion position.
type Vector struct {
	lifecycle

	embedder embeddings.Provider

	mu          sync.RWMutex
	collections map[string]map[string]*vectorDoc
	seq         int
}

func NewVector(embedder embeddings.Provider) *Vector {
	return &Vector{embedder: embedder, collections: make(map[string]map[string]*vectorDoc)}
}

func (v *Vector) Add(ctx context.Context, collection string, doc stores.Document) error {
	if err := v.check(); err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	vec, err := v.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("embed %s: %w", doc.ID, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.collections[collection]
	if !ok {
		c = make(map[string]*vectorDoc)
		v.collections[collection] = c
	}
	if prev, ok := c[doc.ID]; ok {
		prev.doc, prev.vec = doc, vec
		return nil
	}
	v.seq++
	c[doc.ID] = &vectorDoc{doc: doc, vec: vec, seq: v.seq}
	return nil
}

func (v *Vector) Query(ctx context.Context, collection, text string, filter map[string]string, k int) ([]stores.Hit, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	q, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		hit stores.Hit
		seq int
	}
	v.mu.RLock()
	var all []scored
	for _, d := range v.collections[collection] {
		if !matches(d.doc.Metadata, filter) {
			continue
		}
		all = append(all, scored{
			hit: stores.Hit{ID: d.doc.ID, Distance: 1 - cosine(q, d.vec), Metadata: copyMeta(d.doc.Metadata)},
			seq: d.seq,
		})
	}
	v.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].hit.Distance != all[j].hit.Distance {
			return all[i].hit.Distance < all[j].hit.Distance
		}
		return all[i].seq < all[j].seq
	})
	if len(all) > k {
		all = all[:k]
	}
	out := make([]stores.Hit, len(all))
	for i, s := range all {
		out[i] = s.hit
	}
	return out, nil
}

func (v *Vector) Count(_ context.Context, collection string) (int, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.collections[collection]), nil
}

func matches(meta, filter map[string]string) bool {
	for k, want := range filter {
		if meta[k] != want {
			return false
		}
	}
	return true
}

func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
