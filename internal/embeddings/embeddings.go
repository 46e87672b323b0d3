// Package embeddings turns text into dense vectors for the vector store.
package embeddings

import "context"

// Provider produces vector representations for text.
// Returned vectors of one provider always share a dimension.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
