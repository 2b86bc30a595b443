// Package embedding provides text embedding for chunk storage and queries.
package embedding

import "context"

// Embedder produces vector embeddings for text. Embed is used for queries and
// EmbedBatch for stored documents; implementations may prefix the two
// differently, as retrieval models recommend.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
