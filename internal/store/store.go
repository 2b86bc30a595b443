// Package store persists chunk records and answers similarity queries.
package store

import (
	"context"

	"github.com/hyperjump/chishiki/internal/models"
)

// Store is the knowledge store consumed by the service core. It holds flat,
// self-describing chunk records and provides embedding-backed nearest-neighbor
// retrieval over their text. The core treats it as a black box: one long-lived
// handle, initialized at startup and passed by reference into handlers.
type Store interface {
	// Add persists a batch of chunk records; either all records are stored
	// or none are visible to GetAll.
	Add(ctx context.Context, records []*models.ChunkRecord) error
	// GetAll returns every chunk record, in insertion order.
	GetAll(ctx context.Context) ([]*models.ChunkRecord, error)
	// GetByFileID returns the records sharing a file ID, ordered by chunk index.
	GetByFileID(ctx context.Context, fileID string) ([]*models.ChunkRecord, error)
	// UpdateMetadata rewrites the file-metadata mirror of a single record,
	// leaving its text and chunk index untouched.
	UpdateMetadata(ctx context.Context, rec *models.ChunkRecord) error
	// Delete removes the given chunk IDs from the index and the record set.
	Delete(ctx context.Context, ids []string) error
	// Query returns up to n records ranked by similarity to the query text.
	// Distance is 1 - similarity: lower means more similar.
	Query(ctx context.Context, query string, n int) ([]*models.Hit, error)
	// Count returns the number of stored chunk records.
	Count(ctx context.Context) (int64, error)
	Close() error
}
