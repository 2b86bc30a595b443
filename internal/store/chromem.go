package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/hyperjump/chishiki/internal/embedding"
	"github.com/hyperjump/chishiki/internal/models"
)

// KnowledgeStore implements Store on top of chromem-go and SQLite.
//
// chromem-go is an embeddable vector database: it owns the embeddings and the
// nearest-neighbor search, persisted as gob files under the data directory.
// It has no record enumeration or metadata update, so the flat denormalized
// chunk records live in a SQLite table beside it, joined on chunk ID. Both
// live behind this single handle.
type KnowledgeStore struct {
	db         *recordDB
	collection *chromem.Collection
	embedder   embedding.Embedder
	logger     *zap.Logger
}

// Open initializes the knowledge store under dataDir: chromem state in
// dataDir/chroma, chunk records in dataDir/chunks.db. The collection is
// created on first use with the embedder's query function.
func Open(dataDir, collectionName string, embedder embedding.Embedder, logger *zap.Logger) (*KnowledgeStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	chromaDir := filepath.Join(dataDir, "chroma")
	if err := os.MkdirAll(chromaDir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	cdb, err := chromem.NewPersistentDB(chromaDir, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	embedFunc := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	})
	collection, err := cdb.GetOrCreateCollection(collectionName, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collectionName, err)
	}
	rdb, err := openRecordDB(filepath.Join(dataDir, "chunks.db"))
	if err != nil {
		return nil, err
	}
	logger.Info("knowledge store opened",
		zap.String("data_dir", dataDir),
		zap.String("collection", collectionName),
		zap.Int("chunks", collection.Count()),
	)
	return &KnowledgeStore{
		db:         rdb,
		collection: collection,
		embedder:   embedder,
		logger:     logger,
	}, nil
}

// Add embeds and persists a batch of chunk records. Records are inserted into
// the record table in one transaction; if the vector index rejects the batch
// afterwards, the rows are rolled back best-effort so listings stay consistent.
func (s *KnowledgeStore) Add(ctx context.Context, records []*models.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if err := s.insertRecords(ctx, records); err != nil {
		return fmt.Errorf("store chunk records: %w", err)
	}
	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		docs[i] = chromem.Document{
			ID:      rec.ChunkID,
			Content: rec.Text,
			Metadata: map[string]string{
				"file_id":     rec.FileID,
				"chunk_index": strconv.Itoa(rec.ChunkIndex),
			},
			Embedding: embeddings[i],
		}
	}
	// Concurrency 1: the embeddings are already computed above.
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ChunkID
		}
		if delErr := s.deleteRecords(ctx, ids); delErr != nil {
			s.logger.Warn("rollback of chunk records failed", zap.Error(delErr))
		}
		return fmt.Errorf("index chunks: %w", err)
	}
	s.logger.Debug("chunks stored",
		zap.String("file_id", records[0].FileID),
		zap.Int("count", len(records)),
	)
	return nil
}

// Delete removes chunk IDs from the vector index, then the record table. A
// vector-index failure leaves the rows in place so the file stays listed and
// the delete can be retried.
func (s *KnowledgeStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var failures []string
	for _, id := range ids {
		if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
			s.logger.Error("vector delete failed", zap.String("chunk_id", id), zap.Error(err))
			failures = append(failures, id)
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("failed to delete %d of %d chunks from index", len(failures), len(ids))
	}
	if err := s.deleteRecords(ctx, ids); err != nil {
		return fmt.Errorf("delete chunk records: %w", err)
	}
	return nil
}

// Query runs nearest-neighbor retrieval and joins each hit to its full chunk
// record. Hits whose record vanished under a concurrent delete are skipped.
func (s *KnowledgeStore) Query(ctx context.Context, query string, n int) ([]*models.Hit, error) {
	if n <= 0 {
		return nil, fmt.Errorf("result count must be positive, got %d", n)
	}
	// chromem requires nResults <= stored document count.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}
	results, err := s.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	hits := make([]*models.Hit, 0, len(results))
	for _, r := range results {
		rec, err := s.getRecord(ctx, r.ID)
		if err != nil {
			s.logger.Debug("skipping hit without record", zap.String("chunk_id", r.ID))
			continue
		}
		hits = append(hits, &models.Hit{
			Document: r.Content,
			Metadata: rec,
			Distance: 1 - float64(r.Similarity),
		})
	}
	return hits, nil
}

// Close closes the record database. chromem persists incrementally and needs
// no explicit shutdown.
func (s *KnowledgeStore) Close() error {
	return s.db.Close()
}

var _ Store = (*KnowledgeStore)(nil)
