package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/chishiki/internal/models"
)

// recordDB holds the flat chunk-record table. Every row carries the full
// denormalized file metadata, so a row is readable without any other row.
type recordDB struct {
	db *sql.DB
}

// openRecordDB opens or creates the record database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func openRecordDB(dbPath string) (*recordDB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create record directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open record database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL,
		text TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		stored_name TEXT NOT NULL,
		original_name TEXT NOT NULL,
		file_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		uploaded_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_file_id ON chunks(file_id);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &recordDB{db: db}, nil
}

const recordColumns = "chunk_id, file_id, text, chunk_index, stored_name, original_name, file_type, size_bytes, uploaded_at"

func scanRecord(row interface{ Scan(...interface{}) error }) (*models.ChunkRecord, error) {
	var rec models.ChunkRecord
	err := row.Scan(
		&rec.ChunkID, &rec.FileID, &rec.Text, &rec.ChunkIndex,
		&rec.StoredName, &rec.OriginalName, &rec.FileType,
		&rec.SizeBytes, &rec.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// insertRecords inserts a batch of chunk records in one transaction.
func (s *KnowledgeStore) insertRecords(ctx context.Context, records []*models.ChunkRecord) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.ChunkID, rec.FileID, rec.Text, rec.ChunkIndex,
			rec.StoredName, rec.OriginalName, rec.FileType,
			rec.SizeBytes, rec.UploadedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetAll returns every chunk record in insertion order.
func (s *KnowledgeStore) GetAll(ctx context.Context) ([]*models.ChunkRecord, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ChunkRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetByFileID returns all chunk records for a file ordered by chunk index.
// A file with no records yields an empty slice, not an error.
func (s *KnowledgeStore) GetByFileID(ctx context.Context, fileID string) ([]*models.ChunkRecord, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM chunks WHERE file_id = ? ORDER BY chunk_index`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ChunkRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// getRecord returns a single chunk record by ID.
func (s *KnowledgeStore) getRecord(ctx context.Context, chunkID string) (*models.ChunkRecord, error) {
	rec, err := scanRecord(s.db.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM chunks WHERE chunk_id = ?`, chunkID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s", chunkID)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateMetadata rewrites the file-metadata mirror of one record. Text and
// chunk index are deliberately not part of the update.
func (s *KnowledgeStore) UpdateMetadata(ctx context.Context, rec *models.ChunkRecord) error {
	result, err := s.db.db.ExecContext(ctx,
		`UPDATE chunks SET stored_name = ?, original_name = ?, file_type = ?, size_bytes = ?, uploaded_at = ?
		 WHERE chunk_id = ?`,
		rec.StoredName, rec.OriginalName, rec.FileType, rec.SizeBytes, rec.UploadedAt, rec.ChunkID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("chunk not found: %s", rec.ChunkID)
	}
	return nil
}

// deleteRecords removes the given chunk IDs from the record table.
func (s *KnowledgeStore) deleteRecords(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE chunk_id IN (`+placeholders+`)`, args...)
	return err
}

// Count returns the number of stored chunk records.
func (s *KnowledgeStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the underlying database connection.
func (r *recordDB) Close() error {
	return r.db.Close()
}
