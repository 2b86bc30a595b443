// Package models defines core data structures for files, chunks, and search results.
package models

import "time"

// ChunkRecord is the unit actually persisted in the knowledge store. File-level
// metadata is denormalized onto every chunk so each record is self-describing;
// the file itself is only ever reconstructed from its chunks.
type ChunkRecord struct {
	ChunkID      string    `json:"chunk_id"`
	FileID       string    `json:"file_id"`
	Text         string    `json:"-"`
	ChunkIndex   int       `json:"chunk_index"`
	StoredName   string    `json:"filename"`
	OriginalName string    `json:"original_filename"`
	FileType     string    `json:"file_type"`
	SizeBytes    int64     `json:"file_size"`
	UploadedAt   time.Time `json:"upload_time"`
}

// FileInfo returns the file-level view carried by this record, with a zero
// chunk count. Callers aggregating records are responsible for counting.
func (r *ChunkRecord) FileInfo() *FileInfo {
	return &FileInfo{
		ID:           r.FileID,
		StoredName:   r.StoredName,
		OriginalName: r.OriginalName,
		FileType:     r.FileType,
		SizeBytes:    r.SizeBytes,
		UploadedAt:   r.UploadedAt,
	}
}
