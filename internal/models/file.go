package models

import "time"

// FileInfo is the user-facing view of one uploaded document, derived from the
// chunk records sharing its file ID. It is never stored directly.
type FileInfo struct {
	ID           string    `json:"id"`
	StoredName   string    `json:"filename"`
	OriginalName string    `json:"original_filename"`
	FileType     string    `json:"file_type"`
	SizeBytes    int64     `json:"file_size"`
	UploadedAt   time.Time `json:"upload_time"`
	ChunkCount   int       `json:"chunk_count"`
}
