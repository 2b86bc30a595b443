package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/chishiki/internal/config"
	"github.com/hyperjump/chishiki/internal/extract"
	"github.com/hyperjump/chishiki/internal/models"
	"github.com/hyperjump/chishiki/internal/store"
)

const (
	defaultSearchResults  = 5
	maxSearchResults      = 20
	defaultContextResults = 3
)

// Service orchestrates uploads, listing, rename, delete, and retrieval over
// the knowledge store.
type Service struct {
	store     store.Store
	extractor *extract.Extractor
	chunker   *Chunker
	upload    *config.UploadConfig
	uploadDir string
	logger    *zap.Logger
}

// NewService builds a Service. The upload directory is created if missing.
func NewService(s store.Store, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Upload.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Service{
		store:     s,
		extractor: extract.NewExtractor(),
		chunker:   NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap),
		upload:    &cfg.Upload,
		uploadDir: cfg.Upload.Dir,
		logger:    logger,
	}, nil
}

// Upload validates, persists, extracts, chunks, and stores one document.
// Validation happens before any I/O. If anything fails after the physical
// file is written, the file is removed best-effort before the error surfaces.
func (s *Service) Upload(ctx context.Context, filename string, content []byte) (*models.FileInfo, error) {
	filename = filepath.Base(filename)
	if filename == "" || filename == "." {
		return nil, validationf("filename is required")
	}
	if len([]rune(filename)) > s.upload.MaxFilenameLength {
		return nil, validationf("filename exceeds %d characters", s.upload.MaxFilenameLength)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.upload.ExtensionAllowed(ext) {
		return nil, validationf("file type %q is not supported", ext)
	}
	if int64(len(content)) > s.upload.MaxBytes() {
		return nil, validationf("file exceeds %d MB limit", s.upload.MaxFileSizeMB)
	}

	fileID := uuid.New().String()
	storedName := fileID + ext
	path := filepath.Join(s.uploadDir, storedName)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return nil, fmt.Errorf("save uploaded file: %w", err)
	}

	text, err := s.extractor.ExtractBytes(content, ext)
	if err != nil {
		s.removeUpload(path)
		return nil, &ExtractionError{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		s.removeUpload(path)
		return nil, &ExtractionError{Err: fmt.Errorf("no extractable text in %s", filename)}
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		s.removeUpload(path)
		return nil, &ExtractionError{Err: fmt.Errorf("no processable text in %s", filename)}
	}

	now := time.Now().UTC()
	records := make([]*models.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = &models.ChunkRecord{
			ChunkID:      fmt.Sprintf("%s_chunk_%d", fileID, i),
			FileID:       fileID,
			Text:         chunk,
			ChunkIndex:   i,
			StoredName:   storedName,
			OriginalName: filename,
			FileType:     ext,
			SizeBytes:    int64(len(content)),
			UploadedAt:   now,
		}
	}
	if err := s.store.Add(ctx, records); err != nil {
		s.removeUpload(path)
		return nil, fmt.Errorf("store document: %w", err)
	}

	s.logger.Info("document uploaded",
		zap.String("file_id", fileID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
	)
	info := records[0].FileInfo()
	info.ChunkCount = len(records)
	return info, nil
}

// List returns all known files, newest upload first.
func (s *Service) List(ctx context.Context) ([]*models.FileInfo, error) {
	records, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	files := AggregateFiles(records)
	SortFilesNewestFirst(files)
	return files, nil
}

// Delete removes a file's chunks from the store, then its physical file.
// Store deletion comes first; a physical-file failure afterwards is logged
// and the delete still reports success, since the store alone decides what
// is listed. The leftover file is a latent leak, accepted as such.
func (s *Service) Delete(ctx context.Context, fileID string) error {
	records, err := s.store.GetByFileID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("look up file %s: %w", fileID, err)
	}
	if len(records) == 0 {
		return ErrFileNotFound
	}
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ChunkID
	}
	if err := s.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	path := filepath.Join(s.uploadDir, records[0].StoredName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("uploaded file not removed", zap.String("path", path), zap.Error(err))
	}
	s.logger.Info("document deleted", zap.String("file_id", fileID), zap.Int("chunks", len(ids)))
	return nil
}

// Rename replaces the original filename on every chunk record of the file.
// The fan-out is one update per record, not atomic: a store failure partway
// leaves a mix of old and new names. Stored name, text, and indices are
// untouched.
func (s *Service) Rename(ctx context.Context, fileID, newName string) (*models.FileInfo, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, validationf("new name is required")
	}
	if len([]rune(newName)) > s.upload.MaxFilenameLength {
		return nil, validationf("filename exceeds %d characters", s.upload.MaxFilenameLength)
	}
	records, err := s.store.GetByFileID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("look up file %s: %w", fileID, err)
	}
	if len(records) == 0 {
		return nil, ErrFileNotFound
	}
	for _, rec := range records {
		rec.OriginalName = newName
		if err := s.store.UpdateMetadata(ctx, rec); err != nil {
			return nil, fmt.Errorf("rename file %s: %w", fileID, err)
		}
	}
	s.logger.Info("document renamed",
		zap.String("file_id", fileID),
		zap.String("new_name", newName),
	)
	info := records[0].FileInfo()
	info.ChunkCount = len(records)
	return info, nil
}

// Search runs similarity retrieval. Empty queries are rejected; the limit
// defaults to 5 and is capped at 20.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*models.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationf("query is required")
	}
	if limit <= 0 {
		limit = defaultSearchResults
	}
	if limit > maxSearchResults {
		limit = maxSearchResults
	}
	hits, err := s.store.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// Context returns matching chunk texts joined by blank lines plus the
// de-duplicated original filenames they came from. Any failure degrades to
// an empty result: this feeds a best-effort augmentation path where an
// empty context beats a blocked caller.
func (s *Service) Context(ctx context.Context, query string, limit int) (string, []string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}
	if limit <= 0 {
		limit = defaultContextResults
	}
	if limit > maxSearchResults {
		limit = maxSearchResults
	}
	hits, err := s.store.Query(ctx, query, limit)
	if err != nil {
		s.logger.Warn("context retrieval failed", zap.String("query", query), zap.Error(err))
		return "", nil
	}
	texts := make([]string, 0, len(hits))
	var sources []string
	seen := make(map[string]bool)
	for _, hit := range hits {
		texts = append(texts, hit.Document)
		name := hit.Metadata.OriginalName
		if !seen[name] {
			seen[name] = true
			sources = append(sources, name)
		}
	}
	return strings.Join(texts, "\n\n"), sources
}

func (s *Service) removeUpload(path string) {
	if err := os.Remove(path); err != nil {
		s.logger.Warn("cleanup of uploaded file failed", zap.String("path", path), zap.Error(err))
	}
}
