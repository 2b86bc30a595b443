package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/chishiki/internal/knowledge"
	"github.com/hyperjump/chishiki/internal/models"
)

// apiVersion is reported by the identity endpoint.
const apiVersion = "1.0.0"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"service": "chishiki",
		"version": apiVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	files, err := s.service.List(r.Context())
	if err != nil {
		s.logger.Error("status: list files failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"files":  len(files),
		"chunks": chunks,
		"config": map[string]interface{}{
			"collection":         s.config.Storage.Collection,
			"chunk_size":         s.config.Chunking.Size,
			"chunk_overlap":      s.config.Chunking.Overlap,
			"max_file_size_mb":   s.config.Upload.MaxFileSizeMB,
			"allowed_extensions": s.config.Upload.AllowedExtensions,
		},
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// One extra MB of headroom for the multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Upload.MaxBytes()+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	s.logger.Debug("upload request",
		zap.String("filename", header.Filename),
		zap.Int("size", len(content)),
	)

	info, err := s.service.Upload(r.Context(), header.Filename, content)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.UploadResponse{
		Success: true,
		Message: "File uploaded successfully. Created " + strconv.Itoa(info.ChunkCount) + " text chunks.",
		File:    info,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.List(r.Context())
	if err != nil {
		s.logger.Error("list files failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []*models.FileInfo{}
	}
	s.respondJSON(w, http.StatusOK, &models.FileListResponse{
		Success: true,
		Files:   files,
		Total:   len(files),
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.DeleteResponse{
		Success: true,
		Message: "File deleted successfully",
	})
}

func (s *Server) handleRenameFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	newName := r.URL.Query().Get("new_name")
	info, err := s.service.Rename(r.Context(), id, newName)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.UploadResponse{
		Success: true,
		Message: "File renamed successfully",
		File:    info,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	limit := queryInt(r, "limit")
	hits, err := s.service.Search(r.Context(), query, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if hits == nil {
		hits = []*models.Hit{}
	}
	s.respondJSON(w, http.StatusOK, &models.SearchResponse{
		Success: true,
		Results: hits,
		Query:   query,
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	limit := queryInt(r, "limit")
	context, sources := s.service.Context(r.Context(), query, limit)
	if sources == nil {
		sources = []string{}
	}
	s.respondJSON(w, http.StatusOK, &models.ContextResponse{
		Context: context,
		Sources: sources,
	})
}

// respondServiceError maps service error types to HTTP statuses: validation
// and extraction failures are the client's fault, an unknown file ID is 404,
// everything else is internal.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var vErr *knowledge.ValidationError
	var xErr *knowledge.ExtractionError
	switch {
	case errors.As(err, &vErr):
		s.respondError(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &xErr):
		s.respondError(w, http.StatusBadRequest, xErr.Error())
	case errors.Is(err, knowledge.ErrFileNotFound):
		s.respondError(w, http.StatusNotFound, "file not found")
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
