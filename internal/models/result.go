package models

// Hit is a single similarity-search result. Distance is reported by the
// vector store; lower means more similar.
type Hit struct {
	Document string       `json:"document"`
	Metadata *ChunkRecord `json:"metadata"`
	Distance float64      `json:"distance"`
}

// UploadResponse is returned by upload and rename.
type UploadResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	File    *FileInfo `json:"file,omitempty"`
}

// FileListResponse is the response for the file listing endpoint.
type FileListResponse struct {
	Success bool        `json:"success"`
	Files   []*FileInfo `json:"files"`
	Total   int         `json:"total"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Success bool   `json:"success"`
	Results []*Hit `json:"results"`
	Query   string `json:"query"`
}

// DeleteResponse acknowledges a file deletion.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ContextResponse carries concatenated chunk texts for chat augmentation,
// plus the de-duplicated original filenames they came from.
type ContextResponse struct {
	Context string   `json:"context"`
	Sources []string `json:"sources"`
}
