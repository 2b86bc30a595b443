package config

import "path/filepath"

// AllowedExtensions is the fixed set of uploadable document types.
var AllowedExtensions = []string{".pdf", ".txt", ".doc", ".docx", ".md"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4001
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./storage/knowledge"
	}
	if cfg.Storage.Collection == "" {
		cfg.Storage.Collection = "knowledge_base"
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = filepath.Join(cfg.Storage.DataDir, "uploads")
	}
	if cfg.Upload.MaxFileSizeMB == 0 {
		cfg.Upload.MaxFileSizeMB = 5
	}
	if cfg.Upload.MaxFilenameLength == 0 {
		cfg.Upload.MaxFilenameLength = 100
	}
	if cfg.Upload.AllowedExtensions == nil {
		cfg.Upload.AllowedExtensions = append([]string(nil), AllowedExtensions...)
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}
}
