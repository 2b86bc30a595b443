// Package config provides configuration loading and structs for the chishiki server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Upload    UploadConfig    `yaml:"upload"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the knowledge store.
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	Collection string `yaml:"collection"`
}

// UploadConfig holds upload validation settings.
type UploadConfig struct {
	Dir               string   `yaml:"dir"`
	MaxFileSizeMB     int      `yaml:"max_file_size_mb"`
	MaxFilenameLength int      `yaml:"max_filename_length"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// MaxBytes returns the upload size limit in bytes.
func (u *UploadConfig) MaxBytes() int64 {
	return int64(u.MaxFileSizeMB) * 1024 * 1024
}

// ExtensionAllowed reports whether ext (with leading dot, any case)
// is in the allowed set.
func (u *UploadConfig) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(ext)
	for _, a := range u.AllowedExtensions {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

// ChunkingConfig holds text chunking settings.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Model    string `yaml:"model"`
	CacheDir string `yaml:"cache_dir"`
}

// Load reads the config file at path (optional), applies defaults, then applies
// environment overrides. A missing file is not an error; env and defaults still
// apply, so the service can run entirely environment-driven.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)

	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir)
	cfg.Upload.Dir = expandPath(cfg.Upload.Dir)
	if cfg.Embedding.CacheDir != "" {
		cfg.Embedding.CacheDir = expandPath(cfg.Embedding.CacheDir)
	}
	return &cfg, nil
}

// applyEnv overrides config fields from CHISHIKI_* environment variables.
// Variable names mirror the service's documented runtime options.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CHISHIKI_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := envInt("CHISHIKI_PORT"); v > 0 {
		cfg.Server.Port = v
	}
	if v := os.Getenv("CHISHIKI_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
		// The upload dir follows the data dir unless overridden separately.
		cfg.Upload.Dir = filepath.Join(v, "uploads")
	}
	if v := os.Getenv("CHISHIKI_UPLOAD_DIR"); v != "" {
		cfg.Upload.Dir = v
	}
	if v := os.Getenv("CHISHIKI_COLLECTION"); v != "" {
		cfg.Storage.Collection = v
	}
	if v := envInt("CHISHIKI_MAX_FILE_SIZE"); v > 0 {
		cfg.Upload.MaxFileSizeMB = v
	}
	if v := envInt("CHISHIKI_MAX_FILENAME_LENGTH"); v > 0 {
		cfg.Upload.MaxFilenameLength = v
	}
	if v := envInt("CHISHIKI_CHUNK_SIZE"); v > 0 {
		cfg.Chunking.Size = v
	}
	if v := envInt("CHISHIKI_CHUNK_OVERLAP"); v >= 0 && os.Getenv("CHISHIKI_CHUNK_OVERLAP") != "" {
		cfg.Chunking.Overlap = v
	}
	if v := os.Getenv("CHISHIKI_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("CHISHIKI_DEBUG"); v != "" {
		cfg.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

// expandPath converts a path to absolute. Paths starting with "~" are relative
// to the home directory; other relative paths are relative to the working dir.
func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
