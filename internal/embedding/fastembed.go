package embedding

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// modelMapping maps friendly model names to fastembed model constants.
var modelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// modelDimensions maps fastembed models to their embedding dimensions.
var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGEBaseENV15:  768,
	fastembed.AllMiniLML6V2: 384,
}

// FastEmbedder embeds text with a local ONNX model via fastembed.
type FastEmbedder struct {
	model      *fastembed.FlagEmbedding
	dimensions int
	mu         sync.RWMutex
}

// NewFastEmbedder initializes a fastembed model. modelName must be one of the
// supported models; cacheDir holds downloaded model files (defaults to
// ./local_cache). Returns an error when the model or its runtime cannot be
// loaded, in which case callers fall back to the hash embedder.
func NewFastEmbedder(modelName, cacheDir string) (*FastEmbedder, error) {
	model, ok := modelMapping[modelName]
	if !ok {
		return nil, fmt.Errorf("unsupported embedding model %q", modelName)
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "local_cache")
	}
	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            512,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}
	return &FastEmbedder{model: flagEmbed, dimensions: modelDimensions[model]}, nil
}

// Embed returns the query embedding for text ("query: " prefixed by the model).
func (e *FastEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	emb, err := e.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("query embed: %w", err)
	}
	return emb, nil
}

// EmbedBatch returns passage embeddings for texts.
func (e *FastEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	embeddings, err := e.model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, fmt.Errorf("passage embed: %w", err)
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension of the loaded model.
func (e *FastEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases the underlying ONNX session.
func (e *FastEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		return e.model.Destroy()
	}
	return nil
}
