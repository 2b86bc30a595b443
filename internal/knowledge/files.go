package knowledge

import (
	"sort"

	"github.com/hyperjump/chishiki/internal/models"
)

// AggregateFiles folds flat chunk records into per-file views. The store has
// no notion of a file, only chunks: the first record seen for a file ID seeds
// the file's metadata, and every record sharing that ID increments its chunk
// count, regardless of arrival order. Files are returned in first-seen order.
func AggregateFiles(records []*models.ChunkRecord) []*models.FileInfo {
	byID := make(map[string]*models.FileInfo)
	var files []*models.FileInfo
	for _, rec := range records {
		f, ok := byID[rec.FileID]
		if !ok {
			f = rec.FileInfo()
			byID[rec.FileID] = f
			files = append(files, f)
		}
		f.ChunkCount++
	}
	return files
}

// SortFilesNewestFirst orders files by upload time descending. The sort is
// stable so ties keep their aggregation (first-seen) order; the store itself
// makes no ordering guarantee.
func SortFilesNewestFirst(files []*models.FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
}
