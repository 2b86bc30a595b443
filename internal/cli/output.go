// Package cli provides output formatting for the Chishiki command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/chishiki/internal/models"
	"github.com/hyperjump/chishiki/pkg/utils"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(v string) (OutputFormat, error) {
	switch v {
	case "text", "":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", v)
	}
}

// WriteSearchResults writes a search response to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(response.Results), response.Query)
	for i, hit := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Distance: %.4f\n", i+1, hit.Distance)
		if hit.Metadata != nil {
			fmt.Fprintf(w, "File: %s (chunk %d)\n", hit.Metadata.OriginalName, hit.Metadata.ChunkIndex)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(hit.Document, 200))
	}
	return nil
}

// WriteFileList writes a file listing to w in the given format.
func WriteFileList(w io.Writer, response *models.FileListResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\n%d file(s)\n\n", response.Total)
	for _, f := range response.Files {
		fmt.Fprintf(w, "%s  %s  (%d chunks, %d bytes, uploaded %s)\n",
			f.ID, f.OriginalName, f.ChunkCount, f.SizeBytes,
			f.UploadedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
