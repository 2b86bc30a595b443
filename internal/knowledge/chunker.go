// Package knowledge implements the knowledge-base core: text chunking,
// aggregation of flat chunk records into files, and the upload/query service.
package knowledge

import "strings"

// Chunker splits text into overlapping character windows, snapping a window's
// end to the last sentence terminator or newline when one lands past the
// window midpoint.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap, both in
// characters. Requires size > overlap >= 0; out-of-range values are clamped.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into ordered, whitespace-trimmed chunks. Empty text yields
// nil; text shorter than one window yields a single chunk. Chunks may come out
// shorter than the window size when sentence breaks land near the midpoint.
// The output is deterministic for a given text and configuration.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	var chunks []string
	start := 0
	for start < n {
		// end may exceed n; the advance below is measured against it so the
		// trailing window is consumed in one pass.
		end := start + c.size
		limit := end
		if limit > n {
			limit = n
		}
		if end < n {
			if bp := lastSentenceBreak(runes[start:limit]); bp > c.size/2 {
				end = start + bp + 1
				limit = end
			}
		}
		if piece := strings.TrimSpace(string(runes[start:limit])); piece != "" {
			chunks = append(chunks, piece)
		}
		next := end - c.overlap
		if next <= start {
			// A snapped boundary inside the overlap would stall the cursor.
			next = start + 1
		}
		start = next
	}
	return chunks
}

// lastSentenceBreak returns the index of the later of the last '.' and the
// last '\n' in window, or -1 when neither occurs.
func lastSentenceBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}
