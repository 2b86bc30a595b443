package knowledge

import (
	"strings"
	"testing"
)

func TestChunk_empty(t *testing.T) {
	c := NewChunker(500, 50)
	if got := c.Chunk(""); got != nil {
		t.Errorf("Chunk(\"\") = %v, want nil", got)
	}
}

func TestChunk_shortText(t *testing.T) {
	c := NewChunker(500, 50)
	got := c.Chunk("just a short sentence")
	if len(got) != 1 {
		t.Fatalf("got %d chunks, want 1", len(got))
	}
	if got[0] != "just a short sentence" {
		t.Errorf("got %q", got[0])
	}
}

func TestChunk_whitespaceOnly(t *testing.T) {
	c := NewChunker(500, 50)
	if got := c.Chunk("   \n\t  "); got != nil {
		t.Errorf("whitespace-only text gave %v, want nil", got)
	}
}

func TestChunk_longTextOverlaps(t *testing.T) {
	c := NewChunker(500, 50)
	text := strings.Repeat("a", 600)
	got := c.Chunk(text)
	if len(got) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(got))
	}
	if len([]rune(got[0])) != 500 {
		t.Errorf("first chunk has %d chars, want 500", len([]rune(got[0])))
	}
	// Second window starts at 450, so its tail repeats the first window's.
	if got[1] != strings.Repeat("a", 150) {
		t.Errorf("second chunk has %d chars, want 150", len([]rune(got[1])))
	}
}

func TestChunk_sentenceSnap(t *testing.T) {
	c := NewChunker(100, 10)
	// A period at position 79 (past the midpoint) followed by more text:
	// the first window should end right after it.
	text := strings.Repeat("a", 79) + "." + strings.Repeat("b", 120)
	got := c.Chunk(text)
	if len(got) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(got))
	}
	if !strings.HasSuffix(got[0], ".") {
		t.Errorf("first chunk should end at the sentence break, got %q", got[0])
	}
	if len([]rune(got[0])) != 80 {
		t.Errorf("first chunk has %d chars, want 80", len([]rune(got[0])))
	}
}

func TestChunk_noSnapBeforeMidpoint(t *testing.T) {
	c := NewChunker(100, 10)
	// Period at position 20: before the midpoint, so no snapping.
	text := strings.Repeat("a", 20) + "." + strings.Repeat("b", 150)
	got := c.Chunk(text)
	if len([]rune(got[0])) != 100 {
		t.Errorf("first chunk has %d chars, want full window of 100", len([]rune(got[0])))
	}
}

func TestChunk_newlineBreak(t *testing.T) {
	c := NewChunker(100, 10)
	text := strings.Repeat("a", 90) + "\n" + strings.Repeat("b", 100)
	got := c.Chunk(text)
	if len(got) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(got))
	}
	// Trailing newline is trimmed from the stored chunk.
	if got[0] != strings.Repeat("a", 90) {
		t.Errorf("first chunk = %q", got[0])
	}
}

func TestChunk_deterministic(t *testing.T) {
	c := NewChunker(120, 30)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	a := c.Chunk(text)
	b := c.Chunk(text)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs", i)
		}
	}
}

func TestChunk_alwaysTerminates(t *testing.T) {
	// Overlap close to size plus dense sentence breaks would stall the
	// cursor without the forward guard.
	c := NewChunker(10, 9)
	text := strings.Repeat("ab. ", 50)
	got := c.Chunk(text)
	if len(got) == 0 {
		t.Fatal("no chunks produced")
	}
}

func TestChunk_coversAllContent(t *testing.T) {
	c := NewChunker(50, 10)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)
	got := c.Chunk(text)
	joined := strings.Join(got, " ")
	for _, word := range []string{"quick", "brown", "lazy", "dog"} {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q missing from chunk output", word)
		}
	}
	// The final characters of the input must land in some chunk.
	if !strings.HasSuffix(strings.TrimSpace(text), got[len(got)-1][len(got[len(got)-1])-4:]) {
		t.Errorf("last chunk does not reach end of input: %q", got[len(got)-1])
	}
}

func TestNewChunker_clamping(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
		wantSize      int
		wantOverlap   int
	}{
		{"zero size", 0, 50, 500, 50},
		{"negative overlap", 200, -1, 200, 0},
		{"overlap >= size", 100, 100, 100, 99},
		{"valid", 300, 30, 300, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunker(tt.size, tt.overlap)
			if c.size != tt.wantSize || c.overlap != tt.wantOverlap {
				t.Errorf("got size=%d overlap=%d, want size=%d overlap=%d",
					c.size, c.overlap, tt.wantSize, tt.wantOverlap)
			}
		})
	}
}
