package pdftext

import (
	"strings"
	"testing"
)

func TestGreedyParaSplit(t *testing.T) {
	text := "alpha\n\nbeta\n\ngamma"
	chunks := greedyParaSplit(text, 12)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(chunks), chunks)
	}
	if chunks[0] != "alpha\nbeta" {
		t.Errorf("first chunk = %q", chunks[0])
	}
	if chunks[1] != "gamma" {
		t.Errorf("second chunk = %q", chunks[1])
	}
}

func TestGreedyParaSplitSingleOversizeParagraph(t *testing.T) {
	long := strings.Repeat("x", 500)
	chunks := greedyParaSplit(long, 100)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != long {
		t.Error("oversize paragraph was altered")
	}
}

func TestGreedyParaSplitEmpty(t *testing.T) {
	if got := greedyParaSplit("  \n \n", 100); got != nil {
		t.Fatalf("got %q for blank text, want nil", got)
	}
}

func TestExtractChunksFallback(t *testing.T) {
	// Not a PDF at all; the chunker must still return one row so the
	// vector index never sees zero entries.
	chunks := ExtractChunks([]byte("not a pdf"), DefaultChunkChars)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Page != 1 || chunks[0].Text != "" {
		t.Errorf("fallback chunk = %+v", chunks[0])
	}
}

func TestExtractPagesGarbageIsEmpty(t *testing.T) {
	if pages := ExtractPages([]byte{0x00, 0x01, 0x02}); len(pages) != 0 {
		t.Fatalf("got %d pages from garbage bytes, want 0", len(pages))
	}
}
