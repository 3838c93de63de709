package extract

import (
	"strings"
	"testing"
)

func TestSplitShortText(t *testing.T) {
	s := NewSplitter(100, 10)
	chunks := s.Split("short text")
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Errorf("Split = %v", chunks)
	}
}

func TestSplitBlankText(t *testing.T) {
	s := NewSplitter(100, 10)
	if chunks := s.Split("  \n\n "); chunks != nil {
		t.Errorf("Split of blank text = %v, want nil", chunks)
	}
}

func TestSplitParagraphs(t *testing.T) {
	s := NewSplitter(50, 0)
	text := strings.Repeat("aaaa bbbb cccc.\n\n", 10)
	chunks := s.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 50 {
			t.Errorf("chunk %d is %d chars, exceeds max 50", i, len(c))
		}
	}
	// Nothing is lost: concatenation covers the input (no overlap configured).
	if joined := strings.Join(chunks, ""); joined != text {
		t.Errorf("chunks do not reassemble the input:\n%q\nvs\n%q", joined, text)
	}
}

func TestSplitOverlap(t *testing.T) {
	s := NewSplitter(60, 20)
	text := strings.Repeat("one two three four five. ", 12)
	chunks := s.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Each later chunk starts with text carried over from its predecessor.
	for i := 1; i < len(chunks); i++ {
		head := chunks[i]
		if len(head) > 20 {
			head = head[:20]
		}
		if !strings.Contains(chunks[i-1], strings.TrimSpace(strings.Split(head, " ")[0])) {
			t.Errorf("chunk %d does not overlap its predecessor: %q", i, head)
		}
	}
}

func TestSplitUnbreakableRun(t *testing.T) {
	// No separators at all: the splitter must hard-cut rather than emit an
	// oversized chunk.
	s := NewSplitter(40, 0)
	text := strings.Repeat("x", 150)
	chunks := s.Split(text)

	var total int
	for i, c := range chunks {
		if len(c) > 40 {
			t.Errorf("chunk %d is %d chars, exceeds max", i, len(c))
		}
		total += len(c)
	}
	if total != 150 {
		t.Errorf("total chunk length = %d, want 150", total)
	}
}
