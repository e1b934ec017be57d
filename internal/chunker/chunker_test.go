package chunker

import (
	"strings"
	"testing"

	"doubtsolver/internal/extract"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := New(500, 50)
	text := "Photosynthesis converts light into chemical energy."
	pieces := c.Split(text)
	if len(pieces) != 1 || pieces[0] != text {
		t.Fatalf("expected single identity chunk, got %v", pieces)
	}
}

func TestSplitWhitespaceOnly(t *testing.T) {
	c := New(500, 50)
	if got := c.Split("   \n\n\t "); got != nil {
		t.Fatalf("whitespace-only input must yield no chunks, got %v", got)
	}
	if got := c.Split(""); got != nil {
		t.Fatalf("empty input must yield no chunks, got %v", got)
	}
}

func TestSplitRespectsBudget(t *testing.T) {
	c := New(100, 10)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 30)
	for _, p := range c.Split(text) {
		if n := len([]rune(p)); n > 100 {
			t.Errorf("chunk exceeds budget: %d runes", n)
		}
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	c := New(60, 0)
	text := "First paragraph with some words.\n\nSecond paragraph continues here with more words."
	pieces := c.Split(text)
	if len(pieces) < 2 {
		t.Fatalf("expected a split, got %v", pieces)
	}
	if !strings.HasSuffix(pieces[0], "\n\n") {
		t.Errorf("first cut should land after the paragraph break, got %q", pieces[0])
	}
}

func TestSplitAdjacentChunksShareOverlap(t *testing.T) {
	c := New(80, 20)
	text := strings.Repeat("chlorophyll absorbs sunlight in the leaf cells ", 10)
	pieces := c.Split(text)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(pieces))
	}
	for i := 1; i < len(pieces); i++ {
		prev := []rune(pieces[i-1])
		cur := []rune(pieces[i])
		if len(prev) <= 20 {
			continue
		}
		tail := string(prev[len(prev)-20:])
		head := string(cur[:20])
		if tail != head {
			t.Errorf("chunk %d does not share overlap: tail %q vs head %q", i, tail, head)
		}
	}
}

// Reassembling the chunks of every page must reproduce the page exactly.
func TestSplitReassembleLossless(t *testing.T) {
	texts := []string{
		"Photosynthesis converts light into chemical energy.",
		strings.Repeat("Plants use carbon dioxide and water.\n", 40),
		strings.Repeat("Para one text here.\n\nPara two text follows.\n\n", 25),
		strings.Repeat("पौधे प्रकाश संश्लेषण द्वारा भोजन बनाते हैं। ", 30),
		strings.Repeat("x", 2000), // no separators at all: hard cuts
	}
	for _, cfg := range []struct{ size, overlap int }{{500, 50}, {100, 10}, {64, 0}} {
		c := New(cfg.size, cfg.overlap)
		for i, text := range texts {
			got := c.Reassemble(c.Split(text))
			if got != text {
				t.Errorf("size=%d overlap=%d text %d: reassembly differs from original", cfg.size, cfg.overlap, i)
			}
		}
	}
}

func TestChunkCarriesProvenance(t *testing.T) {
	c := New(100, 10)
	units := []extract.TextUnit{
		{Text: strings.Repeat("energy flows through the food chain ", 10), SourceID: "Grade10_Science_Ch1.pdf", Page: 3, Meta: map[string]string{"grade": "10", "subject": "Science"}},
		{Text: "  \n ", SourceID: "Grade10_Science_Ch1.pdf", Page: 4},
	}
	chunks := c.Chunk(units)
	if len(chunks) == 0 {
		t.Fatal("expected chunks from the non-empty unit")
	}
	for _, ch := range chunks {
		if ch.SourceID != "Grade10_Science_Ch1.pdf" || ch.Page != 3 {
			t.Errorf("chunk lost provenance: %+v", ch)
		}
		if ch.Meta["grade"] != "10" {
			t.Errorf("chunk lost metadata: %+v", ch.Meta)
		}
	}
}

func TestChunkEmptyUnitsYieldNothing(t *testing.T) {
	c := New(500, 50)
	if got := c.Chunk([]extract.TextUnit{{Text: "", SourceID: "a.pdf", Page: 1}}); got != nil {
		t.Fatalf("empty unit must yield zero chunks, got %v", got)
	}
}

func TestNewClampsArguments(t *testing.T) {
	c := New(-1, -5)
	if c.chunkSize != 500 || c.overlap != 0 {
		t.Errorf("bad defaults: %+v", c)
	}
	c = New(100, 100)
	if c.overlap != 25 {
		t.Errorf("overlap not clamped: %+v", c)
	}
}
