// Package chunker splits page-level text units into overlapping chunks
// sized for embedding. Cut points prefer the largest natural boundary that
// fits: paragraph break, then line break, then space, then a hard cut at
// character granularity. Chunks are contiguous slices of the source text,
// so concatenating them with overlaps removed reproduces the page exactly.
package chunker

import (
	"strings"

	"doubtsolver/internal/extract"
)

// Chunk is the atomic unit of embedding and retrieval. Provenance traces
// back to (SourceID, Page) of the TextUnit it was cut from.
type Chunk struct {
	Text     string
	SourceID string
	Page     int
	Meta     map[string]string
}

// separators in priority order; the empty string stands for a hard cut.
var separators = []string{"\n\n", "\n", " "}

// Chunker splits text with a fixed size budget and overlap, both in runes.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker. Out-of-range arguments fall back to safe values.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk converts extracted TextUnits into chunks, carrying provenance and
// metadata through. Empty or whitespace-only units yield nothing.
func (c *Chunker) Chunk(units []extract.TextUnit) []Chunk {
	var chunks []Chunk
	for _, u := range units {
		for _, piece := range c.Split(u.Text) {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Text:     piece,
				SourceID: u.SourceID,
				Page:     u.Page,
				Meta:     u.Meta,
			})
		}
	}
	return chunks
}

// Split cuts text into pieces of at most chunkSize runes. Adjacent pieces
// share the last overlap runes of the preceding piece. Whitespace-only
// input yields nil.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	var out []string
	start := 0
	for start < len(runes) {
		if len(runes)-start <= c.chunkSize {
			out = append(out, string(runes[start:]))
			break
		}
		cut := cutPoint(runes[start : start+c.chunkSize])
		out = append(out, string(runes[start:start+cut]))

		if cut > c.overlap {
			start += cut - c.overlap
		} else {
			// Piece shorter than the overlap: step past it instead of
			// re-reading the same region forever.
			start += cut
		}
	}
	return out
}

// cutPoint returns the rune offset to cut at within a full-size window,
// choosing the end of the last occurrence of the highest-priority
// separator present. No separator at all means a hard cut.
func cutPoint(window []rune) int {
	s := string(window)
	for _, sep := range separators {
		if i := strings.LastIndex(s, sep); i > 0 {
			return len([]rune(s[:i+len(sep)]))
		}
	}
	return len(window)
}

// Reassemble concatenates pieces produced by Split, dropping each piece's
// leading overlap. It exists for verification: Reassemble(Split(text))
// must equal text.
func (c *Chunker) Reassemble(pieces []string) string {
	var b strings.Builder
	for i, p := range pieces {
		if i == 0 {
			b.WriteString(p)
			continue
		}
		runes := []rune(p)
		ov := c.overlap
		// Pieces cut shorter than the overlap carry no shared prefix.
		prev := []rune(pieces[i-1])
		if len(prev) <= c.overlap {
			ov = 0
		}
		if ov > len(runes) {
			ov = len(runes)
		}
		b.WriteString(string(runes[ov:]))
	}
	return b.String()
}
