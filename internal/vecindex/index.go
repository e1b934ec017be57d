// Package vecindex stores embedded chunks and serves nearest-neighbor
// search over them. The index is immutable once built or loaded: query
// serving shares one instance across goroutines with no locking, and a
// re-index produces a fresh instance to swap in.
package vecindex

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"doubtsolver/internal/chunker"
	"doubtsolver/internal/embed"
)

// Common errors
var (
	ErrEmptyCorpus      = errors.New("vecindex: empty corpus")
	ErrDimMismatch      = errors.New("vecindex: vector dimension mismatch")
	ErrEmbedderMismatch = errors.New("vecindex: index built with a different embedding function")
	ErrNotFound         = errors.New("vecindex: no persisted index found")
)

// Error wraps errors with operation context.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vecindex.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IndexedChunk is a persisted (chunk, vector) record. The vector is always
// the index's embedding function output for the chunk text.
type IndexedChunk struct {
	Chunk  chunker.Chunk
	Vector []float32
}

// QueryResult holds chunks ranked by descending cosine similarity, with a
// parallel score slice.
type QueryResult struct {
	Chunks []chunker.Chunk
	Scores []float32
}

// Index is a flat exact-search index. The corpus is a bounded set of
// textbooks, so a linear cosine scan stays fast and keeps search results
// reproducible across save/load.
type Index struct {
	items    []IndexedChunk
	dims     int
	embedder embed.Embedder
}

// Build embeds every chunk once and assembles an index tagged with the
// embedding function. An empty chunk set is benign: it logs, and returns an
// empty index together with ErrEmptyCorpus so callers can tell the
// difference from a populated build.
func Build(ctx context.Context, chunks []chunker.Chunk, e embed.Embedder) (*Index, error) {
	idx := &Index{embedder: e}
	if len(chunks) == 0 {
		log.Printf("vecindex: no chunks to index, producing empty index")
		return idx, ErrEmptyCorpus
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, &Error{Op: "build", Err: err}
	}

	idx.dims = e.Dimensions()
	idx.items = make([]IndexedChunk, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != idx.dims {
			return nil, &Error{Op: "build", Err: ErrDimMismatch}
		}
		idx.items[i] = IndexedChunk{Chunk: c, Vector: vectors[i]}
	}
	return idx, nil
}

// Search returns up to k chunks ranked by cosine similarity to the query
// vector. An empty or nil index and k <= 0 both yield an empty result, not
// an error: "no corpus indexed yet" is a normal state.
func (ix *Index) Search(query []float32, k int) (QueryResult, error) {
	if ix == nil || len(ix.items) == 0 || k <= 0 {
		return QueryResult{}, nil
	}
	if len(query) != ix.dims {
		return QueryResult{}, &Error{Op: "search", Err: ErrDimMismatch}
	}

	type scored struct {
		pos   int
		score float32
	}
	ranked := make([]scored, len(ix.items))
	for i, item := range ix.items {
		ranked[i] = scored{pos: i, score: cosineSimilarity(query, item.Vector)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if k > len(ranked) {
		k = len(ranked)
	}

	res := QueryResult{
		Chunks: make([]chunker.Chunk, k),
		Scores: make([]float32, k),
	}
	for i := 0; i < k; i++ {
		res.Chunks[i] = ix.items[ranked[i].pos].Chunk
		res.Scores[i] = ranked[i].score
	}
	return res, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.items)
}

// Dimensions returns the embedding dimension shared by all vectors.
func (ix *Index) Dimensions() int {
	return ix.dims
}

// Embedder returns the embedding function this index was built with.
// Queries must be embedded with it and nothing else.
func (ix *Index) Embedder() embed.Embedder {
	return ix.embedder
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float32) float32 {
	return float32(math.Sqrt(float64(dotProduct(v, v))))
}

// cosineSimilarity returns 1 for identical directions, 0 for perpendicular
// or zero vectors.
func cosineSimilarity(a, b []float32) float32 {
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dotProduct(a, b) / (na * nb)
}
