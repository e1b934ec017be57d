// Package retrieve executes similarity search narrowed by structured
// metadata. The index has no native filter support, so filters are applied
// as a post-filter, with over-fetching to keep the filtered result full.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"doubtsolver/internal/chunker"
	"doubtsolver/internal/vecindex"
)

// ErrBadFilter reports a filter key outside the recognized vocabulary.
var ErrBadFilter = errors.New("retrieve: unsupported filter key")

// allowedFilterKeys is the fixed vocabulary of chunk metadata filters.
// Absent keys mean "no constraint".
var allowedFilterKeys = map[string]bool{
	"grade":   true,
	"subject": true,
}

// Retriever embeds queries with the index's own embedding function and
// searches it. It never errors on an absent or empty index: an empty
// result means "no grounding found".
type Retriever struct {
	index     *vecindex.Index
	overfetch int
}

// New creates a Retriever. overfetch is the candidate multiplier applied
// before post-filtering (candidates = overfetch * topK).
func New(index *vecindex.Index, overfetch int) *Retriever {
	if overfetch <= 0 {
		overfetch = 3
	}
	return &Retriever{index: index, overfetch: overfetch}
}

// Retrieve returns up to topK chunks relevant to query, post-filtered by
// the given metadata constraints.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filters map[string]string) ([]chunker.Chunk, error) {
	res, err := r.RetrieveScored(ctx, query, topK, filters)
	if err != nil {
		return nil, err
	}
	return res.Chunks, nil
}

// RetrieveScored is Retrieve with the parallel similarity scores kept, for
// diagnostics and verbose output.
func (r *Retriever) RetrieveScored(ctx context.Context, query string, topK int, filters map[string]string) (vecindex.QueryResult, error) {
	if err := ValidateFilters(filters); err != nil {
		return vecindex.QueryResult{}, err
	}
	if topK <= 0 || r == nil || r.index.Len() == 0 {
		return vecindex.QueryResult{}, nil
	}

	vecs, err := r.index.Embedder().Embed(ctx, []string{query})
	if err != nil {
		return vecindex.QueryResult{}, fmt.Errorf("retrieve: embed query: %w", err)
	}

	fetchK := topK
	if len(filters) > 0 {
		// Post-filtering can only shrink the result, so fetch deeper into
		// the ranking first.
		fetchK = topK * r.overfetch
	}
	res, err := r.index.Search(vecs[0], fetchK)
	if err != nil {
		return vecindex.QueryResult{}, fmt.Errorf("retrieve: search: %w", err)
	}

	if len(filters) == 0 {
		return truncate(res, topK), nil
	}

	var filtered vecindex.QueryResult
	for i, c := range res.Chunks {
		if matches(c, filters) {
			filtered.Chunks = append(filtered.Chunks, c)
			filtered.Scores = append(filtered.Scores, res.Scores[i])
		}
	}
	return truncate(filtered, topK), nil
}

// ValidateFilters rejects keys outside the recognized vocabulary so typos
// fail loudly instead of silently matching nothing.
func ValidateFilters(filters map[string]string) error {
	if len(filters) == 0 {
		return nil
	}
	var bad []string
	for k := range filters {
		if !allowedFilterKeys[k] {
			bad = append(bad, k)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("%w: %s (allowed: %s)", ErrBadFilter, strings.Join(bad, ", "), allowedKeyList())
	}
	return nil
}

func allowedKeyList() string {
	keys := make([]string, 0, len(allowedFilterKeys))
	for k := range allowedFilterKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// matches reports whether every filter key is present on the chunk with an
// exactly equal value.
func matches(c chunker.Chunk, filters map[string]string) bool {
	for k, v := range filters {
		if c.Meta[k] != v {
			return false
		}
	}
	return true
}

func truncate(res vecindex.QueryResult, k int) vecindex.QueryResult {
	if len(res.Chunks) <= k {
		return res
	}
	return vecindex.QueryResult{Chunks: res.Chunks[:k], Scores: res.Scores[:k]}
}
