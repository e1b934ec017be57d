// Package pipeline wires language tagging, retrieval and synthesis into
// the end-to-end question answering flow. A Pipeline is constructed once
// at startup; the only mutable piece is the index pointer, which Reload
// swaps atomically so in-flight queries keep the snapshot they started
// with.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"doubtsolver/internal/chunker"
	"doubtsolver/internal/embed"
	"doubtsolver/internal/langtag"
	"doubtsolver/internal/retrieve"
	"doubtsolver/internal/synth"
	"doubtsolver/internal/vecindex"
)

// Response carries the outcome of one query through the pipeline.
type Response struct {
	// Answer is the displayable answer text, source footer included.
	Answer string
	// Sources lists the provenance of the answer, one entry per cited
	// document. Empty when nothing relevant was retrieved.
	Sources []synth.SourceRef
	// Chunks are the retrieved passages the answer was grounded on,
	// ranked by similarity.
	Chunks []chunker.Chunk
	// Scores are the similarity scores parallel to Chunks.
	Scores []float32
	// Language is the detected language code of the query (ISO 639-3).
	Language string
	// Latencies records per-stage wall time, keyed by stage name
	// (detect, retrieve, synthesize, total).
	Latencies map[string]time.Duration
}

// Options tune the pipeline's retrieval behavior.
type Options struct {
	// TopK is the number of chunks retrieved per query.
	TopK int
	// Overfetch is the candidate multiplier applied before metadata
	// post-filtering.
	Overfetch int
}

// Pipeline executes queries against one index snapshot at a time.
type Pipeline struct {
	index       atomic.Pointer[vecindex.Index]
	newEmbedder func() (embed.Embedder, error)
	synth       *synth.Synthesizer
	opts        Options
}

// New assembles a Pipeline. ix may be nil when no index has been built
// yet; queries then answer with the no-grounding message. newEmbedder
// constructs the embedding function Reload opens index snapshots with.
// It must return a fresh instance per call: loading restores trained
// embedder state in place, and sharing one instance across snapshots
// would retrain the embedder under indexes still serving queries.
func New(ix *vecindex.Index, newEmbedder func() (embed.Embedder, error), syn *synth.Synthesizer, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.Overfetch <= 0 {
		opts.Overfetch = 3
	}
	p := &Pipeline{newEmbedder: newEmbedder, synth: syn, opts: opts}
	p.index.Store(ix)
	return p
}

// ProcessQuery runs one query through detect, retrieve and synthesize.
// An empty retrieval is not an error: synthesis short-circuits to the
// fixed no-grounding answer without invoking the generation backend.
func (p *Pipeline) ProcessQuery(ctx context.Context, query string, filters map[string]string) (Response, error) {
	start := time.Now()
	resp := Response{Latencies: make(map[string]time.Duration)}

	t := time.Now()
	resp.Language = langtag.Detect(query)
	resp.Latencies["detect"] = time.Since(t)

	t = time.Now()
	r := retrieve.New(p.index.Load(), p.opts.Overfetch)
	res, err := r.RetrieveScored(ctx, query, p.opts.TopK, filters)
	resp.Latencies["retrieve"] = time.Since(t)
	if err != nil {
		return Response{}, fmt.Errorf("pipeline: %w", err)
	}
	resp.Chunks = res.Chunks
	resp.Scores = res.Scores

	t = time.Now()
	ans, err := p.synth.Synthesize(ctx, query, res.Chunks)
	resp.Latencies["synthesize"] = time.Since(t)
	if err != nil {
		return Response{}, fmt.Errorf("pipeline: %w", err)
	}
	resp.Answer = ans.Text
	resp.Sources = ans.Sources

	resp.Latencies["total"] = time.Since(start)
	return resp, nil
}

// Reload opens the index persisted under dir with a fresh embedder and
// swaps index and embedder in as one unit. The previous snapshot, and
// the embedder it owns, stay untouched for queries still running against
// it. On failure the current index stays in place.
func (p *Pipeline) Reload(dir string) error {
	if p.newEmbedder == nil {
		return fmt.Errorf("pipeline: reload: no embedder constructor configured")
	}
	e, err := p.newEmbedder()
	if err != nil {
		return fmt.Errorf("pipeline: reload: %w", err)
	}
	ix, err := vecindex.Load(dir, e)
	if err != nil {
		return fmt.Errorf("pipeline: reload: %w", err)
	}
	p.index.Store(ix)
	log.Printf("pipeline: reloaded index from %s (%d chunks)", dir, ix.Len())
	return nil
}

// Index returns the current index snapshot. May be nil.
func (p *Pipeline) Index() *vecindex.Index {
	return p.index.Load()
}
