// Package ingest runs the offline corpus build: walk a directory of PDF
// documents, extract and chunk their text, train and apply the embedding
// function, and persist the resulting index. Extraction parallelizes per
// document; a document that fails is logged and skipped, never aborting
// the run.
package ingest

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"doubtsolver/internal/chunker"
	"doubtsolver/internal/embed"
	"doubtsolver/internal/extract"
	"doubtsolver/internal/vecindex"
)

// DocumentExtractor turns one PDF file into page-level text units.
type DocumentExtractor interface {
	Extract(path string) ([]extract.TextUnit, error)
}

// trainable is implemented by embedders that fit parameters to the
// corpus before embedding it (TF-IDF vocabulary and document
// frequencies).
type trainable interface {
	Train(documents []string) error
}

// Result summarizes one ingestion run.
type Result struct {
	// RunID uniquely identifies the run in logs.
	RunID string
	// Documents is the number of PDFs successfully extracted.
	Documents int
	// Failed is the number of PDFs that could not be extracted.
	Failed int
	// Chunks is the number of chunks indexed.
	Chunks int
	// IndexPath is the directory the index was written to, empty when
	// the corpus produced no chunks and no index was written.
	IndexPath string
	// Duration is the wall time of the whole run.
	Duration time.Duration
}

// Runner executes ingestion runs with a fixed extraction and embedding
// setup.
type Runner struct {
	extractor DocumentExtractor
	chunker   *chunker.Chunker
	embedder  embed.Embedder
	workers   int
}

// NewRunner creates a Runner. workers bounds concurrent document
// extraction; values below 1 fall back to 4.
func NewRunner(ex DocumentExtractor, ch *chunker.Chunker, emb embed.Embedder, workers int) *Runner {
	if workers < 1 {
		workers = 4
	}
	return &Runner{extractor: ex, chunker: ch, embedder: emb, workers: workers}
}

// Run ingests every PDF under corpusDir and writes the index to
// indexDir. An empty or chunk-less corpus is not an error: the run logs
// a warning and writes nothing.
func (r *Runner) Run(ctx context.Context, corpusDir, indexDir string) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}
	log.Printf("ingest: run %s starting, corpus=%s", res.RunID, corpusDir)

	paths, err := findPDFs(corpusDir)
	if err != nil {
		return res, err
	}

	// Extraction order is nondeterministic under the worker pool; units
	// are slotted by document position so chunk order stays stable.
	units := make([][]extract.TextUnit, len(paths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u, err := r.extractor.Extract(path)
			if err != nil {
				log.Printf("ingest: run %s: skipping %s: %v", res.RunID, path, err)
				mu.Lock()
				res.Failed++
				mu.Unlock()
				return nil
			}
			units[i] = u
			mu.Lock()
			res.Documents++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	var all []extract.TextUnit
	for _, u := range units {
		all = append(all, u...)
	}
	chunks := r.chunker.Chunk(all)
	res.Chunks = len(chunks)
	if len(chunks) == 0 {
		log.Printf("ingest: run %s: no chunks extracted, not writing an index", res.RunID)
		res.Duration = time.Since(start)
		return res, nil
	}

	if tr, ok := r.embedder.(trainable); ok {
		docs := make([]string, len(chunks))
		for i, c := range chunks {
			docs[i] = c.Text
		}
		if err := tr.Train(docs); err != nil {
			return res, err
		}
	}

	ix, err := vecindex.Build(ctx, chunks, r.embedder)
	if err != nil {
		return res, err
	}
	if err := ix.Save(indexDir); err != nil {
		return res, err
	}
	res.IndexPath = indexDir
	res.Duration = time.Since(start)
	log.Printf("ingest: run %s done: %d docs (%d failed), %d chunks in %s",
		res.RunID, res.Documents, res.Failed, res.Chunks, res.Duration.Round(time.Millisecond))
	return res, nil
}

// findPDFs walks dir recursively and returns the sorted paths of all
// .pdf files.
func findPDFs(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
