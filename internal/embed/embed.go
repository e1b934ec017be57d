// Package embed defines the embedding function used identically at index
// time and query time, plus its implementations.
package embed

import "context"

// Embedder converts text to fixed-dimension vectors.
type Embedder interface {
	// Embed converts texts to vectors (batched for efficiency).
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimensionality.
	Dimensions() int

	// Name identifies the embedding function. An index is tagged with this
	// name so that loading it under a different embedder is rejected.
	Name() string
}

// Stateful is implemented by embedders whose behavior depends on trained
// state (e.g. a TF-IDF vocabulary). The index persists this state alongside
// the vectors so query-time embedding matches index-time embedding exactly.
type Stateful interface {
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}
