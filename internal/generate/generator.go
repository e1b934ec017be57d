// Package generate abstracts the text-generation backend: an opaque,
// possibly slow completion function. Its absence never stops the system
// from serving; answers degrade to an explicit unavailable message.
package generate

import (
	"context"
	"errors"
)

// ErrUnavailable indicates no generation backend is loaded.
var ErrUnavailable = errors.New("generate: generation backend unavailable")

// Options bound a single completion call. The generation backend's own
// token limit is what bounds a runaway generation; there is no
// pipeline-level cancellation beyond ctx.
type Options struct {
	MaxTokens   int
	Temperature float32
	Stop        []string
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	Name() string
}

// Unavailable is the Generator used when no backend is configured or the
// model failed to load. Every call fails with ErrUnavailable.
type Unavailable struct{}

func (Unavailable) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Name() string { return "unavailable" }
