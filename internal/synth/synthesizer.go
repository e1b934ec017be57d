// Package synth turns retrieved chunks into a grounded answer. Citations
// are never left to the model: the prompt forbids inline citations, a
// redaction pass strips any the model emits anyway, and the source footer
// is computed structurally from chunk provenance.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"doubtsolver/internal/chunker"
	"doubtsolver/internal/generate"
)

// InsufficientGroundingText is the fixed answer when retrieval found
// nothing to ground on. No source footer accompanies it.
const InsufficientGroundingText = "I don't know based on the textbook corpus. (No relevant content found)"

// unavailableText is the degraded answer when the generation backend is
// not loaded. The pipeline stays up; only generation is missing.
const unavailableText = "Error: Language Model is not loaded."

// generationFailedText covers transient backend failures.
const generationFailedText = "Error: failed to generate an answer from the language model."

// Answer is the final response: cleaned prose plus the ordered sources
// that ground it.
type Answer struct {
	Text    string
	Sources []SourceRef
}

// SourceRef names one source document and the sorted page labels cited
// from it.
type SourceRef struct {
	SourceID string
	Pages    []string
}

// Synthesizer builds prompts and post-processes completions.
type Synthesizer struct {
	gen  generate.Generator
	opts generate.Options
}

// New creates a Synthesizer around a generation backend.
func New(gen generate.Generator, opts generate.Options) *Synthesizer {
	if gen == nil {
		gen = generate.Unavailable{}
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.1
	}
	if opts.Stop == nil {
		opts.Stop = []string{"</s>", "[/INST]"}
	}
	return &Synthesizer{gen: gen, opts: opts}
}

// Synthesize produces the final answer for a query from its retrieved
// chunks. With zero chunks the generation backend is never invoked.
// Generation failures degrade to displayable messages rather than faults.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, chunks []chunker.Chunk) (Answer, error) {
	if len(chunks) == 0 {
		return Answer{Text: InsufficientGroundingText}, nil
	}

	sources := collectSources(chunks)
	raw, err := s.gen.Generate(ctx, BuildPrompt(query, chunks), s.opts)
	if err != nil {
		if errors.Is(err, generate.ErrUnavailable) {
			return Answer{Text: unavailableText, Sources: sources}, nil
		}
		log.Printf("synth: generation failed: %v", err)
		return Answer{Text: generationFailedText, Sources: sources}, nil
	}

	clean := StripInlineCitations(strings.TrimSpace(raw))
	return Answer{Text: clean + RenderFooter(sources), Sources: sources}, nil
}

// BuildPrompt assembles the grounded instruction prompt. Each chunk is
// annotated with its provenance so the model can reason about it, while
// the instructions forbid echoing it.
func BuildPrompt(query string, chunks []chunker.Chunk) string {
	var ctxText strings.Builder
	for i, c := range chunks {
		if i > 0 {
			ctxText.WriteString("\n\n")
		}
		fmt.Fprintf(&ctxText, "[Source: %s, Page: %d]\n%s", sourceName(c.SourceID), c.Page, c.Text)
	}

	return fmt.Sprintf(`[INST] You are an intelligent textbook doubt solver for students.
Goal: Answer the student's question clearly and accurately based ONLY on the provided context.

**Formatting Rules (Match this style):**
1. **Bold Keywords**: Bold important terms like **chlorophyll**, **stomata**, **glucose**.
2. **Structure**:
   - Start with a clear definition.
   - Limit paragraphs to 2-3 sentences max.
   - Use blank lines between paragraphs.
3. **Equations**:
   - If applicable, write the equation on its own line.
4. **No Citations**: Do NOT include source names or page numbers in the text.

**Context:**
%s

**Question:** %s
[/INST]`, ctxText.String(), query)
}
