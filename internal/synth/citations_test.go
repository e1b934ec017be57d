package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"doubtsolver/internal/chunker"
)

func TestStripInlineCitations(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"source parenthetical", "Leaves are green (Source: Grade10_Science_Ch1).", "Leaves are green."},
		{"source bracketed", "Leaves are green [source: book, Page: 3].", "Leaves are green."},
		{"pdf reference", "Glucose is stored (Grade10_Science_Ch1.pdf, Page: 4).", "Glucose is stored."},
		{"class reference", "Water rises (Class10_Science, Page: 2).", "Water rises."},
		{"standalone page", "Roots absorb water (Page: 11).", "Roots absorb water."},
		{"case insensitive", "Roots absorb water (PAGE: 11).", "Roots absorb water."},
		{"no citation untouched", "The equation is on its own line.", "The equation is on its own line."},
		{"plain parenthetical kept", "Energy (in the form of ATP) is released.", "Energy (in the form of ATP) is released."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripInlineCitations(tc.in))
		})
	}
}

func TestCollectSourcesGroupsAndDedupes(t *testing.T) {
	chunks := []chunker.Chunk{
		{SourceID: "B.pdf", Page: 10},
		{SourceID: "A.pdf", Page: 2},
		{SourceID: "B.pdf", Page: 2},
		{SourceID: "B.pdf", Page: 10}, // duplicate page
	}
	refs := collectSources(chunks)

	// First-appearance order, pages grouped only within their source.
	assert.Equal(t, []SourceRef{
		{SourceID: "B", Pages: []string{"2", "10"}},
		{SourceID: "A", Pages: []string{"2"}},
	}, refs)
}

func TestSortPageLabelsNumeric(t *testing.T) {
	labels := []string{"10", "2", "1"}
	sortPageLabels(labels)
	assert.Equal(t, []string{"1", "2", "10"}, labels)
}

func TestSortPageLabelsLexicalFallback(t *testing.T) {
	labels := []string{"10", "ii", "2"}
	sortPageLabels(labels)
	assert.Equal(t, []string{"10", "2", "ii"}, labels)
}

func TestRenderFooter(t *testing.T) {
	footer := RenderFooter([]SourceRef{
		{SourceID: "Grade10_Science_Ch1", Pages: []string{"1", "2"}},
	})
	assert.Equal(t, "\n\n**Source:**\n- Grade10_Science_Ch1 (Page: 1, 2)\n", footer)
}

func TestRenderFooterEmpty(t *testing.T) {
	assert.Empty(t, RenderFooter(nil))
}
