package synth

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"doubtsolver/internal/chunker"
)

// citationPatterns are applied in order to scrub citation-looking
// fragments the model emitted despite instruction. Defense in depth only:
// the real citations come from chunk provenance, never from this text.
var citationPatterns = []*regexp.Regexp{
	// (Source: ...) / [Source: ...]
	regexp.MustCompile(`(?i)\s*[(\[]\s*Source:.*?[)\]]`),
	// (Filename.pdf, Page: X)
	regexp.MustCompile(`(?i)\s*[(\[]\s*[a-zA-Z0-9_]+\.pdf.*?[)\]]`),
	// (Class10_..., Page: X)
	regexp.MustCompile(`(?i)\s*[(\[]\s*Class\d+.*?[)\]]`),
	// standalone (Page: X)
	regexp.MustCompile(`(?i)\s*[(\[]\s*Page:.*?[)\]]`),
}

// StripInlineCitations removes inline citation artifacts from generated
// text.
func StripInlineCitations(text string) string {
	for _, p := range citationPatterns {
		text = p.ReplaceAllString(text, "")
	}
	return text
}

// collectSources groups chunks by source in first-appearance order and
// collects each source's set of page labels, sorted. A page cited by
// several chunks appears once.
func collectSources(chunks []chunker.Chunk) []SourceRef {
	var order []string
	pages := make(map[string]map[string]bool)
	for _, c := range chunks {
		name := sourceName(c.SourceID)
		if pages[name] == nil {
			pages[name] = make(map[string]bool)
			order = append(order, name)
		}
		pages[name][strconv.Itoa(c.Page)] = true
	}

	refs := make([]SourceRef, len(order))
	for i, name := range order {
		labels := make([]string, 0, len(pages[name]))
		for p := range pages[name] {
			labels = append(labels, p)
		}
		sortPageLabels(labels)
		refs[i] = SourceRef{SourceID: name, Pages: labels}
	}
	return refs
}

// sortPageLabels sorts numerically when every label is an integer,
// lexically otherwise.
func sortPageLabels(labels []string) {
	allNumeric := true
	for _, l := range labels {
		if _, err := strconv.Atoi(l); err != nil {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		sort.Slice(labels, func(i, j int) bool {
			a, _ := strconv.Atoi(labels[i])
			b, _ := strconv.Atoi(labels[j])
			return a < b
		})
		return
	}
	sort.Strings(labels)
}

// RenderFooter renders the canonical source footer: one line per source,
// pages comma-separated. Empty sources render nothing.
func RenderFooter(sources []SourceRef) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n**Source:**\n")
	for _, s := range sources {
		fmt.Fprintf(&b, "- %s (Page: %s)\n", s.SourceID, strings.Join(s.Pages, ", "))
	}
	return b.String()
}

// sourceName strips the .pdf suffix from a source identifier for display.
func sourceName(sourceID string) string {
	return strings.TrimSuffix(sourceID, ".pdf")
}
