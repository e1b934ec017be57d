// Package extract turns PDF files into page-level text units. Pages whose
// direct text layer is too thin to be useful (likely scans) are rendered to
// an image and run through OCR instead. Per-page failures are logged and
// produce empty units so one bad page never blocks ingestion of a document.
package extract

import (
	"bytes"
	"fmt"
	"image/png"
	"log"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// TextUnit is the text of a single page together with its provenance.
type TextUnit struct {
	Text     string
	SourceID string // stable filename-derived document identifier
	Page     int    // 1-indexed
	IsOCR    bool
	Meta     map[string]string
}

// ExtractionError reports a file that could not be opened at all.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: open %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor converts PDFs into TextUnits.
type Extractor struct {
	minTextLen int
	ocr        OCREngine // nil disables the OCR fallback
}

// New creates an Extractor. Pages with fewer than minTextLen trimmed
// characters of direct text are OCR'd with engine; a nil engine means such
// pages yield empty units.
func New(minTextLen int, engine OCREngine) *Extractor {
	if minTextLen <= 0 {
		minTextLen = 10
	}
	return &Extractor{minTextLen: minTextLen, ocr: engine}
}

// Extract returns one TextUnit per page of the PDF at path. It fails only
// when the container itself cannot be opened.
func (e *Extractor) Extract(path string) ([]TextUnit, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer doc.Close()

	sourceID := SourceID(path)
	meta := ParseSourceMeta(sourceID)

	units := make([]TextUnit, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		page := i + 1
		text, err := doc.Text(i)
		if err != nil {
			log.Printf("extract: %s page %d: text layer unreadable: %v", sourceID, page, err)
			text = ""
		}

		unit := TextUnit{Text: text, SourceID: sourceID, Page: page, Meta: meta}
		if needsOCR(text, e.minTextLen) {
			unit.Text = e.ocrFallback(func() ([]byte, error) {
				return renderPNG(doc, i)
			}, fmt.Sprintf("%s page %d", sourceID, page))
			unit.IsOCR = true
		}
		units = append(units, unit)
	}
	return units, nil
}

// ocrFallback renders and recognizes a page, returning empty text on any
// failure. OCR problems are isolated to the page they occur on.
func (e *Extractor) ocrFallback(render func() ([]byte, error), pageRef string) string {
	if e.ocr == nil {
		log.Printf("extract: %s looks scanned but no OCR engine is configured, emitting empty text", pageRef)
		return ""
	}
	img, err := render()
	if err != nil {
		log.Printf("extract: %s: render for OCR failed: %v", pageRef, err)
		return ""
	}
	text, err := e.ocr.Recognize(img)
	if err != nil {
		log.Printf("extract: %s: OCR failed: %v", pageRef, err)
		return ""
	}
	return text
}

// needsOCR reports whether a page's direct text layer is below the
// likely-scanned threshold.
func needsOCR(text string, minTextLen int) bool {
	return len(strings.TrimSpace(text)) < minTextLen
}

func renderPNG(doc *fitz.Document, pageIndex int) ([]byte, error) {
	img, err := doc.Image(pageIndex)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SourceID derives the stable document identifier from a file path.
func SourceID(path string) string {
	return filepath.Base(path)
}

// sourceMetaPattern matches the corpus filename convention, e.g.
// "Grade10_Science_Ch1.pdf".
var sourceMetaPattern = regexp.MustCompile(`^Grade(\d+)_([A-Za-z]+)`)

// ParseSourceMeta derives structured metadata from a source identifier when
// the filename follows the GradeN_Subject convention. Unrecognized names
// return nil: chunks simply carry no filterable metadata.
func ParseSourceMeta(sourceID string) map[string]string {
	m := sourceMetaPattern.FindStringSubmatch(sourceID)
	if m == nil {
		return nil
	}
	return map[string]string{
		"grade":   m[1],
		"subject": m[2],
	}
}
