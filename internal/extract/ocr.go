package extract

import (
	"errors"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// ErrOCRUnavailable indicates the OCR engine could not be used at all
// (Tesseract or its language data missing). Callers treat it the same as a
// per-page OCR failure: log and continue with empty text.
var ErrOCRUnavailable = errors.New("extract: ocr engine unavailable")

// OCREngine recognizes text in a rendered page image (PNG bytes).
type OCREngine interface {
	Recognize(img []byte) (string, error)
}

// Tesseract is an OCREngine backed by the Tesseract library.
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract engine for the given language codes
// (e.g. eng, hin). The corpus ships English and Hindi textbooks, so those
// are the configured defaults upstream.
func NewTesseract(languages []string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{languages: languages}
}

// Recognize runs OCR over a PNG-encoded page image. A fresh client per page
// keeps failures isolated; Tesseract clients are cheap relative to the
// recognition itself.
func (t *Tesseract) Recognize(img []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("%w: set languages %v: %v", ErrOCRUnavailable, t.languages, err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("extract: ocr set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("extract: ocr recognize: %w", err)
	}
	return text, nil
}
