// Package langtag classifies the language of an incoming query. The tag is
// recorded for observability only; retrieval and generation do not branch
// on it.
package langtag

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// DefaultCode is reported when detection is not possible.
const DefaultCode = "eng"

// Detect returns the ISO 639-3 code of the dominant language in text.
// Empty or very short input defaults to English rather than guessing.
func Detect(text string) string {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < 3 {
		return DefaultCode
	}

	info := whatlanggo.Detect(trimmed)
	code := whatlanggo.LangToString(info.Lang)
	if code == "" {
		return DefaultCode
	}
	return code
}
