// Package extract recovers plain text from resume documents. Extractors are
// tried in order until one yields non-empty text, so a caller does not need
// to know the document format up front.
package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoText is returned when every extractor fails or yields empty text.
var ErrNoText = errors.New("no extractor produced text")

// Metadata describes how a document was extracted.
type Metadata struct {
	Method string `json:"method"`
	Pages  int    `json:"pages"`
}

// Extractor recovers text from one document format.
type Extractor interface {
	Name() string
	Extract(data []byte) (string, Metadata, error)
}

// Default returns the standard cascade: structured PDF parse, then DOCX,
// then plain text.
func Default() []Extractor {
	return []Extractor{&PDF{}, &Docx{}, &PlainText{}}
}

// Text runs data through the extractors in order and returns the first
// non-empty result. With no extractors given, the default cascade is used.
func Text(data []byte, extractors ...Extractor) (string, Metadata, error) {
	if len(extractors) == 0 {
		extractors = Default()
	}

	var failures []string
	for _, e := range extractors {
		text, meta, err := e.Extract(data)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", e.Name(), err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			failures = append(failures, fmt.Sprintf("%s: empty text", e.Name()))
			continue
		}
		return text, meta, nil
	}

	return "", Metadata{}, fmt.Errorf("%w (%s)", ErrNoText, strings.Join(failures, "; "))
}

// File reads path and extracts its text with the default cascade.
func File(path string) (string, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", Metadata{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Text(data)
}
