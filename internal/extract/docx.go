package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// Docx extracts text from Word documents.
type Docx struct{}

func (e *Docx) Name() string { return "docx" }

func (e *Docx) Extract(data []byte) (string, Metadata, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", Metadata{}, fmt.Errorf("parsing docx: %w", err)
	}
	defer doc.Close()

	return strings.TrimSpace(doc.Editable().GetContent()), Metadata{Method: "docx"}, nil
}
