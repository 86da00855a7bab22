package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts text from digitally produced PDFs via the structured parser.
type PDF struct{}

func (e *PDF) Name() string { return "pdf" }

func (e *PDF) Extract(data []byte) (text string, meta Metadata, err error) {
	// The pdf library panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", Metadata{}, fmt.Errorf("reading pdf: %w", err)
	}

	var builder strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}

	return strings.TrimSpace(builder.String()), Metadata{Method: "pdf", Pages: pages}, nil
}
