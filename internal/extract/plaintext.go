package extract

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"
)

// PlainText accepts the document bytes verbatim when they already are UTF-8
// text. It is the last step of the cascade.
type PlainText struct{}

func (e *PlainText) Name() string { return "plaintext" }

func (e *PlainText) Extract(data []byte) (string, Metadata, error) {
	if !utf8.Valid(data) || bytes.ContainsRune(data, 0) {
		return "", Metadata{}, errors.New("not utf-8 text")
	}
	return strings.TrimSpace(string(data)), Metadata{Method: "plaintext"}, nil
}
