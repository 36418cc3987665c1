// Package extract turns uploaded files into plain text.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docingest/internal/domain"
	"docingest/internal/port"
)

var _ port.TextExtractor = (*Extractor)(nil)

// Extractor picks a reader by file suffix. Unknown suffixes are accepted when
// the content looks like text.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return readText(path)
	case ".pdf":
		return readPDF(path)
	case ".docx":
		return readDOCX(path)
	case ".html", ".htm":
		return readHTML(path)
	default:
		return readUnknown(path)
	}
}

// readText drops invalid UTF-8 sequences.
func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

func readUnknown(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
	return string(data), nil
}
