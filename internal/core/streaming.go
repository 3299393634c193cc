package core

// streaming.go normalizes raw import bytes before CSV parsing.
//
// Spreadsheet tools export CSV in a few encodings. The import reader:
//
//   - strips a UTF-8 BOM (0xEF 0xBB 0xBF) written by Windows programs
//   - decodes UTF-16 LE/BE when the file starts with the matching BOM
//   - replaces invalid UTF-8 sequences with U+FFFD
//
// CountingReader tracks bytes consumed so previews can report input size.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxFileSize is the default maximum accepted import size (100MB).
var MaxFileSize int64 = 100 * 1024 * 1024

// NewImportReader wraps r with BOM detection and UTF-8 sanitization.
func NewImportReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}
