package core

// codec.go reads and writes the tabular import format.
//
// Parsing is header-driven: columns are located by name (case-insensitive),
// so files with reordered or extra columns still import. Columns missing from
// the header produce empty cells and a warning. Malformed lines are skipped
// and reported; ParseCSV never fails the whole batch.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// HeaderIndex maps lowercased column names to their position in a record.
type HeaderIndex map[string]int

// ParseWarning describes a recoverable problem found while parsing.
type ParseWarning struct {
	Line    int    `json:"line"` // 1-indexed; 0 when not tied to a line
	Message string `json:"message"`
}

func (w ParseWarning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// ParseResult holds the rows recovered from an import file.
type ParseResult struct {
	Header   []string       `json:"header"`
	Rows     []FlatRow      `json:"rows"`
	Lines    []int          `json:"lines"` // Source line of each row, parallel to Rows
	Warnings []ParseWarning `json:"warnings,omitempty"`
	Bytes    int64          `json:"bytes"` // Raw input size consumed
}

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common spreadsheet artifacts from a header cell:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// ParseCSV parses an import file. The reader is decoded with
// NewImportReader, so BOMs and invalid UTF-8 are handled here. Space after
// a separator is dropped, so a quoted field may follow ", ".
func ParseCSV(r io.Reader) ParseResult {
	counter := NewCountingReader(r)
	cr := csv.NewReader(NewImportReader(counter))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		records  [][]string
		lines    []int
		warnings []ParseWarning
	)

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				warnings = append(warnings, ParseWarning{
					Line:    perr.StartLine,
					Message: fmt.Sprintf("skipped malformed line: %v", perr.Err),
				})
				continue
			}
			warnings = append(warnings, ParseWarning{Message: fmt.Sprintf("read input: %v", err)})
			break
		}

		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}

	res := mapRecords(records, lines)
	res.Warnings = append(warnings, res.Warnings...)
	res.Bytes = counter.BytesRead
	return res
}

// ParseCSVBytes parses an in-memory import file.
func ParseCSVBytes(data []byte) ParseResult {
	return ParseCSV(bytes.NewReader(data))
}

// ParseRecords maps pre-split records (first record is the header) onto
// rows. Line numbers are the 1-indexed record positions.
func ParseRecords(records [][]string) ParseResult {
	lines := make([]int, len(records))
	for i := range records {
		lines[i] = i + 1
	}
	return mapRecords(records, lines)
}

func mapRecords(records [][]string, lines []int) ParseResult {
	var res ParseResult

	// Find header: first non-empty record
	start := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		res.Warnings = append(res.Warnings, ParseWarning{Message: "no header row found"})
		return res
	}

	res.Header = make([]string, len(records[start]))
	for i, h := range records[start] {
		res.Header[i] = CleanCell(h)
	}
	headerLine := lines[start]
	idx := MakeHeaderIndex(res.Header)

	var missing []string
	recognized := 0
	for _, col := range Columns {
		if _, ok := idx[col]; ok {
			recognized++
		} else {
			missing = append(missing, col)
		}
	}
	if recognized == 0 {
		res.Warnings = append(res.Warnings, ParseWarning{
			Line:    headerLine,
			Message: "header has no recognized columns",
		})
		return res
	}
	if len(missing) > 0 {
		res.Warnings = append(res.Warnings, ParseWarning{
			Line:    headerLine,
			Message: fmt.Sprintf("missing columns (left empty): %s", strings.Join(missing, ", ")),
		})
	}

	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if isEmptyRow(rec) {
			continue
		}

		row := FlatRow{Status: StatusDraft}
		for _, col := range Columns {
			pos, ok := idx[col]
			if !ok || pos >= len(rec) {
				continue
			}
			row.SetCell(col, strings.TrimSpace(rec[pos]))
		}

		res.Rows = append(res.Rows, row)
		res.Lines = append(res.Lines, lines[i])
	}

	return res
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes the header followed by one record per row in schema
// column order. Status is not written.
func WriteCSV(w io.Writer, rows []FlatRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SerializeCSV returns rows as import-format text. An empty slice yields
// the header line only.
func SerializeCSV(rows []FlatRow) string {
	var buf bytes.Buffer
	// bytes.Buffer writes cannot fail
	_ = WriteCSV(&buf, rows)
	return buf.String()
}

// TemplateCSV returns a header-only import file.
func TemplateCSV() string {
	return SerializeCSV(nil)
}
