package core

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionInvalid marks preview rows that failed validation and were not
// reconciled. It never appears in a Classification.
const ActionInvalid Action = "invalid"

// Preview errors.
var (
	ErrEmptyFile = errors.New("empty file")
	ErrNoHeader  = errors.New("no header row found")
	ErrNoRows    = errors.New("no data rows after header")
)

// PreviewSummary contains the summary counts for an import preview.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	NewRows         int `json:"newRows"`
	UpdateRows      int `json:"updateRows"`
	SkipRows        int `json:"skipRows"`
	UnknownRows     int `json:"unknownRows"`
	InvalidRows     int `json:"invalidRows"`
	DuplicateInFile int `json:"duplicateInFile"`
}

// RowPreview is one parsed row with its validation and reconciliation result.
type RowPreview struct {
	LineNumber     int               `json:"lineNumber"`
	Action         Action            `json:"action"`
	Row            FlatRow           `json:"row"`
	Classification *Classification   `json:"classification,omitempty"` // Nil for invalid rows
	Errors         []ValidationError `json:"errors,omitempty"`
	Warnings       []ValidationError `json:"warnings,omitempty"`
	Suggestions    []Suggestion      `json:"suggestions,omitempty"`
	Duplicate      bool              `json:"duplicate,omitempty"` // Repeats an earlier row's key
}

// DuplicatePreview represents keys that appear multiple times in the file.
type DuplicatePreview struct {
	RowKey      string `json:"rowKey"`
	LineNumbers []int  `json:"lineNumbers"`
}

// PreviewResponse is the complete result of analyzing an import file.
type PreviewResponse struct {
	PreviewID        string             `json:"previewId"`
	Summary          PreviewSummary     `json:"summary"`
	Rows             []RowPreview       `json:"rows"`
	Duplicates       []DuplicatePreview `json:"duplicates,omitempty"`
	Warnings         []ParseWarning     `json:"warnings,omitempty"`
	InputBytes       int64              `json:"inputBytes"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
}

// PreviewOptions tunes AnalyzeImport.
type PreviewOptions struct {
	MaxSuggestions int    // Near matches per create row; 0 uses DefaultMaxSuggestions, <0 disables
	Tracer         Tracer // Reconciler diagnostics; nil discards
}

// AnalyzeImport parses an import file and previews what importing it would
// do against snap. Nothing is written.
func AnalyzeImport(data []byte, snap Snapshot, opts PreviewOptions) (*PreviewResponse, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyFile
	}
	return AnalyzeParsed(ParseCSVBytes(data), snap, opts)
}

// AnalyzeParsed previews rows that were already parsed, e.g. from a
// spreadsheet.
func AnalyzeParsed(parsed ParseResult, snap Snapshot, opts PreviewOptions) (*PreviewResponse, error) {
	startTime := time.Now()

	if len(parsed.Header) == 0 {
		return nil, ErrNoHeader
	}
	if len(parsed.Rows) == 0 {
		return nil, ErrNoRows
	}

	maxSuggestions := opts.MaxSuggestions
	if maxSuggestions == 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	resp := &PreviewResponse{
		PreviewID:  uuid.NewString(),
		Summary:    PreviewSummary{TotalRows: len(parsed.Rows)},
		Rows:       make([]RowPreview, 0, len(parsed.Rows)),
		Warnings:   parsed.Warnings,
		InputBytes: parsed.Bytes,
	}

	rec := NewReconciler(opts.Tracer)
	var suggester *Suggester
	if maxSuggestions > 0 {
		suggester = NewSuggester(snap)
	}

	// Track duplicates within file
	seenKeys := make(map[string][]int) // rowKey -> line numbers

	for i, row := range parsed.Rows {
		lineNum := i + 2
		if i < len(parsed.Lines) {
			lineNum = parsed.Lines[i]
		}

		rp := RowPreview{LineNumber: lineNum, Row: row}

		vr := ValidateRow(row)
		rp.Errors = vr.Errors
		rp.Warnings = vr.Warnings
		if !vr.Valid {
			rp.Action = ActionInvalid
			resp.Summary.InvalidRows++
			resp.Rows = append(resp.Rows, rp)
			continue
		}

		c := rec.Classify(row, snap)
		rp.Classification = &c
		rp.Action = c.Action

		switch c.Action {
		case ActionCreate:
			resp.Summary.NewRows++
			if suggester != nil {
				rp.Suggestions = suggester.Suggest(c.CanonicalID, maxSuggestions)
			}
		case ActionUpdate:
			resp.Summary.UpdateRows++
		case ActionSkip:
			resp.Summary.SkipRows++
		default:
			resp.Summary.UnknownRows++
		}

		if key := rowKey(c); key != "" {
			if len(seenKeys[key]) > 0 {
				rp.Duplicate = true
			}
			seenKeys[key] = append(seenKeys[key], lineNum)
		}

		resp.Rows = append(resp.Rows, rp)
	}

	keys := make([]string, 0, len(seenKeys))
	for key, lines := range seenKeys {
		if len(lines) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines := seenKeys[key]
		resp.Summary.DuplicateInFile += len(lines) - 1 // Count extra occurrences
		resp.Duplicates = append(resp.Duplicates, DuplicatePreview{RowKey: key, LineNumbers: lines})
	}

	resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	return resp, nil
}

// rowKey identifies the entity a row refers to: the matched entity's URN,
// otherwise the row's canonical id.
func rowKey(c Classification) string {
	if c.MatchedURN != "" {
		return c.MatchedURN
	}
	return c.CanonicalID
}

// FilterByAction returns the rows with the given action. An empty action
// returns all rows.
func FilterByAction(rows []RowPreview, action Action) []RowPreview {
	if action == "" {
		return rows
	}
	var out []RowPreview
	for _, r := range rows {
		if r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

// ParseActionFilter maps a filter string to an Action. Unknown values are
// rejected.
func ParseActionFilter(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case "", "all":
		return "", true
	case ActionCreate, ActionUpdate, ActionSkip, ActionUnknown, ActionInvalid:
		return a, true
	default:
		return "", false
	}
}
