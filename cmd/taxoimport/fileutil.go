package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
	"github.com/JonMunkholm/taxonomy-import/internal/sheet"
	"github.com/JonMunkholm/taxonomy-import/internal/snapshot"
)

// stdio is the path meaning stdin or stdout.
const stdio = "-"

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// checkFormat rejects extensions other than .csv, .txt and .xlsx.
func checkFormat(path string) error {
	if path == stdio {
		return nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".xlsx":
		return nil
	default:
		return withCode(exitUsage, fmt.Errorf("unsupported format %q: use .csv or .xlsx", filepath.Ext(path)))
	}
}

// readInput reads an import file; "-" reads CSV from in.
func readInput(path string, in io.Reader) ([]byte, error) {
	if err := checkFormat(path); err != nil {
		return nil, err
	}
	if path == stdio {
		data, err := io.ReadAll(io.LimitReader(in, core.MaxFileSize+1))
		if err != nil {
			return nil, withCode(exitFailure, fmt.Errorf("read stdin: %w", err))
		}
		return data, checkSize(int64(len(data)))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("read input: %w", err))
	}
	if err := checkSize(info.Size()); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("read input: %w", err))
	}
	return data, nil
}

func checkSize(n int64) error {
	if n > core.MaxFileSize {
		return withCode(exitValidation, fmt.Errorf("file too large: limit is %d bytes", core.MaxFileSize))
	}
	return nil
}

// parseInput parses import bytes with the parser the path calls for.
func parseInput(path string, data []byte) (core.ParseResult, error) {
	if isXLSX(path) {
		parsed, err := sheet.ReadXLSX(bytes.NewReader(data))
		if err != nil {
			return core.ParseResult{}, withCode(exitValidation, err)
		}
		return parsed, nil
	}
	return core.ParseCSVBytes(data), nil
}

// loadSnapshot reads a JSON or YAML snapshot file.
func loadSnapshot(ctx context.Context, path string) (core.Snapshot, error) {
	snap, err := snapshot.NewFileSource(path).Load(ctx)
	if err != nil {
		return nil, withCode(exitSnapshot, err)
	}
	return snap, nil
}

// writeOutput writes rows to path as CSV or XLSX; "-" writes CSV to out.
func writeOutput(path string, out io.Writer, rows []core.FlatRow) error {
	if err := checkFormat(path); err != nil {
		return err
	}
	if path == stdio {
		if err := core.WriteCSV(out, rows); err != nil {
			return withCode(exitFailure, fmt.Errorf("write csv: %w", err))
		}
		return nil
	}

	var buf bytes.Buffer
	var err error
	if isXLSX(path) {
		err = sheet.WriteXLSX(&buf, rows)
	} else {
		err = core.WriteCSV(&buf, rows)
	}
	if err != nil {
		return withCode(exitFailure, fmt.Errorf("encode %s: %w", path, err))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return withCode(exitFailure, fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}
