// Package sheet reads and writes the import schema as an Excel workbook.
package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
)

// SheetName is the worksheet written by WriteXLSX and preferred by ReadXLSX.
const SheetName = "Taxonomy"

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes rows to a single-sheet workbook: a bold header row in
// schema order, then one row per entity. Status is not written.
func WriteXLSX(w io.Writer, rows []core.FlatRow) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(core.Columns), excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row.Record())); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadXLSX reads the Taxonomy sheet, or the first sheet when it is absent,
// and maps it with the same header-driven rules as CSV import.
func ReadXLSX(r io.Reader) (core.ParseResult, error) {
	counter := core.NewCountingReader(r)
	f, err := excelize.OpenReader(counter)
	if err != nil {
		return core.ParseResult{}, fmt.Errorf("invalid xlsx: %w", err)
	}
	defer f.Close()

	sheet := SheetName
	if idx, err := f.GetSheetIndex(SheetName); err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return core.ParseResult{}, fmt.Errorf("invalid xlsx: no sheets")
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return core.ParseResult{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	parsed := core.ParseRecords(records)
	parsed.Bytes = counter.BytesRead
	return parsed, nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
