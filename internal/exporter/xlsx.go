package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fintastic/internal/table"
)

// DefaultSheet names the worksheet written by WriteXLSX.
const DefaultSheet = "data"

// WriteXLSX writes tbl to a single-sheet workbook. Numeric cells stay
// numeric; missing cells are left empty.
func WriteXLSX(w io.Writer, tbl *table.Table, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	names := tbl.Names()
	header := make([]interface{}, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	cols := tbl.Columns()
	for i := 0; i < tbl.NumRows(); i++ {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			if c.IsMissing(i) {
				continue
			}
			if c.Kind == table.Numeric {
				row[j] = c.Floats[i]
			} else {
				row[j] = c.Format(i)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
