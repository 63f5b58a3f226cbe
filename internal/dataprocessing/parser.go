package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/table"
)

// Format is an accepted upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DateColumn is the column name loaded as dates when every value parses.
const DateColumn = "date"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatFromFilename maps a file extension to a Format.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", apperrors.NewUnsupportedFileFormatError(name)
	}
}

// Parse reads a table in the given format. The first row is the header.
func Parse(r io.Reader, format Format) (*table.Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	default:
		return nil, apperrors.NewUnsupportedFileFormatError(string(format))
	}
	if err != nil {
		return nil, err
	}
	return buildTable(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read upload", err)
	}
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("could not read CSV file", err)
	}
	return rows, nil
}

// readXLSX reads the first sheet that holds any rows.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("could not open Excel workbook", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("could not read sheet %q", sheet), err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}

// FromRecords builds a table from a header and string rows with the same
// inference and date promotion applied to uploads.
func FromRecords(header []string, rows [][]string) (*table.Table, error) {
	return buildTable(append([][]string{header}, rows...))
}

// buildTable applies the header, drops trailing blank cells that reach past
// it and infers column kinds.
func buildTable(rows [][]string) (*table.Table, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("file is empty", errors.New("no header row"))
	}
	header := rows[0]
	body := rows[1:]
	for i, row := range body {
		if len(row) <= len(header) {
			continue
		}
		for _, cell := range row[len(header):] {
			if strings.TrimSpace(cell) != "" {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("row %d has %d fields, header has %d", i+2, len(row), len(header)), nil)
			}
		}
		body[i] = row[:len(header)]
	}

	tbl, err := table.FromRecords(header, body)
	if err != nil {
		return nil, apperrors.NewParsingError("could not build table", err)
	}
	return promoteDateColumn(tbl), nil
}

// promoteDateColumn loads the "date" column as dates when every present cell
// parses; otherwise the table is returned as is.
func promoteDateColumn(tbl *table.Table) *table.Table {
	col, ok := tbl.Column(DateColumn)
	if !ok || col.Kind != table.Text {
		return tbl
	}
	n := col.Len()
	times := make([]time.Time, n)
	valid := make([]bool, n)
	present := 0
	for i := 0; i < n; i++ {
		if col.IsMissing(i) {
			continue
		}
		d, ok := table.ParseDate(col.Strings[i])
		if !ok {
			return tbl
		}
		times[i], valid[i] = d, true
		present++
	}
	if present == 0 {
		return tbl
	}
	next, err := tbl.ReplaceColumn(table.NewDateColumn(DateColumn, times, valid))
	if err != nil {
		return tbl
	}
	return next
}
