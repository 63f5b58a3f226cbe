package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// missingTokens are cell spellings read as missing on upload.
var missingTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"-NaN":     true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"-nan":     true,
	"null":     true,
}

// dateLayouts are tried in order by ParseDate. Slash dates are month first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01-02-2006",
	"01-02-06",
	"1/2/06",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 January 2006",
	"20060102",
}

// IsMissingToken reports whether a raw cell reads as missing.
func IsMissingToken(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// ParseNumber parses a finite number, tolerating surrounding spaces.
func ParseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ParseDate parses s with the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a date, dropping the clock when it is midnight UTC.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// InferColumn builds a column from raw cells. A column whose present cells all
// parse as numbers becomes Numeric, as does a column with no present cells;
// anything else stays Text.
func InferColumn(name string, cells []string) *Column {
	numbers := make([]float64, len(cells))
	numeric := true
	for i, cell := range cells {
		if IsMissingToken(cell) {
			numbers[i] = math.NaN()
			continue
		}
		v, ok := ParseNumber(cell)
		if !ok {
			numeric = false
			break
		}
		numbers[i] = v
	}
	if numeric {
		return NewNumericColumn(name, numbers)
	}

	values := make([]string, len(cells))
	valid := make([]bool, len(cells))
	for i, cell := range cells {
		if IsMissingToken(cell) {
			continue
		}
		values[i] = cell
		valid[i] = true
	}
	return NewTextColumn(name, values, valid)
}

// FromRecords builds a table from a header and string rows. Short rows are
// padded with missing cells; long rows are rejected.
func FromRecords(header []string, rows [][]string) (*Table, error) {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}

	cells := make([][]string, len(names))
	for j := range cells {
		cells[j] = make([]string, len(rows))
	}
	for i, row := range rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(names))
		}
		for j := range row {
			cells[j][i] = row[j]
		}
	}

	cols := make([]*Column, len(names))
	for j, name := range names {
		cols[j] = InferColumn(name, cells[j])
	}
	if len(cols) == 0 {
		return Empty(), nil
	}
	return New(cols...)
}
