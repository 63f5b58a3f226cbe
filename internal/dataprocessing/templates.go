package dataprocessing

import (
	"fmt"
	"strings"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/table"
)

// DataType is the kind of dataset a user declares before uploading.
type DataType string

const (
	DataTypeSales       DataType = "sales"
	DataTypeStocks      DataType = "stocks"
	DataTypeCommodities DataType = "commodities"
	DataTypeCustom      DataType = "custom"
)

// LegacyRequiredColumns apply when no data type was chosen.
var LegacyRequiredColumns = []string{"date", "product", "quantity", "price"}

// Template is the column layout for one data type.
type Template struct {
	DataType DataType `json:"data_type"`
	Label    string   `json:"label"`
	Columns  []string `json:"columns"`
}

var templates = map[DataType]Template{
	DataTypeSales:       {DataType: DataTypeSales, Label: "Sales", Columns: []string{"date", "product", "sales_quantity", "price"}},
	DataTypeStocks:      {DataType: DataTypeStocks, Label: "Stocks", Columns: []string{"date", "ticker", "open", "close", "volume"}},
	DataTypeCommodities: {DataType: DataTypeCommodities, Label: "Commodities", Columns: []string{"date", "commodity", "price", "volume"}},
	DataTypeCustom:      {DataType: DataTypeCustom, Label: "Custom", Columns: []string{"date", "category", "value"}},
}

var templateOrder = []DataType{DataTypeSales, DataTypeStocks, DataTypeCommodities, DataTypeCustom}

// ParseDataType accepts the type name in any case. The empty string is valid
// and means no type was chosen.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(strings.ToLower(strings.TrimSpace(s)))
	if dt == "" {
		return "", nil
	}
	if _, ok := templates[dt]; !ok {
		valid := make([]string, len(templateOrder))
		for i, t := range templateOrder {
			valid[i] = string(t)
		}
		return "", apperrors.NewInvalidParameterError("data_type",
			fmt.Sprintf("unknown data type %q, expected one of %s", s, strings.Join(valid, ", ")))
	}
	return dt, nil
}

// Templates lists every template in display order.
func Templates() []Template {
	out := make([]Template, len(templateOrder))
	for i, dt := range templateOrder {
		out[i] = TemplateFor(dt)
	}
	return out
}

// TemplateFor returns the template of a data type.
func TemplateFor(dt DataType) Template {
	t := templates[dt]
	t.Columns = append([]string(nil), t.Columns...)
	return t
}

// Filename is the download name without extension.
func (t Template) Filename() string {
	return string(t.DataType) + "_template"
}

// Table returns the template as a table with headers and no rows.
func (t Template) Table() *table.Table {
	cols := make([]*table.Column, len(t.Columns))
	for i, name := range t.Columns {
		cols[i] = table.NewTextColumn(name, []string{}, nil)
	}
	return table.MustNew(cols...)
}

// RequiredColumns returns the columns an upload must carry for dt.
func RequiredColumns(dt DataType) []string {
	if dt == "" {
		return append([]string(nil), LegacyRequiredColumns...)
	}
	return TemplateFor(dt).Columns
}

// CheckRequiredColumns fails with MissingRequiredColumns naming every
// required column tbl lacks, in template order.
func CheckRequiredColumns(tbl *table.Table, dt DataType) error {
	var missing []string
	for _, name := range RequiredColumns(dt) {
		if !tbl.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewMissingRequiredColumnsError(missing)
	}
	return nil
}
