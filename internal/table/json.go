package table

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type columnJSON struct {
	Name   string        `json:"name"`
	Kind   string        `json:"kind"`
	Values []interface{} `json:"values"`
}

type tableJSON struct {
	Columns []columnJSON `json:"columns"`
}

// MarshalJSON encodes the table column by column; missing cells are null and
// dates use RFC 3339.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{Columns: make([]columnJSON, len(t.columns))}
	for i, c := range t.columns {
		values := make([]interface{}, c.Len())
		for r := range values {
			if c.IsMissing(r) {
				continue
			}
			switch c.Kind {
			case Numeric:
				if !math.IsInf(c.Floats[r], 0) {
					values[r] = c.Floats[r]
				}
			case Text:
				values[r] = c.Strings[r]
			case Date:
				values[r] = c.Times[r].Format(time.RFC3339Nano)
			}
		}
		out.Columns[i] = columnJSON{Name: c.Name, Kind: c.Kind.String(), Values: values}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the MarshalJSON format.
func (t *Table) UnmarshalJSON(data []byte) error {
	var in tableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	cols := make([]*Column, len(in.Columns))
	for i, cj := range in.Columns {
		col, err := decodeColumn(cj)
		if err != nil {
			return err
		}
		cols[i] = col
	}
	decoded, err := New(cols...)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

func decodeColumn(cj columnJSON) (*Column, error) {
	n := len(cj.Values)
	switch cj.Kind {
	case "numeric":
		values := make([]float64, n)
		for i, v := range cj.Values {
			f, ok := v.(float64)
			if !ok {
				values[i] = math.NaN()
				continue
			}
			values[i] = f
		}
		return NewNumericColumn(cj.Name, values), nil
	case "text":
		values := make([]string, n)
		valid := make([]bool, n)
		for i, v := range cj.Values {
			if s, ok := v.(string); ok {
				values[i], valid[i] = s, true
			}
		}
		return NewTextColumn(cj.Name, values, valid), nil
	case "date":
		values := make([]time.Time, n)
		valid := make([]bool, n)
		for i, v := range cj.Values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", cj.Name, i, err)
			}
			values[i], valid[i] = ts, true
		}
		return NewDateColumn(cj.Name, values, valid), nil
	default:
		return nil, fmt.Errorf("column %q has unknown kind %q", cj.Name, cj.Kind)
	}
}
