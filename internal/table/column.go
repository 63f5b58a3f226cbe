package table

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the value type held by a column.
type Kind int

const (
	Numeric Kind = iota
	Text
	Date
)

// String returns the kind name used in API payloads.
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is one named, typed column. Only the slice matching Kind is populated.
type Column struct {
	Name string
	Kind Kind

	Floats  []float64
	Strings []string
	Times   []time.Time
	// Valid marks present cells of Text and Date columns.
	Valid []bool
}

// NewNumericColumn builds a numeric column; NaN marks a missing cell.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Floats: values}
}

// NewTextColumn builds a text column. A nil valid slice marks every cell present.
func NewTextColumn(name string, values []string, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{Name: name, Kind: Text, Strings: values, Valid: valid}
}

// NewDateColumn builds a date column. A nil valid slice marks every cell present.
func NewDateColumn(name string, values []time.Time, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{Name: name, Kind: Date, Times: values, Valid: valid}
}

// Len returns the number of cells.
func (c *Column) Len() int {
	switch c.Kind {
	case Numeric:
		return len(c.Floats)
	case Text:
		return len(c.Strings)
	default:
		return len(c.Times)
	}
}

// IsMissing reports whether cell i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return !c.Valid[i]
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Format renders cell i as text; missing cells render as "".
func (c *Column) Format(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	switch c.Kind {
	case Numeric:
		return strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
	case Date:
		return FormatDate(c.Times[i])
	default:
		return c.Strings[i]
	}
}

// Value returns cell i as a JSON-friendly value: float64, string or nil.
func (c *Column) Value(i int) interface{} {
	if c.IsMissing(i) {
		return nil
	}
	switch c.Kind {
	case Numeric:
		v := c.Floats[i]
		if math.IsInf(v, 0) {
			return nil
		}
		return v
	case Date:
		return FormatDate(c.Times[i])
	default:
		return c.Strings[i]
	}
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	if c.Times != nil {
		out.Times = append([]time.Time(nil), c.Times...)
	}
	if c.Valid != nil {
		out.Valid = append([]bool(nil), c.Valid...)
	}
	return out
}

// Renamed returns a copy of the column under a new name.
func (c *Column) Renamed(name string) *Column {
	out := c.Clone()
	out.Name = name
	return out
}

// AsText converts the column to Text, keeping missing cells missing.
func (c *Column) AsText() *Column {
	if c.Kind == Text {
		return c.Clone()
	}
	n := c.Len()
	values := make([]string, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		if !c.IsMissing(i) {
			values[i] = c.Format(i)
			valid[i] = true
		}
	}
	return NewTextColumn(c.Name, values, valid)
}

// Select returns a column holding only the given row positions, in order.
func (c *Column) Select(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Numeric:
		out.Floats = make([]float64, len(rows))
		for j, i := range rows {
			out.Floats[j] = c.Floats[i]
		}
	case Text:
		out.Strings = make([]string, len(rows))
		out.Valid = make([]bool, len(rows))
		for j, i := range rows {
			out.Strings[j] = c.Strings[i]
			out.Valid[j] = c.Valid[i]
		}
	case Date:
		out.Times = make([]time.Time, len(rows))
		out.Valid = make([]bool, len(rows))
		for j, i := range rows {
			out.Times[j] = c.Times[i]
			out.Valid[j] = c.Valid[i]
		}
	}
	return out
}

// equal compares two columns cell by cell; two missing cells are equal.
func (c *Column) equal(o *Column) bool {
	if c.Name != o.Name || c.Kind != o.Kind || c.Len() != o.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		cm, om := c.IsMissing(i), o.IsMissing(i)
		if cm != om {
			return false
		}
		if cm {
			continue
		}
		switch c.Kind {
		case Numeric:
			if c.Floats[i] != o.Floats[i] {
				return false
			}
		case Text:
			if c.Strings[i] != o.Strings[i] {
				return false
			}
		case Date:
			if !c.Times[i].Equal(o.Times[i]) {
				return false
			}
		}
	}
	return true
}

func allValid(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}
