package operations

import (
	apperrors "fintastic/internal/errors"
	"fintastic/internal/shared/params"
	"fintastic/internal/table"
)

// Operation identifiers
const (
	OpFillMissing    = "fill_missing"
	OpRemoveBlanks   = "remove_blanks"
	OpRemoveColumns  = "remove_columns"
	OpAddColumns     = "add_columns"
	OpAddCalculation = "add_calculation"
	OpNormalize      = "normalize"
	OpDescribe       = "describe"
	OpTransformDates = "transform_dates"
	OpRenameColumn   = "rename_column"
)

// Params carries operation options decoded from a request body.
type Params = params.Params

// Result is the outcome of a successful operation.
type Result struct {
	Table   *table.Table
	Message string
	// Changed is false when the operation left the table as it was.
	Changed bool
	// Summary is set by read-only operations that report statistics.
	Summary []table.Summary
}

// Func applies an operation to t. It must not modify t.
type Func func(t *table.Table, p Params) (Result, error)

// Operation is one registered table transformation.
type Operation struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
	// ReadOnly operations report on the table without replacing it.
	ReadOnly bool `json:"read_only"`
	Apply    Func `json:"-"`
}

// numericColumn resolves name to a numeric column of t.
func numericColumn(t *table.Table, name string) (*table.Column, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, apperrors.NewInvalidColumnError(name, "column does not exist")
	}
	if col.Kind != table.Numeric {
		return nil, apperrors.NewInvalidColumnError(name, "column is not numeric")
	}
	return col, nil
}

func unchanged(t *table.Table, message string) Result {
	return Result{Table: t, Message: message}
}

func changed(t *table.Table, message string) Result {
	return Result{Table: t, Message: message, Changed: true}
}
