package operations

import (
	"fmt"

	"fintastic/internal/table"
)

func describe(t *table.Table, _ Params) (Result, error) {
	summary := table.Describe(t)
	if len(summary) == 0 {
		return unchanged(t, "No numeric columns to describe"), nil
	}
	res := unchanged(t, fmt.Sprintf("Summary statistics for %d numeric columns", len(summary)))
	res.Summary = summary
	return res, nil
}
