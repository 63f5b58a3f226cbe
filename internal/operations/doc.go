// Package operations implements the transform pipeline: a registry of named,
// parameterized table operations and a Pipeline that applies one of them to a
// session's current table.
//
// Every operation is a pure function from (table, params) to a new table plus
// a status message. Operations never assume the shape of the original upload;
// each re-validates its preconditions against the table it is given, so the
// user may apply them in any order.
//
// Registered operations:
//
//	fill_missing     mean, median, mode or custom fill of missing cells
//	remove_blanks    drop all-missing rows, then all-missing columns
//	remove_columns   drop named columns
//	add_columns      append constant-valued columns
//	add_calculation  append rolling average, growth % or cumulative sum
//	normalize        z-score every numeric column
//	describe         summary statistics, table untouched
//	transform_dates  parse a text column into dates
//	rename_column    rename one column
//
// Example usage:
//
//	pipeline := operations.NewPipeline(operations.DefaultRegistry(), logger, metrics)
//	res, err := pipeline.Apply(ctx, tbl, operations.OpRemoveBlanks, nil)
//	if err != nil {
//	    return apperrors.UserMessage(err)
//	}
//	tbl = res.Table
package operations
