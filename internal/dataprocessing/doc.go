// Package dataprocessing turns uploaded spreadsheets into tables.
//
// It covers the ingestion half of the dashboard:
//
//  1. Parser: reads .csv and .xlsx files into a table.Table, inferring column
//     kinds from the cells
//  2. Templates: the per data type column layouts offered for download and
//     used to check required columns
//  3. Loader: parse, check and instrument an upload in one call
//
// # Usage
//
//	loader := dataprocessing.NewLoader(logger, metrics)
//	tbl, err := loader.Load(ctx, header.Filename, file, dataprocessing.DataTypeSales)
//	if err != nil {
//	    // UnsupportedFileFormat, MissingRequiredColumns or Parsing
//	}
//
// # Column kinds
//
// A column whose present cells all parse as numbers is numeric; anything else
// is text. The one exception is a column named "date" whose present cells all
// parse as dates: it is loaded as a date column. Other date-like columns stay
// text until the transform_dates operation converts them.
package dataprocessing
