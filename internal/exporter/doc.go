// Package exporter writes tables and forecasts as CSV and Excel files.
//
// CSV output carries a header row and renders numbers through
// shopspring/decimal so values such as 0.1+0.2 print as written rather than
// in exponent form. Missing cells are empty. Excel output writes the same
// header and cells to a single sheet, keeping numeric cells numeric.
//
// Example usage:
//
//	// Current table as a download
//	err := exporter.WriteCSV(w, tbl, exporter.WriteOptions{BOMPrefix: true})
//
//	// Last forecast as "{model}_forecast.csv"
//	name := exporter.ForecastFilename(res.Model)
//	err = exporter.WriteForecastCSV(w, res)
package exporter
