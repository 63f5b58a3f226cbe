package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"fintastic/internal/forecast"
	"fintastic/internal/table"
)

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes tbl with a header row.
func WriteCSV(w io.Writer, tbl *table.Table, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	header, rows := records(tbl)
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range rows {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes tbl to path, creating parent directories.
func WriteCSVFile(path string, tbl *table.Table, options WriteOptions) error {
	slog.Info("Writing CSV file",
		slog.String("file_path", path),
		slog.Int("record_count", tbl.NumRows()))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteCSV(file, tbl, options); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ForecastFilename is the download name of a forecast export.
func ForecastFilename(model string) string {
	return model + "_forecast.csv"
}

// WriteForecastCSV writes the forecast as one column named after the target.
func WriteForecastCSV(w io.Writer, res *forecast.Result) error {
	return WriteCSV(w, res.Table(), WriteOptions{})
}
