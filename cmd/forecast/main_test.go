package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/exporter"
)

const salesCSV = "date,product,quantity,price\n" +
	"2024-01-01,widget,1,2.5\n" +
	"2024-01-02,widget,2,2.5\n" +
	"2024-01-03,gadget,3,4\n" +
	"2024-01-04,gadget,4,4\n" +
	"2024-01-05,widget,5,2.5\n"

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestOpFlag_Set(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantID  string
		wantKey string
		wantErr bool
	}{
		{name: "bare id", value: "describe", wantID: "describe"},
		{name: "id with params", value: `remove_columns:{"columns":["price"]}`, wantID: "remove_columns", wantKey: "columns"},
		{name: "empty params", value: "remove_blanks:", wantID: "remove_blanks"},
		{name: "empty id", value: ":{}", wantErr: true},
		{name: "bad json", value: "rename_column:{from}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f opFlag
			err := f.Set(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, f, 1)
			assert.Equal(t, tt.wantID, f[0].id)
			if tt.wantKey != "" {
				assert.True(t, f[0].params.Has(tt.wantKey))
			}
		})
	}
}

func TestRun_Forecast(t *testing.T) {
	input := writeInput(t, "sales.csv", salesCSV)

	stdout, _, err := runCLI(t,
		"-file", input,
		"-op", `rename_column:{"from":"quantity","to":"units"}`,
		"-model", "linear_regression",
		"-column", "units",
		"-horizon", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "units", lines[0])
	for i, want := range []float64{6, 7, 8} {
		got, err := strconv.ParseFloat(lines[i+1], 64)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestRun_ForecastToFile(t *testing.T) {
	input := writeInput(t, "sales.csv", salesCSV)
	out := filepath.Join(t.TempDir(), exporter.ForecastFilename("moving_average"))

	stdout, _, err := runCLI(t,
		"-file", input,
		"-model", "moving_average",
		"-column", "price",
		"-params", `{"window":2}`,
		"-out", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "price", lines[0])
}

func TestRun_ProcessedTableXLSX(t *testing.T) {
	input := writeInput(t, "sales.csv", salesCSV)
	out := filepath.Join(t.TempDir(), "processed.xlsx")

	_, _, err := runCLI(t,
		"-file", input,
		"-op", `remove_columns:{"columns":["price"]}`,
		"-op", "describe",
		"-out", out)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exporter.DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"date", "product", "quantity"}, rows[0])
}

func TestRun_ProcessedTableCSV(t *testing.T) {
	input := writeInput(t, "sales.csv", salesCSV)

	stdout, stderr, err := runCLI(t, "-file", input, "-op", "describe", "-log-level", "info")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "date,product,quantity,price\n"))
	assert.Contains(t, stderr, "column summary")
}

func TestRun_Catalog(t *testing.T) {
	stdout, _, err := runCLI(t, "-list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Operations:")
	assert.Contains(t, stdout, "add_calculation")
	assert.Contains(t, stdout, "Models:")
	assert.Contains(t, stdout, "exponential_smoothing")

	stdout, _, err = runCLI(t, "-version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Fintastic v")
}

func TestRun_Errors(t *testing.T) {
	sales := writeInput(t, "sales.csv", salesCSV)
	notes := writeInput(t, "notes.txt", "hello")

	tests := []struct {
		name      string
		args      []string
		wantUsage bool
		wantType  apperrors.ErrorType
	}{
		{name: "missing file flag", args: []string{"-model", "arima"}, wantUsage: true},
		{name: "model without column", args: []string{"-file", sales, "-model", "arima"}, wantUsage: true},
		{name: "unknown flag", args: []string{"-nope"}, wantUsage: true},
		{name: "unsupported format", args: []string{"-file", notes}, wantType: apperrors.ErrTypeUnsupportedFileFormat},
		{name: "missing input", args: []string{"-file", filepath.Join(t.TempDir(), "gone.csv")}, wantType: apperrors.ErrTypeInvalidParameter},
		{name: "bad output extension", args: []string{"-file", sales, "-out", filepath.Join(t.TempDir(), "out.json")}, wantType: apperrors.ErrTypeInvalidParameter},
		{name: "unknown data type", args: []string{"-file", sales, "-data-type", "crypto"}, wantType: apperrors.ErrTypeInvalidParameter},
		{name: "missing template columns", args: []string{"-file", sales, "-data-type", "stocks"}, wantType: apperrors.ErrTypeMissingRequiredColumns},
		{name: "unknown operation", args: []string{"-file", sales, "-op", "explode"}, wantType: apperrors.ErrTypeNotFound},
		{name: "bad model params", args: []string{"-file", sales, "-model", "arima", "-column", "price", "-params", "[1]"}, wantType: apperrors.ErrTypeInvalidParameter},
		{name: "too few points", args: []string{"-file", sales, "-model", "arima", "-column", "price"}, wantType: apperrors.ErrTypeInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			if tt.wantUsage {
				assert.ErrorIs(t, err, errUsage)
				return
			}
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err), err.Error())
		})
	}
}
