package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fintastic/internal/errors"
	"fintastic/internal/shared/testutil"
)

func TestFileValidator_ValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	tests := []struct {
		name     string
		path     string
		wantType apperrors.ErrorType
	}{
		{name: "valid csv", path: write("sales.csv", "date,product\n2024-01-01,a\n")},
		{name: "upper case extension", path: write("SALES.CSV", "date\n2024-01-01\n")},
		{name: "unsupported extension", path: write("notes.txt", "hello"), wantType: apperrors.ErrTypeUnsupportedFileFormat},
		{name: "temporary excel file", path: write("~$report.xlsx", "x"), wantType: apperrors.ErrTypeInvalidParameter},
		{name: "missing file", path: filepath.Join(dir, "gone.csv"), wantType: apperrors.ErrTypeInvalidParameter},
		{name: "empty file", path: write("empty.csv", ""), wantType: apperrors.ErrTypeParsing},
		{name: "over the limit", path: write("big.csv", "date,product,quantity,price\n"), wantType: apperrors.ErrTypeInvalidParameter},
	}

	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger, 27)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateInputFile(tt.path)
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err), err.Error())
		})
	}
}

func TestFileValidator_ValidateFileRejectsDirectory(t *testing.T) {
	v := NewFileValidator(nil, 0)
	_, err := v.ValidateFile(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestFileValidator_ValidateOutputPath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "csv in existing dir", path: filepath.Join(dir, "out.csv")},
		{name: "xlsx in new dir", path: filepath.Join(dir, "nested", "deeper", "out.xlsx")},
		{name: "unsupported extension", path: filepath.Join(dir, "out.json"), wantErr: true},
		{name: "no extension", path: filepath.Join(dir, "out"), wantErr: true},
	}

	v := NewFileValidator(nil, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateOutputPath(tt.path)
			if tt.wantErr {
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter), err)
				return
			}
			require.NoError(t, err)
			assert.DirExists(t, filepath.Dir(tt.path))

			entries, err := os.ReadDir(filepath.Dir(tt.path))
			require.NoError(t, err)
			for _, e := range entries {
				assert.NotContains(t, e.Name(), ".write_test")
			}
		})
	}
}
