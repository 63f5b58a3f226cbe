package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fintastic/internal/dataprocessing"
	apperrors "fintastic/internal/errors"
)

// outputExtensions are the formats the command-line tools can write.
var outputExtensions = map[string]bool{".csv": true, ".xlsx": true}

// FileValidator checks local input and output paths before the tools touch them.
type FileValidator struct {
	logger   *slog.Logger
	maxBytes int64
}

// NewFileValidator creates a validator. maxBytes <= 0 disables the size check.
func NewFileValidator(logger *slog.Logger, maxBytes int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:   logger.With(slog.String("component", "file_validator")),
		maxBytes: maxBytes,
	}
}

// ValidateFile checks that path is an existing, readable, regular file
func (v *FileValidator) ValidateFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return nil, apperrors.NewInvalidParameterError("file", fmt.Sprintf("file %s does not exist", path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return nil, apperrors.NewInvalidParameterError("file", fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return info, nil
}

// ValidateInputFile checks that path is a non-empty data file in a supported
// format and within the size limit.
func (v *FileValidator) ValidateInputFile(path string) error {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejecting temporary Excel file", slog.String("file", path))
		return apperrors.NewInvalidParameterError("file", fmt.Sprintf("%s is a temporary Excel file", base))
	}
	if _, err := dataprocessing.FormatFromFilename(base); err != nil {
		return err
	}

	info, err := v.ValidateFile(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return apperrors.NewParsingError(fmt.Sprintf("%s is empty", base), nil)
	}
	if v.maxBytes > 0 && info.Size() > v.maxBytes {
		v.logger.Error("File exceeds size limit",
			slog.String("file", path),
			slog.Int64("size", info.Size()),
			slog.Int64("limit", v.maxBytes))
		return apperrors.NewInvalidParameterError("file",
			fmt.Sprintf("%s is %d bytes, above the %d byte limit", base, info.Size(), v.maxBytes))
	}
	return nil
}

// ValidateOutputPath checks the extension of path and that its directory
// exists or can be created and is writable.
func (v *FileValidator) ValidateOutputPath(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !outputExtensions[ext] {
		return apperrors.NewInvalidParameterError("out",
			fmt.Sprintf("output must end in .csv or .xlsx, got %q", filepath.Base(path)))
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}
