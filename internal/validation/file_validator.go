package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apierrors "platereader/internal/errors"
)

// FileValidator checks command line paths before any parsing starts
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateExportFolder checks that dir is a directory and reports how many
// workbook exports it holds. An empty folder is not an error.
func (v *FileValidator) ValidateExportFolder(dir string) (int, error) {
	if err := v.ValidateInputDir(dir); err != nil {
		return 0, err
	}

	n, err := v.CountWorkbooks(dir)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		v.logger.Warn("No workbook exports found", slog.String("directory", dir))
	} else {
		v.logger.Debug("Export folder validated",
			slog.String("directory", dir),
			slog.Int("workbooks", n))
	}
	return n, nil
}

// CountWorkbooks counts the .xlsx files of dir, skipping editor lock files.
func (v *FileValidator) CountWorkbooks(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return 0, fmt.Errorf("failed to count workbooks: %w", err)
	}

	count := 0
	for _, match := range matches {
		if strings.HasPrefix(filepath.Base(match), "~$") {
			continue
		}
		if info, err := os.Stat(match); err == nil && !info.IsDir() {
			count++
		}
	}
	return count, nil
}

// ValidateFile checks that path is a readable regular file
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apierrors.NewInputFormatError(fmt.Sprintf("file %s does not exist", path), err)
	}
	if err != nil {
		return apierrors.NewInputFormatError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		return apierrors.NewInputFormatError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return apierrors.NewInputFormatError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateWorkbook checks that path is a readable .xlsx workbook.
// Legacy .xls exports are rejected; convert them first.
func (v *FileValidator) ValidateWorkbook(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" {
		return apierrors.NewInputFormatError(
			fmt.Sprintf("file %s is not an xlsx workbook (extension: %s)", path, ext), nil)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apierrors.NewInputFormatError(fmt.Sprintf("file %s is a temporary Excel file", path), nil)
	}
	return nil
}

// ValidateReadingFiles checks every tabular readings input
func (v *FileValidator) ValidateReadingFiles(paths ...string) error {
	if len(paths) == 0 {
		return apierrors.NewInputFormatError("no readings files given", nil)
	}
	for _, p := range paths {
		if err := v.ValidateFile(p); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOutputPath creates the parent directory of path and checks that
// it is writable. path itself must not be a directory.
func (v *FileValidator) ValidateOutputPath(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return apierrors.NewStorageError(fmt.Sprintf("output %s is a directory", path), nil)
	}

	if err := writableDir(filepath.Dir(path)); err != nil {
		return err
	}

	v.logger.Debug("Output path validated", slog.String("path", path))
	return nil
}

// ValidateInputDir checks that dir exists and is a directory.
func (v *FileValidator) ValidateInputDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return apierrors.NewInputFormatError(fmt.Sprintf("folder %s does not exist", dir), err)
	}
	if err != nil {
		return apierrors.NewInputFormatError(fmt.Sprintf("failed to stat folder %s", dir), err)
	}
	if !info.IsDir() {
		return apierrors.NewInputFormatError(fmt.Sprintf("%s is not a directory", dir), nil)
	}
	return nil
}

// ValidateOutputDir creates dir when missing and checks it is writable.
func (v *FileValidator) ValidateOutputDir(dir string) error {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return apierrors.NewStorageError(fmt.Sprintf("output %s is not a directory", dir), nil)
	}
	if err := writableDir(dir); err != nil {
		return err
	}

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return nil
}
