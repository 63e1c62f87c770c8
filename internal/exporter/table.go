package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// TableWriter writes delimited tables, tab separated by default.
type TableWriter struct {
	comma  rune
	logger *slog.Logger
}

// NewTableWriter creates a tab separated writer
func NewTableWriter(logger *slog.Logger) *TableWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableWriter{comma: '\t', logger: logger}
}

// WriteOptions configures table writing behavior
type WriteOptions struct {
	Headers []string
	Records [][]string
	Append  bool
	// BOMPrefix adds a UTF-8 BOM for spreadsheet applications
	BOMPrefix bool
}

// Write writes headers and records to out.
func (w *TableWriter) Write(out io.Writer, headers []string, records [][]string) error {
	writer := csv.NewWriter(out)
	writer.Comma = w.comma

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes a table to filePath, creating its directory.
func (w *TableWriter) WriteFile(filePath string, options WriteOptions) error {
	w.logger.Info("Writing table",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix && !options.Append {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	headers := options.Headers
	if options.Append {
		headers = nil
	}
	if err := w.Write(file, headers, options.Records); err != nil {
		return err
	}
	return file.Close()
}

// WriteSimpleFile writes a new table with headers and records
func (w *TableWriter) WriteSimpleFile(filePath string, headers []string, records [][]string) error {
	return w.WriteFile(filePath, WriteOptions{Headers: headers, Records: records})
}
