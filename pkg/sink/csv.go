// pkg/sink/csv.go
package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

// CleanedCSV persists cleaned rows to a CSV file, header first, in output
// schema order. It implements the cleaner row sink.
type CleanedCSV struct {
	path    string
	logger  *zap.Logger
	file    *os.File
	writer  *csv.Writer
	columns []string
	record  []string
	rows    int64
}

// NewCleanedCSV creates a cleaned-record CSV sink writing to path.
func NewCleanedCSV(path string, logger *zap.Logger) (*CleanedCSV, error) {
	if path == "" {
		return nil, errors.New("cleaned CSV path is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &CleanedCSV{
		path:   path,
		logger: logger.Named("cleaned-csv"),
	}, nil
}

// Open creates the output file and writes the header row.
func (s *CleanedCSV) Open(schema model.Schema) error {
	if s.writer != nil {
		return errors.New("cleaned CSV sink is already open")
	}
	if len(schema.Columns) == 0 {
		return errors.New("cleaned CSV sink requires at least one output column")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create cleaned CSV %s: %w", s.path, err)
	}

	writer := csv.NewWriter(file)
	columns := schema.ColumnNames()
	if err := writer.Write(columns); err != nil {
		file.Close()
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	s.file = file
	s.writer = writer
	s.columns = columns
	s.record = make([]string, len(columns))

	s.logger.Info("Opened cleaned CSV sink",
		zap.String("path", s.path),
		zap.Int("columns", len(columns)))
	return nil
}

// Write appends a batch of cleaned rows in the column order fixed at Open.
func (s *CleanedCSV) Write(ctx context.Context, rows []model.Row) error {
	if s.writer == nil {
		return errors.New("cleaned CSV sink is not open")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for _, row := range rows {
		for i, name := range s.columns {
			s.record[i] = formatValue(row[name])
		}
		if err := s.writer.Write(s.record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	s.rows += int64(len(rows))
	return nil
}

// Close flushes buffered rows and closes the file.
func (s *CleanedCSV) Close() error {
	if s.writer == nil {
		return nil
	}

	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	s.writer = nil
	s.file = nil

	if flushErr != nil {
		return fmt.Errorf("failed to flush cleaned CSV %s: %w", s.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close cleaned CSV %s: %w", s.path, closeErr)
	}

	s.logger.Info("Cleaned CSV written",
		zap.String("path", s.path),
		zap.Int64("rows", s.rows))
	return nil
}

// Abort closes and removes the partial output file. A failed run must not
// leave a truncated cleaned CSV that looks like a finished one.
func (s *CleanedCSV) Abort() error {
	if s.writer == nil {
		return nil
	}

	closeErr := s.file.Close()
	s.writer = nil
	s.file = nil

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove partial cleaned CSV %s: %w", s.path, err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close cleaned CSV %s: %w", s.path, closeErr)
	}

	s.logger.Warn("Discarded partial cleaned CSV", zap.String("path", s.path))
	return nil
}

// Path returns the output file path.
func (s *CleanedCSV) Path() string {
	return s.path
}

// RowsWritten returns the number of data rows written so far.
func (s *CleanedCSV) RowsWritten() int64 {
	return s.rows
}

// formatValue renders a cleaned value as a CSV cell. The formats round-trip:
// cleaning the written file again reproduces it byte for byte, so shortest
// form is used for floats and dates collapse to their date part.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}
