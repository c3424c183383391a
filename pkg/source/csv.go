// pkg/source/csv.go
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

// CSVSource streams rows from a headed CSV file. The header row defines the
// schema; every column is typed as string since CSV carries no type
// metadata, and the cleaning pipeline coerces values afterward.
type CSVSource struct {
	path         string
	file         *os.File
	reader       *csv.Reader
	schema       model.Schema
	bomBytes     int64
	headerOffset int64
	rowsRead     int64
	done         bool
}

// NewCSVSource opens the file, strips a UTF-8 BOM if present, sanitizes
// invalid UTF-8, and reads the header row.
func NewCSVSource(path string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file %s: %w", path, err)
	}

	buffered, bomBytes, err := newBOMStrippingReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read csv file %s: %w", path, err)
	}

	reader := csv.NewReader(newUTF8SanitizingReader(buffered))
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("csv file %s has no header row", path)
		}
		return nil, fmt.Errorf("failed to read csv header from %s: %w", path, err)
	}

	columns := make([]model.Column, 0, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			file.Close()
			return nil, fmt.Errorf("csv file %s has an empty header name at position %d", path, i+1)
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			file.Close()
			return nil, fmt.Errorf("csv file %s has a duplicate header name: %s", path, trimmed)
		}
		seen[key] = true
		columns = append(columns, model.Column{
			Name:       trimmed,
			Type:       model.TypeString,
			SourceType: "csv",
		})
	}

	return &CSVSource{
		path:         path,
		file:         file,
		reader:       reader,
		schema:       model.Schema{Columns: columns},
		bomBytes:     bomBytes,
		headerOffset: reader.InputOffset(),
	}, nil
}

// Schema returns the column layout read from the header row
func (s *CSVSource) Schema(ctx context.Context) (model.Schema, error) {
	return s.schema, nil
}

// Read returns up to max rows, with empty cells surfaced as nil values. It
// returns io.EOF once the file is exhausted and no rows remain.
func (s *CSVSource) Read(ctx context.Context, max int) ([]model.Row, error) {
	if s.done {
		return nil, io.EOF
	}
	if max <= 0 {
		max = 1
	}

	rows := make([]model.Row, 0, max)
	for len(rows) < max {
		select {
		case <-ctx.Done():
			return rows, ctx.Err()
		default:
		}

		record, err := s.reader.Read()
		if err == io.EOF {
			s.done = true
			if len(rows) == 0 {
				return nil, io.EOF
			}
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("failed to read csv row %d from %s: %w", s.rowsRead+2, s.path, err)
		}

		row := make(model.Row, len(s.schema.Columns))
		for i, col := range s.schema.Columns {
			if record[i] == "" {
				row[col.Name] = nil
			} else {
				row[col.Name] = record[i]
			}
		}
		rows = append(rows, row)
		s.rowsRead++
	}
	return rows, nil
}

// TotalRows reports ok=false: CSV carries no row-count metadata and the
// count is only known after a full scan.
func (s *CSVSource) TotalRows() (int64, bool) {
	return 0, false
}

// BytesRead returns the encoded bytes consumed by data rows so far
func (s *CSVSource) BytesRead() int64 {
	return s.reader.InputOffset() - s.headerOffset
}

// HeaderBytes returns the bytes taken by the BOM and the header row
func (s *CSVSource) HeaderBytes() int64 {
	return s.bomBytes + s.headerOffset
}

// Close releases the file handle
func (s *CSVSource) Close() error {
	return s.file.Close()
}
