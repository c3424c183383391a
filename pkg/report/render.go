// pkg/report/render.go
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSVWriter renders report tables as CSV files under one directory, one
// file per table. Money and volume figures render with two decimals.
type CSVWriter struct {
	dir string
}

// NewCSVWriter ensures the output directory exists
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}
	return &CSVWriter{dir: dir}, nil
}

// WriteTable writes one table to <dir>/<name>.csv
func (w *CSVWriter) WriteTable(table Table) error {
	path := filepath.Join(w.dir, table.Name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(table.Columns); err != nil {
		file.Close()
		return fmt.Errorf("failed to write report header: %w", err)
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatCell(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			file.Close()
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush report %s: %w", path, err)
	}
	return file.Close()
}

// Path returns where a table with the given name would be written
func (w *CSVWriter) Path(name string) string {
	return filepath.Join(w.dir, name+".csv")
}

func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}
