// pkg/source/factory.go
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Format identifies the file format of an input source
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Factory creates row sources for a single input file. Input problems are
// surfaced here, before any processing starts, so a bad path or an empty
// file fails the run immediately.
type Factory struct {
	path   string
	format Format
	logger *zap.Logger
}

// NewFactory validates the input file and resolves its format. The format
// argument accepts "csv", "parquet", or "auto" to resolve by extension.
func NewFactory(path string, format string, logger *zap.Logger) (*Factory, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("input file does not exist: %s", path)
		}
		return nil, fmt.Errorf("failed to stat input file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input path is a directory, not a file: %s", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("input file is empty: %s", path)
	}

	resolved, err := resolveFormat(path, format)
	if err != nil {
		return nil, err
	}

	logger.Info("Resolved input source",
		zap.String("path", path),
		zap.String("format", string(resolved)),
		zap.Int64("file_bytes", info.Size()))

	return &Factory{
		path:   path,
		format: resolved,
		logger: logger,
	}, nil
}

// Open creates a fresh row source positioned at the first data row. Each
// call opens its own file handle so concurrent or sequential scans do not
// interfere with each other.
func (f *Factory) Open() (RowSource, error) {
	switch f.format {
	case FormatCSV:
		return NewCSVSource(f.path)
	case FormatParquet:
		return NewParquetSource(f.path)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", f.format)
	}
}

// Path returns the validated input file path
func (f *Factory) Path() string {
	return f.path
}

// Format returns the resolved input format
func (f *Factory) Format() Format {
	return f.format
}

// FileBytes returns the on-disk size of the input file
func (f *Factory) FileBytes() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat input file %s: %w", f.path, err)
	}
	return info.Size(), nil
}

func resolveFormat(path string, format string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return FormatCSV, nil
	case "parquet":
		return FormatParquet, nil
	case "", "auto":
		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".csv":
			return FormatCSV, nil
		case ".parquet":
			return FormatParquet, nil
		default:
			return "", fmt.Errorf("cannot resolve input format from extension %q, set SALES_INPUT_FORMAT explicitly", ext)
		}
	default:
		return "", fmt.Errorf("unsupported input format: %s", format)
	}
}
