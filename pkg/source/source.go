// pkg/source/source.go
package source

import (
	"context"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

// RowSource defines the interface for streaming file sources
type RowSource interface {
	// Schema returns the column layout discovered from the file
	Schema(ctx context.Context) (model.Schema, error)

	// Read returns up to max rows. It returns io.EOF once the source is
	// exhausted and the returned batch is empty.
	Read(ctx context.Context, max int) ([]model.Row, error)

	// TotalRows returns the exact row count when the format's metadata
	// provides one (parquet), with ok=false otherwise (csv).
	TotalRows() (count int64, ok bool)

	// Close releases the underlying file handle
	Close() error
}

// ByteTracker is implemented by sources that can report encoded bytes
// consumed by data rows. The size estimator uses the counts to extrapolate
// row totals for formats without row-count metadata.
type ByteTracker interface {
	// BytesRead returns encoded bytes consumed by data rows so far
	BytesRead() int64

	// HeaderBytes returns the bytes taken by the header row and any BOM
	HeaderBytes() int64
}
