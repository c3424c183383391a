// pkg/source/parquet.go
package source

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	pqsource "github.com/xitongsys/parquet-go/source"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

// parquetColumn carries the decoding details for one leaf column
type parquetColumn struct {
	name      string
	inName    string
	fieldType model.FieldType
	converted *parquet.ConvertedType
}

// ParquetSource streams rows from a parquet file. The footer schema is
// mapped onto field types up front, and the exact row count comes from the
// file metadata without scanning.
type ParquetSource struct {
	path      string
	file      pqsource.ParquetFile
	reader    *reader.ParquetReader
	columns   []parquetColumn
	schema    model.Schema
	totalRows int64
	rowsRead  int64
	done      bool
}

// NewParquetSource opens the file and reads its footer schema. Nested
// schemas are rejected since the pipeline operates on flat tabular data.
func NewParquetSource(path string) (*ParquetSource, error) {
	file, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}

	pr, err := reader.NewParquetReader(file, nil, 2)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read parquet footer from %s: %w", path, err)
	}

	columns, err := buildParquetColumns(pr)
	if err != nil {
		pr.ReadStop()
		file.Close()
		return nil, fmt.Errorf("unsupported parquet schema in %s: %w", path, err)
	}

	schemaCols := make([]model.Column, 0, len(columns))
	for _, col := range columns {
		schemaCols = append(schemaCols, model.Column{
			Name:       col.name,
			Type:       col.fieldType,
			SourceType: "parquet",
		})
	}

	return &ParquetSource{
		path:      path,
		file:      file,
		reader:    pr,
		columns:   columns,
		schema:    model.Schema{Columns: schemaCols},
		totalRows: pr.GetNumRows(),
	}, nil
}

// buildParquetColumns maps the footer schema onto leaf column descriptors.
// Element 0 of the schema handler is the synthetic root; leaves follow in
// declaration order for flat files.
func buildParquetColumns(pr *reader.ParquetReader) ([]parquetColumn, error) {
	elements := pr.SchemaHandler.SchemaElements
	infos := pr.SchemaHandler.Infos
	if len(elements) < 2 {
		return nil, fmt.Errorf("file declares no columns")
	}
	if len(elements) != len(infos) {
		return nil, fmt.Errorf("nested schemas are not supported")
	}

	columns := make([]parquetColumn, 0, len(elements)-1)
	for i := 1; i < len(elements); i++ {
		el := elements[i]
		if el.NumChildren != nil && *el.NumChildren > 0 {
			return nil, fmt.Errorf("nested schemas are not supported, column %s has children", infos[i].ExName)
		}
		if el.Type == nil {
			return nil, fmt.Errorf("column %s declares no physical type", infos[i].ExName)
		}
		columns = append(columns, parquetColumn{
			name:      infos[i].ExName,
			inName:    infos[i].InName,
			fieldType: mapParquetType(*el.Type, el.ConvertedType),
			converted: el.ConvertedType,
		})
	}
	return columns, nil
}

func mapParquetType(physical parquet.Type, converted *parquet.ConvertedType) model.FieldType {
	if converted != nil {
		switch *converted {
		case parquet.ConvertedType_DATE,
			parquet.ConvertedType_TIMESTAMP_MILLIS,
			parquet.ConvertedType_TIMESTAMP_MICROS:
			return model.TypeDate
		case parquet.ConvertedType_UTF8:
			return model.TypeString
		}
	}
	switch physical {
	case parquet.Type_BOOLEAN:
		return model.TypeBoolean
	case parquet.Type_INT32, parquet.Type_INT64:
		return model.TypeInteger
	case parquet.Type_FLOAT, parquet.Type_DOUBLE:
		return model.TypeFloat
	default:
		return model.TypeString
	}
}

// Schema returns the column layout mapped from the parquet footer
func (s *ParquetSource) Schema(ctx context.Context) (model.Schema, error) {
	return s.schema, nil
}

// Read returns up to max rows decoded into generic rows, with missing
// optional values surfaced as nil. It returns io.EOF once all rows have
// been handed out.
func (s *ParquetSource) Read(ctx context.Context, max int) ([]model.Row, error) {
	if s.done {
		return nil, io.EOF
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	remaining := s.totalRows - s.rowsRead
	if remaining <= 0 {
		s.done = true
		return nil, io.EOF
	}
	if max <= 0 {
		max = 1
	}
	if int64(max) > remaining {
		max = int(remaining)
	}

	records, err := s.reader.ReadByNumber(max)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet rows from %s: %w", s.path, err)
	}
	if len(records) == 0 {
		s.done = true
		return nil, io.EOF
	}

	rows := make([]model.Row, 0, len(records))
	for _, record := range records {
		value := reflect.ValueOf(record)
		if value.Kind() == reflect.Ptr {
			value = value.Elem()
		}
		row := make(model.Row, len(s.columns))
		for _, col := range s.columns {
			field := value.FieldByName(col.inName)
			if !field.IsValid() {
				return nil, fmt.Errorf("parquet record in %s is missing column %s", s.path, col.name)
			}
			row[col.name] = decodeParquetValue(field, col.converted)
		}
		rows = append(rows, row)
	}
	s.rowsRead += int64(len(records))
	return rows, nil
}

// decodeParquetValue converts one reflected struct field into a generic
// value. Optional columns arrive as pointers, with nil meaning null.
func decodeParquetValue(field reflect.Value, converted *parquet.ConvertedType) interface{} {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil
		}
		field = field.Elem()
	}

	switch field.Kind() {
	case reflect.Bool:
		return field.Bool()
	case reflect.String:
		return field.String()
	case reflect.Int, reflect.Int32, reflect.Int64:
		n := field.Int()
		if converted != nil {
			switch *converted {
			case parquet.ConvertedType_DATE:
				return time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(n))
			case parquet.ConvertedType_TIMESTAMP_MILLIS:
				return time.UnixMilli(n).UTC()
			case parquet.ConvertedType_TIMESTAMP_MICROS:
				return time.UnixMicro(n).UTC()
			}
		}
		return n
	case reflect.Float32, reflect.Float64:
		return field.Float()
	default:
		return field.Interface()
	}
}

// TotalRows returns the exact row count from the file metadata
func (s *ParquetSource) TotalRows() (int64, bool) {
	return s.totalRows, true
}

// Close stops the reader and releases the file handle
func (s *ParquetSource) Close() error {
	s.reader.ReadStop()
	return s.file.Close()
}
