// pkg/converter/mapping.go
package converter

import (
	"strings"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

// TypeMapping assigns a semantic type to each known column name. The mapping
// is data, not code: the coercion stage walks the schema and applies whatever
// the table declares, so retargeting the pipeline to a new extract means
// editing this table only.
type TypeMapping map[string]model.FieldType

// DefaultTypeMapping returns the column typing for the Iowa retail extract.
func DefaultTypeMapping() TypeMapping {
	return TypeMapping{
		"Date": model.TypeDate,

		"Bottles Sold":          model.TypeInteger,
		"Sale (Dollars)":        model.TypeFloat,
		"Volume Sold (Liters)":  model.TypeFloat,
		"Volume Sold (Gallons)": model.TypeFloat,

		"Invoice/Item Number": model.TypeString,
		"Store Name":          model.TypeString,
		"City":                model.TypeString,
		"Zip Code":            model.TypeString,
		"County":              model.TypeString,
		"Category":            model.TypeString,
		"Category Name":       model.TypeString,
		"Vendor Name":         model.TypeString,
		"Item Description":    model.TypeString,
	}
}

// TypeFor resolves the declared semantic type for a column
// (case-insensitive). Columns absent from the mapping stay strings.
func (m TypeMapping) TypeFor(column string) model.FieldType {
	if t, ok := m[column]; ok {
		return t
	}
	for name, t := range m {
		if strings.EqualFold(name, column) {
			return t
		}
	}
	return model.TypeString
}

// PostgresType maps a semantic type to the PostgreSQL column type used when
// report tables are persisted.
func PostgresType(t model.FieldType) string {
	switch t {
	case model.TypeInteger:
		return "BIGINT"
	case model.TypeFloat:
		return "DOUBLE PRECISION"
	case model.TypeDate:
		return "DATE"
	case model.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}
