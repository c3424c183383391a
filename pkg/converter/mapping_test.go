// pkg/converter/mapping_test.go
package converter

import (
	"testing"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

func TestTypeFor(t *testing.T) {
	mapping := DefaultTypeMapping()

	tests := []struct {
		name   string
		column string
		want   model.FieldType
	}{
		{name: "date column", column: "Date", want: model.TypeDate},
		{name: "integer column", column: "Bottles Sold", want: model.TypeInteger},
		{name: "float column", column: "Sale (Dollars)", want: model.TypeFloat},
		{name: "string column", column: "Category Name", want: model.TypeString},
		{name: "case-insensitive lookup", column: "bottles sold", want: model.TypeInteger},
		{name: "unknown column defaults to string", column: "Store Location", want: model.TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapping.TypeFor(tt.column); got != tt.want {
				t.Errorf("TypeFor(%q) = %v, want %v", tt.column, got, tt.want)
			}
		})
	}
}

func TestPostgresType(t *testing.T) {
	tests := []struct {
		in   model.FieldType
		want string
	}{
		{model.TypeString, "TEXT"},
		{model.TypeInteger, "BIGINT"},
		{model.TypeFloat, "DOUBLE PRECISION"},
		{model.TypeDate, "DATE"},
		{model.TypeBoolean, "BOOLEAN"},
	}

	for _, tt := range tests {
		if got := PostgresType(tt.in); got != tt.want {
			t.Errorf("PostgresType(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
