// pkg/model/schema.go
package model

import "strings"

// FieldType is the semantic type a cleaned column is coerced to.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeFloat   FieldType = "float"
	TypeDate    FieldType = "date"
	TypeBoolean FieldType = "boolean"
)

// Row is a single record keyed by column name. Missing values are nil.
type Row = map[string]interface{}

// Column represents metadata about a dataset column
type Column struct {
	Name       string    // Column name as it appears in the source
	Type       FieldType // Semantic type after coercion
	SourceType string    // Original type reported by the source, if any
}

// Schema is the ordered column list of a logical table. Order is significant:
// cleaned output preserves source order with derived columns appended.
type Schema struct {
	Columns []Column
}

// ColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (s *Schema) ColumnByName(name string) *Column {
	normalized := normalizeColumnName(name)
	for i, col := range s.Columns {
		if normalizeColumnName(col.Name) == normalized {
			return &s.Columns[i]
		}
	}
	return nil
}

// HasColumn reports whether a column exists (case-insensitive).
func (s Schema) HasColumn(name string) bool {
	return s.ColumnByName(name) != nil
}

// ColumnNames returns the column names in schema order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Without returns a copy of the schema with the named columns removed.
// Unknown names are ignored.
func (s *Schema) Without(names []string) Schema {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[normalizeColumnName(n)] = struct{}{}
	}
	out := Schema{Columns: make([]Column, 0, len(s.Columns))}
	for _, col := range s.Columns {
		if _, ok := drop[normalizeColumnName(col.Name)]; ok {
			continue
		}
		out.Columns = append(out.Columns, col)
	}
	return out
}

// Append returns a copy of the schema with columns added at the end.
func (s *Schema) Append(cols ...Column) Schema {
	out := Schema{Columns: make([]Column, 0, len(s.Columns)+len(cols))}
	out.Columns = append(out.Columns, s.Columns...)
	out.Columns = append(out.Columns, cols...)
	return out
}

// Helper for case-insensitive column lookups
func normalizeColumnName(name string) string {
	return strings.ToLower(name)
}
