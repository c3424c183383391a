// pkg/report/table.go
package report

// Table is one finished report: ordered columns and value rows ready to
// render.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]interface{}
}

// RowCount returns the number of value rows in the table
func (t Table) RowCount() int {
	return len(t.Rows)
}
