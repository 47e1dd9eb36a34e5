// Package tabular defines the string-typed table model shared by the CSV
// loader, the candidate runner, and the comparator.
package tabular

import "fmt"

// Column is a named column with one cell per data row.
type Column struct {
	Name  string   `json:"name"`
	Cells []string `json:"cells"`
}

// Dataset is a rectangular table of strings. Every cell is kept as text, so
// "100" and "100.00" are different values.
type Dataset struct {
	Columns []Column `json:"columns"`
}

// FromRows builds a Dataset from a header row followed by data rows. Every
// data row must have the same width as the header, and column names must be
// unique.
func FromRows(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("tabular: missing header row")
	}
	header := rows[0]
	if len(header) == 0 {
		return nil, fmt.Errorf("tabular: header row is empty")
	}

	seen := make(map[string]struct{}, len(header))
	cols := make([]Column, len(header))
	for i, name := range header {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("tabular: duplicate column %q", name)
		}
		seen[name] = struct{}{}
		cols[i] = Column{Name: name, Cells: make([]string, 0, len(rows)-1)}
	}

	for r, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("tabular: row %d has %d cells, header has %d", r, len(row), len(header))
		}
		for i, cell := range row {
			cols[i].Cells = append(cols[i].Cells, cell)
		}
	}
	return &Dataset{Columns: cols}, nil
}

// RowCount returns the number of data rows.
func (d *Dataset) RowCount() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Cells)
}

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int {
	return len(d.Columns)
}

// ColumnNames returns the column names in declaration order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or false when no such column exists.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// Row returns the i-th data row in column order.
func (d *Dataset) Row(i int) []string {
	row := make([]string, len(d.Columns))
	for c := range d.Columns {
		row[c] = d.Columns[c].Cells[i]
	}
	return row
}

// Rows returns all data rows in column order. The header is not included;
// use ColumnNames for it.
func (d *Dataset) Rows() [][]string {
	rows := make([][]string, d.RowCount())
	for i := range rows {
		rows[i] = d.Row(i)
	}
	return rows
}
