package tabular

import "strings"

// Textual null forms produced when dataframe-style tooling stringifies a
// missing value.
var nullLiterals = map[string]struct{}{
	"nan":  {},
	"<NA>": {},
	"None": {},
}

// NormalizeCell trims surrounding whitespace, then collapses textual null
// forms to the empty string. Matching is case-sensitive: "nan" collapses,
// "NaN" does not.
func NormalizeCell(s string) string {
	t := strings.TrimSpace(s)
	if _, null := nullLiterals[t]; null {
		return ""
	}
	return t
}

// Normalize returns a copy of d with NormalizeCell applied to every cell.
// Column names are left untouched. Normalize is idempotent: applying it to
// an already-normalized dataset changes nothing.
func Normalize(d *Dataset) *Dataset {
	cols := make([]Column, len(d.Columns))
	for i, c := range d.Columns {
		cells := make([]string, len(c.Cells))
		for j, cell := range c.Cells {
			cells[j] = NormalizeCell(cell)
		}
		cols[i] = Column{Name: c.Name, Cells: cells}
	}
	return &Dataset{Columns: cols}
}
