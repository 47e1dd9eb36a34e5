package compare

import (
	"sort"

	"parsewright/internal/tabular"
)

// Compare checks actual against expected and returns the first divergence
// found. Both datasets must already be normalized.
//
// The checks run in a fixed order: column-name sets first (order ignored),
// then row counts, then a row-major cell scan in the expected dataset's
// column order. Row order is significant and cells compare by strict string
// equality, so "100" and "100.00" differ.
func Compare(expected, actual *tabular.Dataset) Report {
	missing, extra := columnSetDiff(expected, actual)
	if len(missing) > 0 || len(extra) > 0 {
		return NewColumnSetMismatch(missing, extra)
	}

	if expected.RowCount() != actual.RowCount() {
		return NewShapeMismatch(expected.RowCount(), actual.RowCount())
	}

	cells := make(map[string][]string, actual.ColumnCount())
	for _, c := range actual.Columns {
		cells[c.Name] = c.Cells
	}

	for row := 0; row < expected.RowCount(); row++ {
		for _, ec := range expected.Columns {
			got := cells[ec.Name][row]
			if ec.Cells[row] != got {
				return NewValueMismatch(row, ec.Name, ec.Cells[row], got)
			}
		}
	}
	return Match()
}

// columnSetDiff returns the sorted symmetric difference of the two column
// name sets.
func columnSetDiff(expected, actual *tabular.Dataset) (missing, extra []string) {
	exp := make(map[string]struct{}, expected.ColumnCount())
	for _, c := range expected.Columns {
		exp[c.Name] = struct{}{}
	}
	act := make(map[string]struct{}, actual.ColumnCount())
	for _, c := range actual.Columns {
		act[c.Name] = struct{}{}
	}

	for name := range exp {
		if _, ok := act[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range act {
		if _, ok := exp[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}
