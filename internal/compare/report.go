// Package compare implements the validation oracle: a deterministic
// comparison of a candidate's dataset against the expected one, plus the
// report taxonomy every attempt produces.
package compare

import "fmt"

// Kind classifies a verdict.
type Kind string

const (
	KindMatch             Kind = "match"
	KindColumnSetMismatch Kind = "column_set_mismatch"
	KindShapeMismatch     Kind = "shape_mismatch"
	KindValueMismatch     Kind = "value_mismatch"
	KindTypeMismatch      Kind = "type_mismatch"
	KindExecutionFault    Kind = "execution_fault"
)

// ShapeDiff reports a row-count disagreement.
type ShapeDiff struct {
	ExpectedRows int `json:"expected_rows"`
	ActualRows   int `json:"actual_rows"`
}

// ColumnSetDiff reports the symmetric difference between the expected and
// actual column-name sets, each side sorted.
type ColumnSetDiff struct {
	Missing []string `json:"missing,omitempty"`
	Extra   []string `json:"extra,omitempty"`
}

// CellDiff reports the first differing cell in row-major scan order. Row is
// a zero-based data-row index; the header is not counted.
type CellDiff struct {
	Row      int    `json:"row"`
	Column   string `json:"column"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// FaultDiff carries an execution failure into the report taxonomy.
type FaultDiff struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

// Report is the verdict of one attempt. Exactly one detail field is set,
// matching Kind; a match has none.
type Report struct {
	Kind    Kind           `json:"kind"`
	Shape   *ShapeDiff     `json:"shape,omitempty"`
	Columns *ColumnSetDiff `json:"columns,omitempty"`
	Cell    *CellDiff      `json:"cell,omitempty"`
	Fault   *FaultDiff     `json:"fault,omitempty"`
}

// Match returns the accepting verdict.
func Match() Report {
	return Report{Kind: KindMatch}
}

// NewShapeMismatch reports disagreeing row counts.
func NewShapeMismatch(expectedRows, actualRows int) Report {
	return Report{Kind: KindShapeMismatch, Shape: &ShapeDiff{ExpectedRows: expectedRows, ActualRows: actualRows}}
}

// NewColumnSetMismatch reports the symmetric difference of column names.
func NewColumnSetMismatch(missing, extra []string) Report {
	return Report{Kind: KindColumnSetMismatch, Columns: &ColumnSetDiff{Missing: missing, Extra: extra}}
}

// NewValueMismatch reports the first differing cell.
func NewValueMismatch(row int, column, expected, actual string) Report {
	return Report{Kind: KindValueMismatch, Cell: &CellDiff{Row: row, Column: column, Expected: expected, Actual: actual}}
}

// NewFaultReport wraps an execution failure. Kind must be KindTypeMismatch
// for contract violations (bad return value) or KindExecutionFault for
// everything else.
func NewFaultReport(kind Kind, reason, message, trace string) Report {
	return Report{Kind: kind, Fault: &FaultDiff{Reason: reason, Message: message, Trace: trace}}
}

// IsMatch reports whether the candidate output was accepted.
func (r Report) IsMatch() bool {
	return r.Kind == KindMatch
}

// Summary renders a one-line description of the verdict.
func (r Report) Summary() string {
	switch {
	case r.Kind == KindMatch:
		return "output matches expected dataset"
	case r.Kind == KindColumnSetMismatch && r.Columns != nil:
		return fmt.Sprintf("column set mismatch: missing %v, unexpected %v", r.Columns.Missing, r.Columns.Extra)
	case r.Kind == KindShapeMismatch && r.Shape != nil:
		return fmt.Sprintf("row count mismatch: expected %d rows, got %d", r.Shape.ExpectedRows, r.Shape.ActualRows)
	case r.Kind == KindValueMismatch && r.Cell != nil:
		return fmt.Sprintf("value mismatch at row %d, column %q: expected %q, got %q",
			r.Cell.Row, r.Cell.Column, r.Cell.Expected, r.Cell.Actual)
	case r.Kind == KindTypeMismatch && r.Fault != nil:
		return fmt.Sprintf("invalid parser result (%s): %s", r.Fault.Reason, r.Fault.Message)
	case r.Kind == KindExecutionFault && r.Fault != nil:
		return fmt.Sprintf("parser execution failed (%s): %s", r.Fault.Reason, r.Fault.Message)
	default:
		return string(r.Kind)
	}
}
