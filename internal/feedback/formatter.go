// Package feedback renders comparison verdicts into bounded prose suitable
// for a repair prompt. The output is self-contained: the model sees only
// this text plus its previous program, never the raw datasets.
package feedback

import (
	"fmt"
	"strings"

	"parsewright/internal/compare"
)

const (
	maxCellLen  = 256
	maxTraceLen = 1500
)

// Formatter turns a Report into repair guidance. The zero value works; an
// exclusive column pair adds a domain hint for value mismatches that touch
// either column.
type Formatter struct {
	exclusive []string
}

// NewFormatter returns a Formatter. exclusiveColumns names a pair of
// columns where each row carries a value in exactly one of the two; any
// other length disables the hint.
func NewFormatter(exclusiveColumns []string) *Formatter {
	f := &Formatter{}
	if len(exclusiveColumns) == 2 {
		f.exclusive = exclusiveColumns
	}
	return f
}

// Format renders the report as repair guidance. A match renders as the
// empty string.
func (f *Formatter) Format(r compare.Report) string {
	switch r.Kind {
	case compare.KindMatch:
		return ""
	case compare.KindColumnSetMismatch:
		return f.formatColumnSet(r)
	case compare.KindShapeMismatch:
		return f.formatShape(r)
	case compare.KindValueMismatch:
		return f.formatValue(r)
	case compare.KindTypeMismatch:
		return f.formatTypeFault(r)
	case compare.KindExecutionFault:
		return f.formatExecutionFault(r)
	default:
		return r.Summary()
	}
}

func (f *Formatter) formatColumnSet(r compare.Report) string {
	var b strings.Builder
	b.WriteString("The returned header does not match the expected column set.\n")
	if len(r.Columns.Missing) > 0 {
		fmt.Fprintf(&b, "Missing columns (expected but absent): %s\n", strings.Join(r.Columns.Missing, ", "))
	}
	if len(r.Columns.Extra) > 0 {
		fmt.Fprintf(&b, "Unexpected columns (returned but not expected): %s\n", strings.Join(r.Columns.Extra, ", "))
	}
	b.WriteString("Return exactly the expected column names, spelled exactly as given. Column order does not matter.")
	return b.String()
}

func (f *Formatter) formatShape(r compare.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Row count mismatch: expected %d data rows, got %d.\n", r.Shape.ExpectedRows, r.Shape.ActualRows)
	if r.Shape.ActualRows < r.Shape.ExpectedRows {
		b.WriteString("The parser likely stopped too early. Bank statements usually span multiple pages; walk every page of the document and accumulate the rows from all of them before returning.")
	} else {
		b.WriteString("The parser emitted rows that are not transactions. Skip repeated page headers, footers, summary lines, and carried-forward balance rows.")
	}
	return b.String()
}

func (f *Formatter) formatValue(r compare.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "First differing cell: data row %d, column %q.\n", r.Cell.Row, r.Cell.Column)
	fmt.Fprintf(&b, "Expected: %q\n", truncate(r.Cell.Expected, maxCellLen))
	fmt.Fprintf(&b, "Actual:   %q\n", truncate(r.Cell.Actual, maxCellLen))
	b.WriteString("Cells compare as exact strings after trimming: keep the source formatting, do not reformat numbers or dates.")
	if f.isExclusive(r.Cell.Column) {
		fmt.Fprintf(&b, "\nColumns %q and %q are mutually exclusive: each row carries a value in exactly one of them. Leave the inactive one as an empty string, never zero.",
			f.exclusive[0], f.exclusive[1])
	}
	return b.String()
}

func (f *Formatter) formatTypeFault(r compare.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The parser returned an invalid result (%s): %s\n", r.Fault.Reason, r.Fault.Message)
	b.WriteString("Parse must return the full table as [][]string: the header row first, then one slice per data row, every row the same width as the header. Never return nil on success.")
	return b.String()
}

func (f *Formatter) formatExecutionFault(r compare.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The parser failed to run (%s): %s", r.Fault.Reason, r.Fault.Message)
	if r.Fault.Trace != "" {
		fmt.Fprintf(&b, "\nTrace:\n%s", truncate(r.Fault.Trace, maxTraceLen))
	}
	return b.String()
}

func (f *Formatter) isExclusive(column string) bool {
	for _, c := range f.exclusive {
		if c == column {
			return true
		}
	}
	return false
}

// truncate limits s to max bytes, marking the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
