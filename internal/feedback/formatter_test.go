package feedback

import (
	"strings"
	"testing"

	"parsewright/internal/compare"
)

func newTestFormatter() *Formatter {
	return NewFormatter([]string{"Debit Amt", "Credit Amt"})
}

func TestFormatMatchIsEmpty(t *testing.T) {
	if got := newTestFormatter().Format(compare.Match()); got != "" {
		t.Errorf("Expected empty feedback for a match, got %q", got)
	}
}

func TestFormatShapeMismatchMentionsPages(t *testing.T) {
	report := compare.NewShapeMismatch(50, 10)
	got := newTestFormatter().Format(report)

	for _, want := range []string{"50", "10", "page"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected feedback to contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatShapeMismatchTooManyRows(t *testing.T) {
	report := compare.NewShapeMismatch(10, 50)
	got := newTestFormatter().Format(report)

	if strings.Contains(got, "multiple pages") {
		t.Errorf("Expected no pagination hint when rows are surplus, got:\n%s", got)
	}
	if !strings.Contains(got, "Skip") {
		t.Errorf("Expected surplus-row guidance, got:\n%s", got)
	}
}

func TestFormatColumnSetMismatch(t *testing.T) {
	report := compare.NewColumnSetMismatch([]string{"Credit Amt"}, []string{"Amount"})
	got := newTestFormatter().Format(report)

	if !strings.Contains(got, "Credit Amt") || !strings.Contains(got, "Amount") {
		t.Errorf("Expected both column names in feedback, got:\n%s", got)
	}
	if !strings.Contains(got, "Missing") || !strings.Contains(got, "Unexpected") {
		t.Errorf("Expected labeled column lists, got:\n%s", got)
	}
}

func TestFormatValueMismatchExclusivityHint(t *testing.T) {
	report := compare.NewValueMismatch(12, "Credit Amt", "", "0.00")
	got := newTestFormatter().Format(report)

	if !strings.Contains(got, "mutually exclusive") {
		t.Errorf("Expected exclusivity hint for Credit Amt, got:\n%s", got)
	}
	if !strings.Contains(got, "row 12") {
		t.Errorf("Expected row reference, got:\n%s", got)
	}
}

func TestFormatValueMismatchPlainColumn(t *testing.T) {
	report := compare.NewValueMismatch(3, "Date", "01-08-2024", "2024-08-01")
	got := newTestFormatter().Format(report)

	if strings.Contains(got, "mutually exclusive") {
		t.Errorf("Expected no exclusivity hint for Date, got:\n%s", got)
	}
	if !strings.Contains(got, `"01-08-2024"`) || !strings.Contains(got, `"2024-08-01"`) {
		t.Errorf("Expected both cell values, got:\n%s", got)
	}
}

func TestFormatValueMismatchWithoutExclusivePair(t *testing.T) {
	report := compare.NewValueMismatch(0, "Credit Amt", "", "0.00")
	got := NewFormatter(nil).Format(report)

	if strings.Contains(got, "mutually exclusive") {
		t.Errorf("Expected no hint when pair is unset, got:\n%s", got)
	}
}

func TestFormatExecutionFaultTruncatesTrace(t *testing.T) {
	trace := strings.Repeat("x", 10*maxTraceLen)
	report := compare.NewFaultReport(compare.KindExecutionFault, "panic", "runtime error: index out of range", trace)
	got := newTestFormatter().Format(report)

	if len(got) > maxTraceLen+500 {
		t.Errorf("Expected bounded feedback, got %d bytes", len(got))
	}
	if !strings.Contains(got, "...") {
		t.Errorf("Expected truncation marker, got tail %q", got[len(got)-20:])
	}
	if !strings.Contains(got, "index out of range") {
		t.Errorf("Expected fault message, got:\n%s", got)
	}
}

func TestFormatTypeMismatchStatesContract(t *testing.T) {
	report := compare.NewFaultReport(compare.KindTypeMismatch, "null_result", "Parse returned a nil table", "")
	got := newTestFormatter().Format(report)

	if !strings.Contains(got, "[][]string") {
		t.Errorf("Expected contract restatement, got:\n%s", got)
	}
	if !strings.Contains(got, "null_result") {
		t.Errorf("Expected fault reason, got:\n%s", got)
	}
}
