package preview

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"parsewright/internal/tabular"
)

func mustDataset(t *testing.T, rows [][]string) *tabular.Dataset {
	t.Helper()
	ds, err := tabular.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}
	return ds
}

func TestScrapeContentText(t *testing.T) {
	stream := `BT
/F1 12 Tf
100 700 Td
(Date) Tj
(01-08-2024) Tj
[(UPI\(ref\)) -120 (100.00)] TJ
ET`

	got := scrapeContentText(stream)
	for _, want := range []string{"Date", "01-08-2024", "UPI(ref)", "100.00"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected scraped text to contain %q, got %q", want, got)
		}
	}
}

func TestScrapeContentTextEmptyStream(t *testing.T) {
	if got := scrapeContentText("BT /F1 12 Tf ET"); got != "" {
		t.Errorf("Expected empty result for stream without strings, got %q", got)
	}
}

func TestUnescapePDFString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"escaped parens", `a\(b\)c`, "a(b)c"},
		{"escaped backslash", `a\\b`, `a\b`},
		{"newline and tab", `a\nb\tc`, "a\nb\tc"},
		{"octal", `\101\102`, "AB"},
		{"short octal", `\12`, "\n"},
		{"unknown escape passes through", `a\qb`, "aqb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unescapePDFString(tt.input); got != tt.want {
				t.Errorf("unescapePDFString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildDegradesWithoutDocument(t *testing.T) {
	dir := t.TempDir()
	expectedPath := filepath.Join(dir, "icici_expected.csv")
	csvContent := "Date,Description,Debit Amt,Credit Amt,Balance\n" +
		"01-08-2024,Salary,,5000.00,5000.00\n" +
		"02-08-2024,Rent,1200.00,,3800.00\n"
	if err := os.WriteFile(expectedPath, []byte(csvContent), 0644); err != nil {
		t.Fatalf("Failed to write expected CSV: %v", err)
	}

	builder := NewBuilder(Config{Notes: []string{"Debit Amt and Credit Amt are mutually exclusive."}})
	task, err := builder.Build(context.Background(), "icici", filepath.Join(dir, "absent.pdf"), expectedPath)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if task.InputPreview != "" {
		t.Errorf("Expected empty excerpt for missing document, got %q", task.InputPreview)
	}
	if len(task.Columns) != 5 || task.Columns[2] != "Debit Amt" {
		t.Errorf("Unexpected columns: %v", task.Columns)
	}
	if !strings.Contains(task.ExpectedPreview, "Salary") {
		t.Errorf("Expected CSV head in preview, got %q", task.ExpectedPreview)
	}
	if len(task.Notes) != 1 {
		t.Errorf("Expected notes passed through, got %v", task.Notes)
	}
}

func TestBuildFailsWithoutExpectedCSV(t *testing.T) {
	dir := t.TempDir()
	builder := NewBuilder(Config{})

	_, err := builder.Build(context.Background(), "icici", filepath.Join(dir, "absent.pdf"), filepath.Join(dir, "absent.csv"))
	if err == nil {
		t.Fatal("Expected error for missing expected CSV")
	}
}

func TestRenderCSVHeadTruncatesRows(t *testing.T) {
	rows := [][]string{{"n", "note"}}
	for i := 0; i < 10; i++ {
		rows = append(rows, []string{"1", "has, comma"})
	}
	ds := mustDataset(t, rows)

	got := renderCSVHead(ds, 3)
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Errorf("Expected header plus 3 rows, got %d lines:\n%s", len(lines), got)
	}
	if !strings.Contains(got, `"has, comma"`) {
		t.Errorf("Expected CSV quoting preserved, got %q", got)
	}
}

func TestClamp(t *testing.T) {
	if got := clamp("abcdef", 4); got != "abcd..." {
		t.Errorf("Expected clamped string, got %q", got)
	}
	if got := clamp("abc", 4); got != "abc" {
		t.Errorf("Expected short string untouched, got %q", got)
	}
}
