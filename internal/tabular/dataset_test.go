package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromRows(t *testing.T) {
	ds, err := FromRows([][]string{
		{"Date", "Description", "Balance"},
		{"01-08-2024", "Salary", "5000.00"},
		{"02-08-2024", "Rent", "3800.00"},
	})
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}

	if ds.RowCount() != 2 {
		t.Errorf("Expected 2 rows, got %d", ds.RowCount())
	}
	if ds.ColumnCount() != 3 {
		t.Errorf("Expected 3 columns, got %d", ds.ColumnCount())
	}

	col, ok := ds.Column("Balance")
	if !ok {
		t.Fatal("Expected Balance column to exist")
	}
	if col.Cells[1] != "3800.00" {
		t.Errorf("Expected cell 3800.00, got %q", col.Cells[1])
	}

	if _, ok := ds.Column("Amount"); ok {
		t.Error("Expected lookup of missing column to fail")
	}

	row := ds.Row(0)
	if diff := cmp.Diff([]string{"01-08-2024", "Salary", "5000.00"}, row); diff != "" {
		t.Errorf("Row mismatch (-want +got):\n%s", diff)
	}
}

func TestFromRowsRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{"no rows", nil},
		{"empty header", [][]string{{}}},
		{"ragged row", [][]string{{"a", "b"}, {"1"}}},
		{"wide row", [][]string{{"a", "b"}, {"1", "2", "3"}}},
		{"duplicate column", [][]string{{"a", "a"}, {"1", "2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromRows(tt.rows); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestFromRowsHeaderOnly(t *testing.T) {
	ds, err := FromRows([][]string{{"Date", "Balance"}})
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}
	if ds.RowCount() != 0 {
		t.Errorf("Expected 0 rows, got %d", ds.RowCount())
	}
	if len(ds.Rows()) != 0 {
		t.Errorf("Expected no data rows, got %v", ds.Rows())
	}
}

func TestReadCSV(t *testing.T) {
	raw := "\uFEFFDate,Debit Amt,Credit Amt\n" +
		"01-08-2024, 100.00 ,nan\n" +
		"02-08-2024,<NA>,50.25\n"

	ds, err := ReadCSV(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	want := &Dataset{Columns: []Column{
		{Name: "Date", Cells: []string{"01-08-2024", "02-08-2024"}},
		{Name: "Debit Amt", Cells: []string{"100.00", ""}},
		{Name: "Credit Amt", Cells: []string{"", "50.25"}},
	}}
	if diff := cmp.Diff(want, ds); diff != "" {
		t.Errorf("ReadCSV mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSVRejectsRaggedRecords(t *testing.T) {
	raw := "a,b\n1,2,3\n"
	if _, err := ReadCSV(strings.NewReader(raw)); err == nil {
		t.Error("Expected error for ragged record, got nil")
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expected.csv")
	content := "Date,Balance\n01-08-2024,5000.00\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	ds, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if ds.RowCount() != 1 || ds.ColumnCount() != 2 {
		t.Errorf("Expected 1x2 dataset, got %dx%d", ds.RowCount(), ds.ColumnCount())
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}
