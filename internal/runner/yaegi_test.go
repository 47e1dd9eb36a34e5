package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestRunner() *YaegiRunner {
	return NewYaegiRunner(Config{Timeout: 10 * time.Second})
}

func TestRunHappyPath(t *testing.T) {
	input := filepath.Join(t.TempDir(), "sample.txt")
	content := "Date|Amount\n01-08-2024|100.00\n02-08-2024|50.25\n"
	if err := os.WriteFile(input, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	source := `package main

import (
	"os"
	"strings"
)

func Parse(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		rows = append(rows, strings.Split(line, "|"))
	}
	return rows, nil
}
`

	ds, fault := newTestRunner().Run(context.Background(), source, input)
	if fault != nil {
		t.Fatalf("Expected success, got fault %v", fault)
	}
	if ds.RowCount() != 2 || ds.ColumnCount() != 2 {
		t.Errorf("Expected 2x2 dataset, got %dx%d", ds.RowCount(), ds.ColumnCount())
	}
	col, ok := ds.Column("Amount")
	if !ok {
		t.Fatal("Expected Amount column")
	}
	if col.Cells[0] != "100.00" {
		t.Errorf("Expected cell 100.00, got %q", col.Cells[0])
	}
}

func TestRunForbiddenImport(t *testing.T) {
	source := `package main

import "net/http"

func Parse(path string) ([][]string, error) {
	_, _ = http.Get("http://example.com")
	return nil, nil
}
`

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonForbiddenImport {
		t.Fatalf("Expected forbidden_import fault, got %v", fault)
	}
	if !strings.Contains(fault.Message, "net/http") {
		t.Errorf("Expected offending import named, got %q", fault.Message)
	}
}

func TestRunSyntaxError(t *testing.T) {
	source := "package main\n\nfunc Parse(path string ([][]string, error) {\n"

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonCompileError {
		t.Fatalf("Expected compile_error fault, got %v", fault)
	}
}

func TestRunWrongPackage(t *testing.T) {
	source := `package parser

func Parse(path string) ([][]string, error) { return nil, nil }
`

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonCompileError {
		t.Fatalf("Expected compile_error fault, got %v", fault)
	}
	if !strings.Contains(fault.Message, "package main") {
		t.Errorf("Expected package requirement in message, got %q", fault.Message)
	}
}

func TestRunBodySyntaxError(t *testing.T) {
	// The import pre-flight only parses the header; a broken body must
	// still surface as a compile error from the interpreter.
	source := `package main

func Parse(path string) ([][]string, error) {
	return nil,
}
`

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonCompileError {
		t.Fatalf("Expected compile_error fault, got %v", fault)
	}
}

func TestRunMissingEntryPoint(t *testing.T) {
	source := `package main

func Extract(path string) ([][]string, error) { return nil, nil }
`

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonEntryPointMissing {
		t.Fatalf("Expected entry_point_missing fault, got %v", fault)
	}
}

func TestRunWrongSignature(t *testing.T) {
	source := `package main

func Parse(path string) string { return path }
`

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonWrongSignature {
		t.Fatalf("Expected wrong_signature fault, got %v", fault)
	}
	if !fault.ContractViolation() {
		t.Error("Expected wrong_signature to count as a contract violation")
	}
}

func TestRunNullResult(t *testing.T) {
	source := `package main

func Parse(path string) ([][]string, error) { return nil, nil }
`

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonNullResult {
		t.Fatalf("Expected null_result fault, got %v", fault)
	}
	if !fault.ContractViolation() {
		t.Error("Expected null_result to count as a contract violation")
	}
}

func TestRunRaggedResult(t *testing.T) {
	source := `package main

func Parse(path string) ([][]string, error) {
	return [][]string{{"a", "b"}, {"1"}}, nil
}
`

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonWrongType {
		t.Fatalf("Expected wrong_type fault, got %v", fault)
	}
}

func TestRunEntryFailed(t *testing.T) {
	source := `package main

import "errors"

func Parse(path string) ([][]string, error) {
	return nil, errors.New("document is encrypted")
}
`

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonEntryFailed {
		t.Fatalf("Expected entry_failed fault, got %v", fault)
	}
	if !strings.Contains(fault.Message, "document is encrypted") {
		t.Errorf("Expected candidate error preserved, got %q", fault.Message)
	}
	if fault.ContractViolation() {
		t.Error("Expected entry_failed to not count as a contract violation")
	}
}

func TestRunPanicContained(t *testing.T) {
	source := `package main

func Parse(path string) ([][]string, error) {
	rows := [][]string{}
	_ = rows[5]
	return rows, nil
}
`

	_, fault := newTestRunner().Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonPanic {
		t.Fatalf("Expected panic fault, got %v", fault)
	}
}

func TestRunTimeout(t *testing.T) {
	source := `package main

import "time"

func Parse(path string) ([][]string, error) {
	time.Sleep(5 * time.Second)
	return [][]string{{"a"}}, nil
}
`

	r := NewYaegiRunner(Config{Timeout: 150 * time.Millisecond})
	start := time.Now()
	_, fault := r.Run(context.Background(), source, "ignored")
	if fault == nil || fault.Reason != ReasonTimeout {
		t.Fatalf("Expected timeout fault, got %v", fault)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Expected prompt timeout, took %v", elapsed)
	}
}

func TestRunHonorsCallerDeadline(t *testing.T) {
	source := `package main

import "time"

func Parse(path string) ([][]string, error) {
	time.Sleep(5 * time.Second)
	return [][]string{{"a"}}, nil
}
`

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	// Runner-level timeout is generous; the caller's deadline must win.
	_, fault := NewYaegiRunner(Config{Timeout: time.Minute}).Run(ctx, source, "ignored")
	if fault == nil || fault.Reason != ReasonTimeout {
		t.Fatalf("Expected timeout fault from caller deadline, got %v", fault)
	}
}

func TestRunIsolatesCandidates(t *testing.T) {
	r := newTestRunner()

	first := `package main

var counter = 1

func Parse(path string) ([][]string, error) {
	return [][]string{{"n"}, {"1"}}, nil
}
`
	second := `package main

func Parse(path string) ([][]string, error) {
	return [][]string{{"n"}, {"2"}}, nil
}
`

	if _, fault := r.Run(context.Background(), first, "ignored"); fault != nil {
		t.Fatalf("First run failed: %v", fault)
	}
	ds, fault := r.Run(context.Background(), second, "ignored")
	if fault != nil {
		t.Fatalf("Second run failed: %v", fault)
	}
	if ds.Columns[0].Cells[0] != "2" {
		t.Errorf("Expected second candidate's output, got %q", ds.Columns[0].Cells[0])
	}
}

func TestCustomEntryPoint(t *testing.T) {
	source := `package main

func Extract(path string) ([][]string, error) {
	return [][]string{{"col"}, {"val"}}, nil
}
`

	r := NewYaegiRunner(Config{EntryPoint: "Extract", Timeout: 10 * time.Second})
	ds, fault := r.Run(context.Background(), source, "ignored")
	if fault != nil {
		t.Fatalf("Expected success with custom entry point, got %v", fault)
	}
	if ds.RowCount() != 1 {
		t.Errorf("Expected 1 row, got %d", ds.RowCount())
	}
}
