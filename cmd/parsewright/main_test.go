package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"parsewright/internal/config"
	"parsewright/internal/store"
)

func TestInputPathsMissing(t *testing.T) {
	cfg = config.DefaultConfig()
	cfg.Paths.DataDir = t.TempDir()

	_, _, err := inputPaths("acme")
	if err == nil {
		t.Fatal("expected error for missing artifacts")
	}
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
}

func TestInputPathsFound(t *testing.T) {
	cfg = config.DefaultConfig()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir

	base := filepath.Join(dir, "acme")
	if err := os.MkdirAll(base, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	for _, name := range []string{"acme_sample.pdf", "acme_expected.csv"} {
		if err := os.WriteFile(filepath.Join(base, name), []byte("x"), 0644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	input, expected, err := inputPaths("acme")
	if err != nil {
		t.Fatalf("inputPaths returned error: %v", err)
	}
	if !strings.HasSuffix(input, "acme_sample.pdf") {
		t.Errorf("unexpected input path: %s", input)
	}
	if !strings.HasSuffix(expected, "acme_expected.csv") {
		t.Errorf("unexpected expected path: %s", expected)
	}
}

func TestExclusivityNotes(t *testing.T) {
	notes := exclusivityNotes([]string{"Debit Amt", "Credit Amt"})
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	if !strings.Contains(notes[0], "Debit Amt") || !strings.Contains(notes[0], "Credit Amt") {
		t.Errorf("note does not name both columns: %s", notes[0])
	}

	if got := exclusivityNotes(nil); got != nil {
		t.Errorf("expected nil notes for no pair, got %v", got)
	}
	if got := exclusivityNotes([]string{"only one"}); got != nil {
		t.Errorf("expected nil notes for a non-pair, got %v", got)
	}
}

func TestApplyRunOverrides(t *testing.T) {
	cfg = config.DefaultConfig()
	t.Setenv("OPENAI_API_KEY", "sk-test")

	runProvider = "openai"
	runModel = "gpt-4o"
	runMaxAttempts = 5
	defer func() {
		runProvider, runModel, runMaxAttempts = "", "", 0
	}()

	applyRunOverrides()

	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected provider openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected key from OPENAI_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", cfg.LLM.Model)
	}
	if cfg.Loop.MaxAttempts != 5 {
		t.Errorf("expected 5 max attempts, got %d", cfg.Loop.MaxAttempts)
	}
}

func TestStyledVerdict(t *testing.T) {
	for _, verdict := range []string{store.VerdictSucceeded, store.VerdictExhausted, store.VerdictAborted, store.VerdictRunning} {
		if got := styledVerdict(verdict); !strings.Contains(got, verdict) {
			t.Errorf("styled verdict lost its text: %q", got)
		}
	}
}
