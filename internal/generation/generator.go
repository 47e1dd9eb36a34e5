package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parsewright/internal/llm"
	"parsewright/internal/logging"
)

// systemPrompt pins down the candidate contract. Every generation and
// repair call carries it unchanged.
const systemPrompt = `You are an expert Go developer writing bank statement parsers.

Write a complete, self-contained Go program that extracts the transaction
table from a bank statement document.

Requirements:
- Declare package main.
- Export exactly this entry point: func Parse(path string) ([][]string, error)
- Parse receives the path of the statement document. Return the full table:
  the header row first, then one row per transaction, every row the same
  width as the header.
- Return cell values exactly as printed in the document. Do not reformat
  numbers or dates, and never invent values. Use the empty string for cells
  that are blank in the statement.
- Import only Go standard library packages for text and file handling
  (strings, regexp, os, bufio, strconv and the like). Network, exec, and
  unsafe imports are rejected before your code runs.
- Process every page of the document, not just the first.

Respond with a single Go code block and nothing else.`

// LLMGenerator implements Generator on top of a completion client.
type LLMGenerator struct {
	client llm.Client
	model  string
}

// NewLLMGenerator creates a generator. model is recorded on artifacts for
// the run history; it does not change which model the client calls.
func NewLLMGenerator(client llm.Client, model string) *LLMGenerator {
	return &LLMGenerator{client: client, model: model}
}

// Generate produces the first candidate for a task.
func (g *LLMGenerator) Generate(ctx context.Context, task TaskDescription) (*Artifact, error) {
	timer := logging.StartTimer(logging.CategoryGeneration, "generate candidate")
	defer timer.Stop()

	prompt := buildGeneratePrompt(task)
	logging.GenerationDebug("generate prompt: target=%s bytes=%d", task.Target, len(prompt))

	response, err := g.complete(ctx, "generate", prompt)
	if err != nil {
		return nil, fmt.Errorf("generate candidate: %w", err)
	}
	return g.artifactFromResponse(response)
}

// Repair produces the next candidate from the previous program plus the
// formatted validation feedback.
func (g *LLMGenerator) Repair(ctx context.Context, current *Artifact, feedback string) (*Artifact, error) {
	timer := logging.StartTimer(logging.CategoryGeneration, "repair candidate")
	defer timer.Stop()

	prompt := buildRepairPrompt(current.Source, feedback)
	logging.GenerationDebug("repair prompt: bytes=%d", len(prompt))

	response, err := g.complete(ctx, "repair", prompt)
	if err != nil {
		return nil, fmt.Errorf("repair candidate: %w", err)
	}
	return g.artifactFromResponse(response)
}

// complete runs one provider round trip and leaves it on the audit trail.
func (g *LLMGenerator) complete(ctx context.Context, kind, prompt string) (string, error) {
	logging.AuditLLMSent(g.model, kind, len(prompt))
	start := time.Now()
	response, err := g.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	logging.AuditLLMExchange(g.model, kind, len(response), time.Since(start).Milliseconds(), err)
	return response, err
}

func (g *LLMGenerator) artifactFromResponse(response string) (*Artifact, error) {
	source := ExtractCodeBlock(response, "go")
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("model returned no code")
	}
	return &Artifact{
		Source:    source,
		Model:     g.model,
		CreatedAt: time.Now(),
	}, nil
}

func buildGeneratePrompt(task TaskDescription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a parser for %s bank statements.\n\n", task.Target)

	if len(task.Columns) > 0 {
		fmt.Fprintf(&b, "The output table must have exactly these columns:\n%s\n\n", strings.Join(task.Columns, ", "))
	}
	if task.InputPreview != "" {
		fmt.Fprintf(&b, "--- DOCUMENT TEXT (excerpt) ---\n%s\n\n", task.InputPreview)
	}
	if task.ExpectedPreview != "" {
		fmt.Fprintf(&b, "--- EXPECTED OUTPUT (first rows, CSV) ---\n%s\n\n", task.ExpectedPreview)
	}
	for _, note := range task.Notes {
		fmt.Fprintf(&b, "Note: %s\n", note)
	}
	if task.InputPath != "" {
		fmt.Fprintf(&b, "\nAt runtime Parse receives the document path %q.\n", task.InputPath)
	}
	return b.String()
}

func buildRepairPrompt(previous, feedback string) string {
	var b strings.Builder
	b.WriteString("The previous parser failed validation.\n\n")
	b.WriteString("--- VALIDATION FEEDBACK ---\n")
	b.WriteString(feedback)
	b.WriteString("\n\n--- PREVIOUS CODE (DO NOT REPEAT THESE MISTAKES) ---\n")
	b.WriteString(previous)
	b.WriteString("\n\nWrite the corrected program in full. Respond with a single Go code block and nothing else.")
	return b.String()
}
