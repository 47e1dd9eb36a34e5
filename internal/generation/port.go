// Package generation turns task descriptions into candidate parser
// programs through an LLM and persists every revision it produces.
package generation

import (
	"context"
	"time"
)

// TaskDescription carries everything the generator may put into a prompt.
type TaskDescription struct {
	// Target names the institution, e.g. "icici".
	Target string

	// InputPath is where the candidate finds the document at runtime.
	InputPath string

	// Columns lists the expected header names in order.
	Columns []string

	// InputPreview is a text excerpt of the source document.
	InputPreview string

	// ExpectedPreview is the head of the expected CSV.
	ExpectedPreview string

	// Notes are extra guidance lines, such as column exclusivity rules.
	Notes []string
}

// Artifact is one candidate program revision.
type Artifact struct {
	Source    string
	Model     string
	CreatedAt time.Time
}

// Generator produces and repairs candidate programs.
type Generator interface {
	// Generate produces the first candidate for a task.
	Generate(ctx context.Context, task TaskDescription) (*Artifact, error)

	// Repair produces the next candidate from the previous program and the
	// validation feedback alone; it never sees the raw datasets.
	Repair(ctx context.Context, current *Artifact, feedback string) (*Artifact, error)
}
