// Package preview assembles the task description fed to the generator: a
// text excerpt of the input document alongside the head of the expected
// CSV.
package preview

import (
	"context"
	"encoding/csv"
	"strings"

	"golang.org/x/sync/errgroup"

	"parsewright/internal/generation"
	"parsewright/internal/logging"
	"parsewright/internal/tabular"
)

const (
	defaultMaxPages = 2
	defaultMaxRows  = 5
	defaultMaxChars = 3000
)

// Config tunes a Builder. Zero fields take defaults.
type Config struct {
	MaxPages int      // document pages included in the excerpt
	MaxRows  int      // expected CSV rows included
	MaxChars int      // cap on the document excerpt
	Notes    []string // guidance lines passed through to the generator
}

// Builder assembles TaskDescriptions.
type Builder struct {
	maxPages int
	maxRows  int
	maxChars int
	notes    []string
}

// NewBuilder creates a Builder from cfg.
func NewBuilder(cfg Config) *Builder {
	b := &Builder{
		maxPages: cfg.MaxPages,
		maxRows:  cfg.MaxRows,
		maxChars: cfg.MaxChars,
		notes:    cfg.Notes,
	}
	if b.maxPages <= 0 {
		b.maxPages = defaultMaxPages
	}
	if b.maxRows <= 0 {
		b.maxRows = defaultMaxRows
	}
	if b.maxChars <= 0 {
		b.maxChars = defaultMaxChars
	}
	return b
}

// Build loads both previews concurrently and assembles the task. An
// unreadable document degrades to an empty excerpt with a warning; an
// unreadable expected CSV is an error, since nothing can be validated
// without it.
func (b *Builder) Build(ctx context.Context, target, inputPath, expectedPath string) (generation.TaskDescription, error) {
	timer := logging.StartTimer(logging.CategoryPreview, "build task previews")
	defer timer.Stop()

	var (
		excerpt  string
		expected *tabular.Dataset
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := extractPDFText(inputPath, b.maxPages)
		if err != nil {
			logging.PreviewWarn("document preview unavailable for %s: %v", target, err)
			return nil
		}
		excerpt = text
		return nil
	})
	g.Go(func() error {
		ds, err := tabular.LoadCSV(expectedPath)
		if err != nil {
			return err
		}
		expected = ds
		return nil
	})
	if err := g.Wait(); err != nil {
		return generation.TaskDescription{}, err
	}

	task := generation.TaskDescription{
		Target:          target,
		InputPath:       inputPath,
		Columns:         expected.ColumnNames(),
		InputPreview:    clamp(excerpt, b.maxChars),
		ExpectedPreview: renderCSVHead(expected, b.maxRows),
		Notes:           b.notes,
	}
	logging.Preview("task previews ready: target=%s excerpt=%dB columns=%d", target, len(task.InputPreview), len(task.Columns))
	return task, nil
}

// renderCSVHead renders the header plus the first maxRows data rows back
// to CSV text.
func renderCSVHead(ds *tabular.Dataset, maxRows int) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(ds.ColumnNames())
	rows := ds.Rows()
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, row := range rows {
		_ = w.Write(row)
	}
	w.Flush()
	return strings.TrimSpace(sb.String())
}

func clamp(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
