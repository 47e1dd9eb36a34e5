package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"parsewright/internal/store"
)

var (
	historyLimit int
	historyRunID string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `Lists recorded runs, newest first. With --run, prints the per-attempt
verdicts of a single run instead.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "Show the attempts of one run ID")
}

func styledVerdict(verdict string) string {
	switch verdict {
	case store.VerdictSucceeded:
		return styleSuccess.Render(verdict)
	case store.VerdictExhausted, store.VerdictAborted:
		return styleError.Render(verdict)
	default:
		return styleWarning.Render(verdict)
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	hs, err := store.NewRunStore(cfg.Paths.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer hs.Close()

	if historyRunID != "" {
		return printAttempts(hs, historyRunID)
	}

	runs, err := hs.RecentRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, r := range runs {
		elapsed := ""
		if !r.FinishedAt.IsZero() {
			elapsed = " in " + r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("%s  %s  %s%s\n",
			styleMuted.Render(r.StartedAt.Format("2006-01-02 15:04:05")),
			styleTitle.Render(r.Target),
			styledVerdict(r.Verdict),
			styleMuted.Render(elapsed))
		fmt.Printf("    id=%s provider=%s model=%s attempts=%d\n", r.ID, r.Provider, r.Model, r.Attempts)
		if r.ParserPath != "" && r.Verdict == store.VerdictSucceeded {
			fmt.Printf("    parser=%s\n", r.ParserPath)
		}
	}
	return nil
}

func printAttempts(hs *store.RunStore, runID string) error {
	attempts, err := hs.Attempts(runID)
	if err != nil {
		return fmt.Errorf("failed to list attempts: %w", err)
	}
	if len(attempts) == 0 {
		fmt.Printf("No attempts recorded for run %s.\n", runID)
		return nil
	}

	for _, a := range attempts {
		mark := styleError.Render("✗")
		if a.Kind == "match" {
			mark = styleSuccess.Render("✓")
		}
		fmt.Printf("%s attempt %d (%s, %s)\n", mark, a.Attempt, a.Kind, a.Duration.Round(time.Millisecond))
		if a.Summary != "" {
			fmt.Printf("    %s\n", a.Summary)
		}
	}
	return nil
}
