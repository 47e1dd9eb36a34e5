package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parsewright/internal/compare"
	"parsewright/internal/feedback"
	"parsewright/internal/generation"
	"parsewright/internal/llm"
	"parsewright/internal/logging"
	"parsewright/internal/loop"
	"parsewright/internal/preview"
	"parsewright/internal/runner"
	"parsewright/internal/store"
	"parsewright/internal/tabular"
)

var (
	runTarget      string
	runProvider    string
	runModel       string
	runMaxAttempts int
	runTimeout     time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a parser for a target and validate it until it matches",
	Long: `Drives the full generate/validate/repair loop for one target.

Expects <data-dir>/<target>/<target>_sample.pdf and
<data-dir>/<target>/<target>_expected.csv. The produced parser lands in
the parsers directory whether the run succeeds or exhausts its attempts;
an exhausted run keeps the last candidate for manual review.`,
	RunE: runLoop,
}

func init() {
	runCmd.Flags().StringVarP(&runTarget, "target", "t", "", "Target identifier (required)")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "LLM provider override (gemini, openai)")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model override")
	runCmd.Flags().IntVar(&runMaxAttempts, "max-attempts", 0, "Attempt ceiling override")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Whole-run timeout override")
	runCmd.MarkFlagRequired("target")
}

// inputPaths resolves the sample/expected pair for a target and verifies
// both files exist.
func inputPaths(target string) (inputPath, expectedPath string, err error) {
	base := filepath.Join(cfg.Paths.DataDir, target)
	inputPath = filepath.Join(base, target+"_sample.pdf")
	expectedPath = filepath.Join(base, target+"_expected.csv")
	for _, p := range []string{inputPath, expectedPath} {
		if _, statErr := os.Stat(p); statErr != nil {
			return "", "", fmt.Errorf("%w: %s", ErrMissingInput, p)
		}
	}
	return inputPath, expectedPath, nil
}

func applyRunOverrides() {
	if runProvider != "" && !strings.EqualFold(runProvider, cfg.LLM.Provider) {
		cfg.LLM.Provider = runProvider
		// The loaded key belonged to the configured provider; prefer the
		// new provider's own environment variable.
		switch strings.ToLower(runProvider) {
		case "openai":
			if key := os.Getenv("OPENAI_API_KEY"); key != "" {
				cfg.LLM.APIKey = key
			}
		default:
			if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				cfg.LLM.APIKey = key
			}
		}
	}
	if runModel != "" {
		cfg.LLM.Model = runModel
	}
	if runMaxAttempts > 0 {
		cfg.Loop.MaxAttempts = runMaxAttempts
	}
}

func exclusivityNotes(cols []string) []string {
	if len(cols) != 2 {
		return nil
	}
	return []string{fmt.Sprintf(
		"Exactly one of %q and %q carries a value per row; leave the other as an empty string, never zero.",
		cols[0], cols[1])}
}

func runLoop(cmd *cobra.Command, args []string) error {
	applyRunOverrides()
	if err := cfg.Validate(); err != nil {
		return err
	}

	inputPath, expectedPath, err := inputPaths(runTarget)
	if err != nil {
		return err
	}

	taskTimeout := cfg.GetTaskTimeout()
	if runTimeout > 0 {
		taskTimeout = runTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, stopping...")
		cancel()
	}()

	expected, err := tabular.LoadCSV(expectedPath)
	if err != nil {
		return fmt.Errorf("failed to load expected dataset: %w", err)
	}

	client, err := llm.NewClient(ctx, llm.Options{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.GetLLMTimeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	builder := preview.NewBuilder(preview.Config{
		Notes: exclusivityNotes(cfg.Validation.ExclusiveColumns),
	})
	task, err := builder.Build(ctx, runTarget, inputPath, expectedPath)
	if err != nil {
		return fmt.Errorf("failed to build task description: %w", err)
	}

	history, err := store.NewRunStore(cfg.Paths.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer history.Close()

	artifacts := generation.NewArtifactStore(cfg.Paths.ParserDir)
	runID := uuid.NewString()
	if err := history.BeginRun(runID, runTarget, cfg.LLM.Provider, cfg.LLM.Model); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	started := time.Now()
	logging.AuditRunStarted(runID, runTarget, cfg.LLM.Model)

	l, err := loop.New(loop.Params{
		Config: loop.Config{
			MaxAttempts: cfg.Loop.MaxAttempts,
			TaskTimeout: taskTimeout,
			RetryDelay:  cfg.GetRetryDelay(),
		},
		Generator: generation.NewLLMGenerator(client, cfg.LLM.Model),
		Runner:    runner.NewYaegiRunner(runner.Config{Timeout: cfg.GetRunnerTimeout()}),
		Expected:  expected,
		InputPath: inputPath,
		Task:      task,
		Formatter: feedback.NewFormatter(cfg.Validation.ExclusiveColumns),
		Artifacts: artifacts,
		Recorder:  history,
		RunID:     runID,
	})
	if err != nil {
		return err
	}

	logger.Info("starting run",
		zap.String("run_id", runID),
		zap.String("target", runTarget),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.Int("max_attempts", cfg.Loop.MaxAttempts))

	fmt.Printf("%s %s\n", styleTitle.Render("parsewright run"), styleMuted.Render(runID))
	fmt.Printf("  target:   %s\n", runTarget)
	fmt.Printf("  provider: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Printf("  attempts: up to %d\n\n", cfg.Loop.MaxAttempts)

	result, err := l.RunToCompletion(ctx)
	if err != nil {
		_ = history.FinishRun(runID, store.VerdictAborted, l.Attempt(), artifacts.SourcePath(runTarget), "")
		logging.AuditRunFinished(runID, runTarget, store.VerdictAborted, time.Since(started).Milliseconds(), false)
		return fmt.Errorf("run aborted: %w", err)
	}

	verdict := store.VerdictExhausted
	if result.Succeeded {
		verdict = store.VerdictSucceeded
	}
	reportJSON, _ := json.Marshal(result.Report)
	if err := history.FinishRun(runID, verdict, result.Attempts, artifacts.SourcePath(runTarget), string(reportJSON)); err != nil {
		logger.Warn("failed to record run verdict", zap.Error(err))
	}
	logging.AuditRunFinished(runID, runTarget, verdict, time.Since(started).Milliseconds(), result.Succeeded)

	for _, o := range result.Outcomes {
		mark := styleError.Render("✗")
		if o.Kind == compare.KindMatch {
			mark = styleSuccess.Render("✓")
		}
		fmt.Printf("  %s attempt %d (%s): %s\n", mark, o.Attempt, o.Duration.Round(time.Millisecond), o.Summary)
	}

	if result.Succeeded {
		fmt.Printf("\n%s parser validated after %d attempt(s): %s\n",
			styleSuccess.Render("PASS"), result.Attempts, artifacts.SourcePath(runTarget))
		return nil
	}

	fmt.Printf("\n%s attempt budget exhausted: %s\n", styleError.Render("FAIL"), result.Report.Summary())
	fmt.Printf("Last candidate kept at %s\n", artifacts.SourcePath(runTarget))
	return fmt.Errorf("no passing parser after %d attempts; manual review required", result.Attempts)
}
