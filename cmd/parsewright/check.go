package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"parsewright/internal/compare"
	"parsewright/internal/feedback"
	"parsewright/internal/generation"
	"parsewright/internal/loop"
	"parsewright/internal/runner"
	"parsewright/internal/tabular"
)

var (
	checkTarget string
	checkParser string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate an existing parser against a target without generation",
	Long: `Runs a saved parser against the target's sample document and compares the
output to the expected CSV, printing the verdict and, on failure, the same
feedback a repair attempt would receive. No model calls are made.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkTarget, "target", "t", "", "Target identifier (required)")
	checkCmd.Flags().StringVar(&checkParser, "parser", "", "Parser source path (default: parsers/<target>_parser.go)")
	checkCmd.MarkFlagRequired("target")
}

func runCheck(cmd *cobra.Command, args []string) error {
	inputPath, expectedPath, err := inputPaths(checkTarget)
	if err != nil {
		return err
	}

	var source string
	if checkParser != "" {
		data, err := os.ReadFile(checkParser)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrMissingInput, checkParser)
		}
		source = string(data)
	} else {
		artifacts := generation.NewArtifactStore(cfg.Paths.ParserDir)
		a, err := artifacts.Load(checkTarget)
		if err != nil {
			return fmt.Errorf("%w: no saved parser for %s (run parsewright run --target %s first)",
				ErrMissingInput, checkTarget, checkTarget)
		}
		source = a.Source
	}

	expected, err := tabular.LoadCSV(expectedPath)
	if err != nil {
		return fmt.Errorf("failed to load expected dataset: %w", err)
	}

	run := runner.NewYaegiRunner(runner.Config{Timeout: cfg.GetRunnerTimeout()})
	ds, fault := run.Run(context.Background(), source, inputPath)

	var report compare.Report
	if fault != nil {
		report = loop.ReportForFault(fault)
	} else {
		report = compare.Compare(expected, tabular.Normalize(ds))
	}

	if report.IsMatch() {
		fmt.Printf("%s %s\n", styleSuccess.Render("PASS"), report.Summary())
		return nil
	}

	fmtr := feedback.NewFormatter(cfg.Validation.ExclusiveColumns)
	fmt.Printf("%s %s\n\n%s\n", styleError.Render("FAIL"), report.Summary(), fmtr.Format(report))
	return fmt.Errorf("parser output does not match the expected dataset")
}
