package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"parsewright/internal/config"
	"parsewright/internal/logging"
)

var (
	// Global flags
	cfgFile string
	dataDir string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// ErrMissingInput marks a command that could not start because a required
// input artifact is absent. Mapped to exit code 2.
var ErrMissingInput = errors.New("missing input artifact")

var rootCmd = &cobra.Command{
	Use:   "parsewright",
	Short: "parsewright - LLM-driven bank statement parser synthesis",
	Long: `parsewright drives a generative model to write a Go parser for a bank
statement PDF, validates the parser's output against a reference CSV, and
feeds structured failure evidence back to the model for a bounded number
of repair attempts.

The produced parser is plain Go source (standard library only, entry point
Parse(path string) ([][]string, error)) written to the parsers directory
whether the run succeeds or exhausts its attempt budget. Run history is
kept in a local SQLite database for post-hoc review.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dataDir != "" {
			cfg.Paths.DataDir = dataDir
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logOpts := logging.Options{
			Enabled: cfg.Logging.Enabled || verbose,
			Dir:     cfg.Paths.LogDir,
			Level:   cfg.Logging.Level,
			JSON:    cfg.Logging.Format == "json",
		}
		if verbose {
			logOpts.Level = "debug"
		}
		if err := logging.Initialize(logOpts); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		if err := logging.InitAudit(); err != nil {
			logging.BootError("audit trail unavailable: %v", err)
		}

		logging.Boot("parsewright starting: provider=%s model=%s data=%s",
			cfg.LLM.Provider, cfg.LLM.Model, cfg.Paths.DataDir)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "parsewright.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding <target>/<target>_sample.pdf and <target>_expected.csv")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, ErrMissingInput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
