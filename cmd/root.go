package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/kamusis/asana-cli/internal/config"
	"github.com/kamusis/asana-cli/internal/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "asana",
	Short:        "Asana CLI — yoga pose feature pipeline",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `Asana turns a class-per-folder set of yoga pose images into
pose-invariant feature vectors for a small classifier.

Typical flow:
  asana init       write ~/.asana/asana.yaml
  asana curate     cap classes and split train/test/validation
  asana extract    acquire landmarks and write bootstrap CSVs
  asana build      normalize, embed and store features per split`,
}

var (
	flagConfig   string
	flagLogLevel string
	flagLogJSON  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.asana/asana.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error, disabled")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Emit structured logs as JSON")
}

// Execute is called by main.go.
// An interrupt cancels the command context so detector calls stop early.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configPath resolves --config or the default location.
func configPath() (string, error) {
	if flagConfig != "" {
		return config.ExpandPath(flagConfig)
	}
	return config.ConfigPath()
}

// loadConfig reads, overrides from the environment and validates the config.
// Every pipeline command goes through here before doing work.
func loadConfig() (*config.Config, error) {
	p, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w\nRun 'asana init' first.", err)
		}
		return nil, err
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the structured logger from the persistent flags.
func newLogger() logger.Logger {
	lc := logger.DefaultConfig()
	lc.Level = logger.LogLevel(flagLogLevel)
	lc.JSON = flagLogJSON
	return logger.New(lc)
}

// Artifact locations under out_dir.
func splitPath(cfg *config.Config) string {
	return filepath.Join(cfg.OutDir, "split.json")
}

func landmarksPath(cfg *config.Config, split string) string {
	return filepath.Join(cfg.OutDir, "landmarks", split+".csv")
}

func featuresRoot(cfg *config.Config) string {
	return filepath.Join(cfg.OutDir, "features")
}
