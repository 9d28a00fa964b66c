package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kamusis/asana-cli/internal/bootstrap"
	"github.com/kamusis/asana-cli/internal/config"
	"github.com/kamusis/asana-cli/internal/dataset"
	"github.com/kamusis/asana-cli/internal/features"
	"github.com/kamusis/asana-cli/internal/landmarks"
	"github.com/kamusis/asana-cli/internal/logger"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Acquire pose landmarks for the curated split",
	Long: `Run the configured landmark detector over every image in split.json
and write one bootstrap CSV per split to <out_dir>/landmarks/<split>.csv.

Rows hold the image identifier, the class label and 99 absolute landmark
coordinates. Images without a detected pose are reported and left out.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

var flagExtractSplits []string

func init() {
	extractCmd.Flags().StringSliceVar(&flagExtractSplits, "split", dataset.SplitNames, "Splits to extract")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	split, err := dataset.LoadSplit(splitPath(cfg))
	if err != nil {
		return fmt.Errorf("%w\nRun 'asana curate' first.", err)
	}

	src, err := landmarks.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer landmarks.Close(src)

	printSection("asana extract")
	printInfo("", fmt.Sprintf("detector: %s", src.Name()))

	for _, name := range flagExtractSplits {
		items, err := split.Part(name)
		if err != nil {
			return err
		}
		samples, err := acquireSplit(cmd.Context(), cfg, src, items, log)
		if err != nil {
			return err
		}
		out := landmarksPath(cfg, name)
		st, err := writeBootstrap(out, samples)
		if err != nil {
			return err
		}
		printOK(name, fmt.Sprintf("%d pose(s) written to %s", st.Written, out))
		reportMissing(name, samples)
	}
	return nil
}

func acquireSplit(ctx context.Context, cfg *config.Config, src landmarks.Source, items []dataset.Item, log logger.Logger) ([]dataset.Sample, error) {
	return landmarks.Acquire(ctx, src, items, landmarks.AcquireOptions{
		Workers:  cfg.Detector.Workers,
		Progress: stderr,
		Log:      log,
	})
}

// writeBootstrap writes samples next to path and renames into place.
func writeBootstrap(path string, samples []dataset.Sample) (bootstrap.WriteStats, error) {
	var st bootstrap.WriteStats
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return st, err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return st, fmt.Errorf("cannot create %s: %w", tmp, err)
	}
	st, err = bootstrap.WriteCSV(f, samples)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return st, fmt.Errorf("cannot write %s: %w", path, err)
	}
	return st, os.Rename(tmp, path)
}

func reportMissing(split string, samples []dataset.Sample) {
	counts := map[features.FailureKind]int{}
	for _, s := range samples {
		if s.Err != nil {
			counts[features.Classify(s.Err)]++
		}
	}
	for _, k := range features.Kinds() {
		if n := counts[k]; n > 0 {
			printWarn(split, fmt.Sprintf("%d image(s) excluded: %s", n, k))
		}
	}
}
