package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kamusis/asana-cli/internal/bootstrap"
	"github.com/kamusis/asana-cli/internal/dataset"
	"github.com/kamusis/asana-cli/internal/features"
	"github.com/kamusis/asana-cli/internal/landmarks"
	"github.com/kamusis/asana-cli/internal/logger"
	"github.com/kamusis/asana-cli/internal/pose"
	"github.com/kamusis/asana-cli/internal/store"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build feature stores from the bootstrap CSVs",
	Long: `Normalize every pose, build its 69-value embedding and write one
feature store per split under <out_dir>/features/<split>/.

Landmarks come from the CSVs written by 'asana extract'; pass
--from-images to run the detector inline instead. Stores are staged in a
temporary directory and swapped into place under an exclusive lock.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var (
	flagBuildSplits     []string
	flagBuildFromImages bool
	flagBuildTimeout    time.Duration
)

func init() {
	buildCmd.Flags().StringSliceVar(&flagBuildSplits, "split", dataset.SplitNames, "Splits to build")
	buildCmd.Flags().BoolVar(&flagBuildFromImages, "from-images", false, "Run the landmark detector instead of reading bootstrap CSVs")
	buildCmd.Flags().DurationVar(&flagBuildTimeout, "lock-timeout", 30*time.Second, "How long to wait for another build to finish")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()
	ctx := cmd.Context()

	split, err := dataset.LoadSplit(splitPath(cfg))
	if err != nil {
		return fmt.Errorf("%w\nRun 'asana curate' first.", err)
	}

	var src landmarks.Source
	if flagBuildFromImages {
		if src, err = landmarks.NewFromConfig(cfg); err != nil {
			return err
		}
		defer landmarks.Close(src)
	}

	root := featuresRoot(cfg)
	unlock, err := store.Lock(root, flagBuildTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	printSection("asana build")

	pipe := &features.Pipeline{
		Normalizer: pose.NewNormalizer(cfg.Features.TorsoMultiplier),
		Labels:     cfg.Labels,
		Workers:    cfg.Features.Workers,
		Logger:     log,
	}
	runID := uuid.NewString()

	for _, name := range flagBuildSplits {
		items, err := split.Part(name)
		if err != nil {
			return err
		}
		var samples []dataset.Sample
		if src != nil {
			samples, err = acquireSplit(ctx, cfg, src, items, log)
		} else {
			samples, err = samplesFromCSV(landmarksPath(cfg, name), items, log)
		}
		if err != nil {
			return err
		}

		res, err := pipe.Run(ctx, samples)
		if err != nil {
			return err
		}
		st := store.FromResult(res, store.Manifest{
			RunID:           runID,
			Split:           name,
			TorsoMultiplier: pipe.Normalizer.TorsoMultiplier,
			Seed:            split.Seed,
		})
		dest := filepath.Join(root, name)
		if err := writeStore(dest, st); err != nil {
			return err
		}
		printOK(name, fmt.Sprintf("%d vector(s) x %d → %s", res.Len(), features.Dim, dest))
		for _, k := range features.Kinds() {
			if n := res.Counts[k]; n > 0 {
				printWarn(name, fmt.Sprintf("%d sample(s) excluded: %s", n, k))
			}
		}
	}
	return nil
}

// samplesFromCSV lines bootstrap rows up with the split items, in split
// order. Items without a row had no pose at extract time.
func samplesFromCSV(path string, items []dataset.Item, log logger.Logger) ([]dataset.Sample, error) {
	log = logger.OrDiscard(log)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s not found\nRun 'asana extract' first, or pass --from-images.", path)
		}
		return nil, err
	}
	defer f.Close()
	rows, err := bootstrap.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	byID := make(map[string]dataset.Sample, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]dataset.Sample, len(items))
	for i, it := range items {
		s, ok := byID[it.ID]
		if !ok {
			out[i] = dataset.Sample{ID: it.ID, Label: it.Label, Err: pose.ErrMissingPose}
			continue
		}
		if s.Label != it.Label {
			log.Warn("label differs between split and bootstrap row", "id", it.ID, "split", it.Label, "row", s.Label)
			s.Label = it.Label
		}
		out[i] = s
		delete(byID, it.ID)
	}
	if len(byID) > 0 {
		log.Warn("bootstrap rows not in split ignored", "file", path, "rows", len(byID))
	}
	return out, nil
}

func writeStore(dest string, st *store.Store) error {
	tmp, err := store.TempDir(dest)
	if err != nil {
		return err
	}
	if err := store.Write(tmp, st); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := store.AtomicSwap(tmp, dest); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("cannot swap store into %s: %w", dest, err)
	}
	return nil
}
