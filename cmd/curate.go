package cmd

import (
	"fmt"
	"strings"

	"github.com/kamusis/asana-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var curateCmd = &cobra.Command{
	Use:   "curate",
	Short: "Cap classes and split the image set into train/test/validation",
	Long: `Scan data_dir for class folders, cap each class at
curation.per_class_cap by seeded sampling, and split every class
train_ratio / rest, with the rest halved into test and validation.

The split is saved to <out_dir>/split.json so extract and build work on
fixed membership. Re-running with the same seed and images gives the same
split.`,
	Args: cobra.NoArgs,
	RunE: runCurate,
}

var flagCurateDryRun bool

func init() {
	curateCmd.Flags().BoolVar(&flagCurateDryRun, "dry-run", false, "Print the split without writing split.json")
	rootCmd.AddCommand(curateCmd)
}

func runCurate(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	printSection("asana curate")

	inv, err := dataset.Discover(cfg.DataDir, dataset.DiscoverOptions{
		Labels:     cfg.Labels,
		Extensions: cfg.Extensions,
		Excludes:   cfg.Excludes,
	})
	if err != nil {
		return err
	}
	printOK("", fmt.Sprintf("%d image(s) found in %s", len(inv.Items), cfg.DataDir))
	if inv.Skipped > 0 {
		printSkip("", fmt.Sprintf("%d file(s) skipped by extension or exclude pattern", inv.Skipped))
	}
	for _, u := range inv.Unknown {
		printWarn(u, "folder matches no configured label")
	}

	curator, err := dataset.NewCurator(dataset.OptionsFromConfig(cfg), log)
	if err != nil {
		return err
	}
	split, rep, err := curator.Curate(inv.Items)
	if err != nil {
		return err
	}

	printSplitTable(cfg.Labels, split, rep)
	for _, l := range rep.Dropped {
		printWarn(l, "no samples after curation, class dropped")
	}
	if split.Len() == 0 {
		return fmt.Errorf("no samples to split — check data_dir and labels")
	}

	if flagCurateDryRun {
		printSkip("", "dry run, split.json not written")
		return nil
	}
	p := splitPath(cfg)
	if err := split.Save(p); err != nil {
		return err
	}
	printOK("", fmt.Sprintf("Split written: %s", p))
	return nil
}

func printSplitTable(labels []string, split *dataset.Split, rep *dataset.Report) {
	counts := split.Counts()
	width := len("class")
	for _, l := range labels {
		width = max(width, len(l))
	}
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  %-*s  %9s  %5s  %5s  %4s  %10s\n", width, "class", "available", "kept", "train", "test", "validation")
	fmt.Fprintf(stdout, "  %s\n", strings.Repeat("─", width+2+9+2+5+2+5+2+4+2+10))
	for _, l := range labels {
		fmt.Fprintf(stdout, "  %-*s  %9d  %5d  %5d  %4d  %10d\n", width, l,
			rep.Available[l], rep.Kept[l],
			counts[dataset.Train][l], counts[dataset.Test][l], counts[dataset.Validation][l])
	}
	fmt.Fprintf(stdout, "  %-*s  %9s  %5d  %5d  %4d  %10d\n\n", width, "total", "",
		split.Len(), len(split.Train), len(split.Test), len(split.Validation))
}
