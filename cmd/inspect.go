package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kamusis/asana-cli/internal/store"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <split|store-dir>",
	Short: "Show the manifest and class balance of a feature store",
	Long: `Display a summary of a feature store written by 'asana build'.

The argument can be either:
  - A split name (train, test, validation), resolved under <out_dir>/features
  - A path to a store directory

Example:
  asana inspect train
  asana inspect ./out/features/validation`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	dir, err := resolveStoreDir(args[0])
	if err != nil {
		return err
	}
	st, err := store.Load(dir)
	if err != nil {
		return err
	}
	m := st.Manifest

	printSection(fmt.Sprintf("Store: %s", dir))
	fmt.Fprintf(stdout, "  Split:            %s\n", m.Split)
	fmt.Fprintf(stdout, "  Run ID:           %s\n", m.RunID)
	fmt.Fprintf(stdout, "  Created:          %s\n", m.CreatedAt)
	fmt.Fprintf(stdout, "  Samples:          %d\n", m.Count)
	fmt.Fprintf(stdout, "  Dim:              %d\n", m.Dim)
	fmt.Fprintf(stdout, "  Torso multiplier: %g\n", m.TorsoMultiplier)
	fmt.Fprintf(stdout, "  Seed:             %d\n", m.Seed)

	printBullet("Classes:")
	counts := st.ClassCounts()
	for i, c := range m.Classes {
		fmt.Fprintf(stdout, "    %2d  %-24s %d\n", i, c, counts[c])
	}

	if len(m.Failures) > 0 {
		printBullet("Excluded samples:")
		kinds := make([]string, 0, len(m.Failures))
		for k := range m.Failures {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			printWarn(k, fmt.Sprintf("%d", m.Failures[k]))
		}
	}

	if fm := st.FeatureMatrix(); fm != nil {
		printBullet("Feature ranges:")
		printColumnRanges(fm)
	}
	fmt.Fprintln(stdout)
	return nil
}

// printColumnRanges prints min/max of the first and last three columns.
func printColumnRanges(fm *mat.Dense) {
	_, c := fm.Dims()
	cols := []int{0, 1, 2, c - 3, c - 2, c - 1}
	if c < len(cols) {
		cols = cols[:0]
		for j := range c {
			cols = append(cols, j)
		}
	}
	var cells []string
	for _, j := range cols {
		col := mat.Col(nil, j, fm)
		cells = append(cells, fmt.Sprintf("f%d [%.2f, %.2f]", j, floats.Min(col), floats.Max(col)))
	}
	fmt.Fprintf(stdout, "    %s\n", strings.Join(cells, "  "))
}

func resolveStoreDir(arg string) (string, error) {
	if fi, err := os.Stat(arg); err == nil && fi.IsDir() {
		return arg, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(featuresRoot(cfg), arg)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("store %q not found (looked in %s)", arg, dir)
	}
	return dir, nil
}
