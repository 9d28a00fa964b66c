package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kamusis/asana-cli/internal/config"
	"github.com/kamusis/asana-cli/internal/dataset"
	"github.com/kamusis/asana-cli/internal/landmarks"
	"github.com/kamusis/asana-cli/internal/store"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that asana's config, data directory, detector and artifacts are
usable. Run this command when something seems wrong.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.AddCommand(doctorFixCmd)
	rootCmd.AddCommand(doctorCmd)
}

var doctorFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Automatically fix detected issues",
	Long: `Fix detected issues in the asana output directory.

Currently fixes:
  - Leftovers of interrupted runs: staging directories, *.bak stores and
    *.csv.tmp files under out_dir

Run 'asana doctor' first to see what will be fixed.`,
	RunE: runDoctorFix,
}

func runDoctorFix(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printSection("asana doctor fix")

	fmt.Fprintln(stdout, "\n[ Interrupted runs ]")
	stale := findStaleArtifacts(cfg)
	if len(stale) == 0 {
		printOK("", "no leftovers found — nothing to fix")
		return nil
	}
	var failed int
	for _, p := range stale {
		if err := os.RemoveAll(p); err != nil {
			printErr("", fmt.Sprintf("cannot delete %s: %v", p, err))
			failed++
		} else {
			printOK("", fmt.Sprintf("deleted %s", p))
		}
	}
	fmt.Fprintln(stdout)
	if failed > 0 {
		return fmt.Errorf("%d path(s) could not be deleted", failed)
	}
	return nil
}

// findStaleArtifacts lists files and directories left behind when extract
// or build stopped before their final rename.
func findStaleArtifacts(cfg *config.Config) []string {
	var out []string
	if entries, err := os.ReadDir(featuresRoot(cfg)); err == nil {
		for _, e := range entries {
			n := e.Name()
			if e.IsDir() && (strings.Contains(n, ".tmp-") || strings.HasSuffix(n, ".bak")) {
				out = append(out, filepath.Join(featuresRoot(cfg), n))
			}
		}
	}
	lmDir := filepath.Dir(landmarksPath(cfg, dataset.Train))
	if matches, err := filepath.Glob(filepath.Join(lmDir, "*.csv.tmp")); err == nil {
		out = append(out, matches...)
	}
	return out
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("asana doctor")
	fmt.Fprintln(stdout)

	// ── Check 1: asana.yaml is valid ──────────────────────────────────────────
	fmt.Fprintln(stdout, "[ asana.yaml ]")
	cfg, loadErr := loadConfig()
	if loadErr != nil {
		failD("%v", loadErr)
	} else {
		printOK("", fmt.Sprintf("valid — %d label(s), cap %d, train ratio %g, seed %d",
			len(cfg.Labels), cfg.Curation.PerClassCap, cfg.Curation.TrainRatio, cfg.Curation.Seed))
	}
	fmt.Fprintln(stdout)
	if loadErr != nil {
		fmt.Fprintln(stdout, "===================")
		fmt.Fprintln(stderr, "✗  Config not usable; remaining checks skipped.")
		return fmt.Errorf("doctor found issues")
	}

	// ── Check 2: data directory and class folders ─────────────────────────────
	fmt.Fprintln(stdout, "[ Data directory ]")
	inv, err := dataset.Discover(cfg.DataDir, dataset.DiscoverOptions{
		Labels:     cfg.Labels,
		Extensions: cfg.Extensions,
		Excludes:   cfg.Excludes,
	})
	if err != nil {
		failD("%v", err)
	} else {
		counts := inv.CountByLabel()
		for _, l := range cfg.Labels {
			switch n := counts[l]; {
			case n == 0:
				printMiss(l, "no images")
			case n < cfg.Curation.MinPerClass:
				printWarn(l, fmt.Sprintf("%d image(s), below min_per_class %d", n, cfg.Curation.MinPerClass))
			default:
				printOK(l, fmt.Sprintf("%d image(s)", n))
			}
		}
		for _, u := range inv.Unknown {
			printWarn(u, "folder matches no configured label")
		}
	}
	fmt.Fprintln(stdout)

	// ── Check 3: detector ─────────────────────────────────────────────────────
	fmt.Fprintln(stdout, "[ Detector ]")
	switch cfg.Detector.Kind {
	case config.DetectorSidecar:
		if inv != nil {
			var have int
			for _, it := range inv.Items {
				if _, err := os.Stat(it.Path + landmarks.SidecarSuffix); err == nil {
					have++
				}
			}
			msg := fmt.Sprintf("sidecar landmarks for %d of %d image(s)", have, len(inv.Items))
			if have == 0 && len(inv.Items) > 0 {
				printWarn("sidecar", msg)
			} else {
				printOK("sidecar", msg)
			}
		}
	case config.DetectorHTTP:
		if err := probeDetector(cmd.Context(), cfg); err != nil {
			failD("[http] %v", err)
		} else {
			printOK("http", fmt.Sprintf("reachable: %s", cfg.Detector.BaseURL))
		}
	}
	if cfg.Detector.Cache != "" {
		checkCache(cmd.Context(), cfg)
	}
	fmt.Fprintln(stdout)

	// ── Check 4: artifacts ────────────────────────────────────────────────────
	fmt.Fprintln(stdout, "[ Artifacts ]")
	if split, err := dataset.LoadSplit(splitPath(cfg)); err != nil {
		printMiss("split", "split.json not usable — run 'asana curate'")
	} else {
		printOK("split", fmt.Sprintf("%d train / %d test / %d validation", len(split.Train), len(split.Test), len(split.Validation)))
	}
	for _, name := range dataset.SplitNames {
		if _, err := os.Stat(landmarksPath(cfg, name)); err != nil {
			printMiss(name, "no bootstrap CSV")
		}
		m, err := store.LoadManifest(filepath.Join(featuresRoot(cfg), name))
		if err != nil {
			printMiss(name, "no feature store")
			continue
		}
		if strings.Join(m.Classes, ",") != strings.Join(cfg.Labels, ",") {
			printWarn(name, "feature store was built with a different label list — run 'asana build'")
			continue
		}
		printOK(name, fmt.Sprintf("feature store: %d sample(s), run %s", m.Count, m.RunID))
	}
	if stale := findStaleArtifacts(cfg); len(stale) > 0 {
		printWarn("", fmt.Sprintf("%d leftover(s) from interrupted runs — run 'asana doctor fix'", len(stale)))
	}
	fmt.Fprintln(stdout)

	// ── Summary ───────────────────────────────────────────────────────────────
	fmt.Fprintln(stdout, "===================")
	if allOK {
		fmt.Fprintln(stdout, "✓  All checks passed. Asana is ready to use.")
	} else {
		fmt.Fprintln(stderr, "✗  One or more checks failed. See details above.")
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

// probeDetector issues GET {base_url}/health. Any HTTP answer below 500
// counts as reachable; some services do not implement /health.
func probeDetector(ctx context.Context, cfg *config.Config) error {
	if cfg.Detector.BaseURL == "" {
		return fmt.Errorf("detector.base_url is empty (or set %s)", config.EnvDetectorURL)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	url := strings.TrimRight(cfg.Detector.BaseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s returned HTTP %d", url, resp.StatusCode)
	}
	return nil
}

func checkCache(ctx context.Context, cfg *config.Config) {
	c, err := landmarks.OpenCache(cfg.Detector.Cache, landmarks.Sidecar{})
	if err != nil {
		printWarn("cache", err.Error())
		return
	}
	defer c.Close()
	n, err := c.Len(ctx)
	if err != nil {
		printWarn("cache", err.Error())
		return
	}
	printOK("cache", fmt.Sprintf("%d cached detection(s) in %s", n, cfg.Detector.Cache))
}
