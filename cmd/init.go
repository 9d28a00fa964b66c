package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kamusis/asana-cli/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default asana config and .env template",
	Long: `Initialize ~/.asana/ with a default asana.yaml and an .env template.

Existing files are left untouched. Edit asana.yaml afterwards to point
data_dir at a folder containing one sub-folder per pose class.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	flagInitDataDir string
	flagInitOutDir  string
)

func init() {
	initCmd.Flags().StringVar(&flagInitDataDir, "data-dir", "", "Image root with one folder per class")
	initCmd.Flags().StringVar(&flagInitOutDir, "out-dir", "", "Where split, landmark and feature artifacts go")
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	// ── 1. Resolve ~/.asana directory ─────────────────────────────────────────
	asanaDir, err := config.AsanaDir()
	if err != nil {
		return err
	}
	cfgPath, err := configPath()
	if err != nil {
		return err
	}

	// ── 2. Create ~/.asana/ and the config's parent ───────────────────────────
	for _, d := range []string{asanaDir, filepath.Dir(cfgPath)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("cannot create %s: %w", d, err)
		}
	}
	printOK("", fmt.Sprintf("Asana directory ready: %s", asanaDir))

	// ── 3. Write asana.yaml if missing ────────────────────────────────────────
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg, err := config.DefaultConfig()
		if err != nil {
			return err
		}
		if flagInitDataDir != "" {
			cfg.DataDir = flagInitDataDir
		}
		if flagInitOutDir != "" {
			cfg.OutDir = flagInitOutDir
		}
		if err := config.SaveFile(cfgPath, cfg); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	// ── 4. .env template for the HTTP detector ────────────────────────────────
	if err := config.EnsureDotEnvTemplate(); err != nil {
		return err
	}
	envPath, _ := config.DotEnvPath()
	printOK("", fmt.Sprintf(".env ready: %s", envPath))

	// ── 5. Output directory ──────────────────────────────────────────────────
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", cfg.OutDir, err)
	}
	printOK("", fmt.Sprintf("Output directory ready: %s", cfg.OutDir))

	fmt.Fprintln(stdout, "\n✓  asana init complete. Run 'asana doctor' to verify your environment.")
	return nil
}
