package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks configuration that the pipeline cannot run with.
var ErrInvalidConfig = errors.New("invalid configuration")

// Curation controls per-class capping and the three-way split.
type Curation struct {
	PerClassCap int     `yaml:"per_class_cap"`
	MinPerClass int     `yaml:"min_per_class,omitempty"`
	TrainRatio  float64 `yaml:"train_ratio"`
	Seed        int64   `yaml:"seed"`
}

// Features controls normalization and the extraction worker pool.
type Features struct {
	TorsoMultiplier float64 `yaml:"torso_multiplier"`
	Workers         int     `yaml:"workers,omitempty"`
}

// Detector selects where landmarks come from.
type Detector struct {
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
	Workers int    `yaml:"workers,omitempty"`
	Cache   string `yaml:"cache,omitempty"`
}

// Detector kinds.
const (
	DetectorSidecar = "sidecar"
	DetectorHTTP    = "http"
)

// Config is the in-memory representation of ~/.asana/asana.yaml.
type Config struct {
	DataDir    string   `yaml:"data_dir"`
	OutDir     string   `yaml:"out_dir"`
	Labels     []string `yaml:"labels"`
	Curation   Curation `yaml:"curation"`
	Features   Features `yaml:"features"`
	Detector   Detector `yaml:"detector"`
	Extensions []string `yaml:"extensions,omitempty"`
	Excludes   []string `yaml:"excludes,omitempty"`
}

// AsanaDir returns the absolute path to ~/.asana/.
func AsanaDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".asana"), nil
}

// ConfigPath returns the absolute path to ~/.asana/asana.yaml.
func ConfigPath() (string, error) {
	dir, err := AsanaDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "asana.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultLabels is the class list the shipped classifier was trained on.
// Its order defines the one-hot layout.
func DefaultLabels() []string {
	return []string{
		"adho_mukha_shvanasana",
		"bhujangasana",
		"bidalasana",
		"phalakasana",
		"ustrasana",
		"utkatasana",
		"utkata_konasana",
		"virabhadrasana_i",
		"virabhadrasana_ii",
		"vrikshasana",
	}
}

// DefaultConfig returns the default Config written on first asana init.
func DefaultConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	j := func(parts ...string) string { return filepath.Join(append([]string{home}, parts...)...) }

	return &Config{
		DataDir: j(".asana", "data"),
		OutDir:  j(".asana", "out"),
		Labels:  DefaultLabels(),
		Curation: Curation{
			PerClassCap: 200,
			TrainRatio:  0.8,
			Seed:        123,
		},
		Features: Features{
			TorsoMultiplier: 2.5,
		},
		Detector: Detector{
			Kind:    DetectorSidecar,
			Timeout: "30s",
			Workers: 4,
		},
		Extensions: []string{".jpg", ".jpeg", ".png"},
		Excludes: []string{
			".DS_Store",
			"Thumbs.db",
			"*.tmp",
			"*.bak",
			"*~",
		},
	}, nil
}

// Validate reports configuration the pipeline cannot proceed with. Every
// returned error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string
	if len(c.Labels) == 0 {
		problems = append(problems, "labels must not be empty")
	}
	seen := make(map[string]bool, len(c.Labels))
	for _, l := range c.Labels {
		if strings.TrimSpace(l) == "" {
			problems = append(problems, "labels must not contain blanks")
			continue
		}
		if seen[l] {
			problems = append(problems, fmt.Sprintf("duplicate label %q", l))
		}
		seen[l] = true
	}
	if c.Curation.PerClassCap < 1 {
		problems = append(problems, fmt.Sprintf("curation.per_class_cap must be >= 1, got %d", c.Curation.PerClassCap))
	}
	if c.Curation.MinPerClass < 0 || (c.Curation.PerClassCap >= 1 && c.Curation.MinPerClass > c.Curation.PerClassCap) {
		problems = append(problems, fmt.Sprintf("curation.min_per_class must be within [0, per_class_cap], got %d", c.Curation.MinPerClass))
	}
	if !(c.Curation.TrainRatio > 0 && c.Curation.TrainRatio < 1) {
		problems = append(problems, fmt.Sprintf("curation.train_ratio must be within (0, 1), got %v", c.Curation.TrainRatio))
	}
	if !(c.Features.TorsoMultiplier > 0) {
		problems = append(problems, fmt.Sprintf("features.torso_multiplier must be > 0, got %v", c.Features.TorsoMultiplier))
	}
	if c.Features.Workers < 0 {
		problems = append(problems, "features.workers must not be negative")
	}
	if c.Detector.Workers < 0 {
		problems = append(problems, "detector.workers must not be negative")
	}
	switch c.Detector.Kind {
	case DetectorSidecar, DetectorHTTP:
	default:
		problems = append(problems, fmt.Sprintf("unknown detector.kind %q", c.Detector.Kind))
	}
	if _, err := c.DetectorTimeout(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// DetectorTimeout parses detector.timeout, defaulting to 30s.
func (c *Config) DetectorTimeout() (time.Duration, error) {
	if c.Detector.Timeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Detector.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("detector.timeout %q is not a positive duration", c.Detector.Timeout)
	}
	return d, nil
}

// LabelIndex returns label -> position in the one-hot layout.
func (c *Config) LabelIndex() map[string]int {
	m := make(map[string]int, len(c.Labels))
	for i, l := range c.Labels {
		m[l] = i
	}
	return m
}

// Load reads and parses ~/.asana/asana.yaml.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads and parses the config at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	// Expand ~ in paths at load time.
	if cfg.DataDir, err = ExpandPath(cfg.DataDir); err != nil {
		return nil, err
	}
	if cfg.OutDir, err = ExpandPath(cfg.OutDir); err != nil {
		return nil, err
	}
	if cfg.Detector.Cache, err = ExpandPath(cfg.Detector.Cache); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save marshals cfg and writes it to ~/.asana/asana.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile marshals cfg and writes it to path.
func SaveFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}
