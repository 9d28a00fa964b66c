package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DotEnvPath returns the absolute path to asana's dotenv file (~/.asana/.env).
func DotEnvPath() (string, error) {
	asanaDir, err := AsanaDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(asanaDir, ".env"), nil
}

// LoadDotEnv reads ~/.asana/.env and returns key/value pairs.
//
// Parsing rules:
// - Lines starting with '#' are ignored.
// - Empty lines are ignored.
// - Lines must be of form KEY=VALUE, optionally prefixed with "export ".
// - Whitespace around KEY and VALUE is trimmed.
// - One pair of matching single or double quotes around VALUE is removed.
func LoadDotEnv() (map[string]string, error) {
	p, err := DotEnvPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("cannot open dotenv file %s: %w", p, err)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.Index(line, "=")
		if i <= 0 {
			continue
		}
		k := strings.TrimSpace(strings.TrimPrefix(line[:i], "export "))
		v := unquote(strings.TrimSpace(line[i+1:]))
		if k == "" {
			continue
		}
		out[k] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read dotenv file %s: %w", p, err)
	}
	return out, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// GetConfigValue returns the effective value for key, using process environment variables
// first and falling back to ~/.asana/.env.
func GetConfigValue(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	dotenv, err := LoadDotEnv()
	if err != nil {
		return "", err
	}
	return dotenv[key], nil
}

// EnsureDotEnvTemplate creates ~/.asana/.env if it does not already exist.
//
// The template contains configuration keys with empty values so users can fill
// them in when they switch to the HTTP pose detector.
func EnsureDotEnvTemplate() error {
	p, err := DotEnvPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat dotenv file %s: %w", p, err)
	}

	body := "" +
		"ASANA_DETECTOR_URL=\n" +
		"ASANA_DETECTOR_TOKEN=\n"

	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		return fmt.Errorf("cannot write dotenv template %s: %w", p, err)
	}
	return nil
}

// Environment keys read by asana.
const (
	EnvDetectorURL   = "ASANA_DETECTOR_URL"
	EnvDetectorToken = "ASANA_DETECTOR_TOKEN"
)

// ApplyEnvOverrides lets ASANA_DETECTOR_URL replace detector.base_url.
func ApplyEnvOverrides(cfg *Config) error {
	u, err := GetConfigValue(EnvDetectorURL)
	if err != nil {
		return err
	}
	if u != "" {
		cfg.Detector.BaseURL = u
	}
	return nil
}

// DetectorToken returns the bearer token for the HTTP detector, if any.
func DetectorToken() (string, error) {
	return GetConfigValue(EnvDetectorToken)
}
