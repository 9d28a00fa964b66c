package store

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LoadManifest reads only manifest.json from dir.
func LoadManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, manifestFile)
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest %s: %w", manifestPath, err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest JSON %s: %w", manifestPath, err)
	}
	if m.Dim <= 0 {
		return nil, fmt.Errorf("invalid dim in manifest: %d", m.Dim)
	}
	if len(m.Classes) == 0 {
		return nil, fmt.Errorf("manifest %s lists no classes", manifestPath)
	}
	m.applyDefaults()
	return &m, nil
}

// Load reads a store from dir containing manifest + samples + features +
// labels.
func Load(dir string) (*Store, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	samples, err := loadSamples(filepath.Join(dir, m.SamplesFile))
	if err != nil {
		return nil, err
	}
	if m.Count != len(samples) {
		return nil, fmt.Errorf("manifest count %d does not match %d samples", m.Count, len(samples))
	}
	feats, err := loadFloats(filepath.Join(dir, m.FeatureFile), len(samples), m.Dim)
	if err != nil {
		return nil, err
	}
	labels, err := loadFloats(filepath.Join(dir, m.LabelFile), len(samples), len(m.Classes))
	if err != nil {
		return nil, err
	}
	return &Store{Manifest: *m, Samples: samples, Features: feats, Labels: labels}, nil
}

func loadSamples(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open samples file %s: %w", path, err)
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("invalid samples JSONL %s: %w", path, err)
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read samples file %s: %w", path, err)
	}
	return out, nil
}

func loadFloats(path string, rows, width int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	expected := int64(rows * width * 4)
	if expected != st.Size() {
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d (rows=%d width=%d)", ErrDimMismatch, filepath.Base(path), st.Size(), expected, rows, width)
	}

	out := make([]float32, rows*width)
	if err := binary.Read(io.LimitReader(f, expected), binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return out, nil
}
