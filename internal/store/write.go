package store

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kamusis/asana-cli/internal/features"
)

// FromResult converts pipeline output into a Store. m supplies the run
// metadata (split, torso multiplier, seed); the shape fields are filled in
// from res.
func FromResult(res *features.Result, m Manifest) *Store {
	m.Dim = features.Dim
	m.Classes = append([]string(nil), res.Classes...)
	m.Count = res.Len()
	m.Failures = make(map[string]int, len(res.Counts))
	for k, n := range res.Counts {
		m.Failures[string(k)] = n
	}

	s := &Store{
		Manifest: m,
		Samples:  make([]Entry, 0, res.Len()),
		Features: make([]float32, 0, res.Len()*features.Dim),
		Labels:   make([]float32, 0, res.Len()*len(res.Classes)),
	}
	for i, id := range res.IDs {
		class := -1
		for j, v := range res.OneHot[i] {
			if v == 1 {
				class = j
			}
			s.Labels = append(s.Labels, float32(v))
		}
		for _, v := range res.Vectors[i] {
			s.Features = append(s.Features, float32(v))
		}
		s.Samples = append(s.Samples, Entry{ID: id, Label: res.Labels[i], Class: class})
	}
	return s
}

// Write writes store artifacts to dir.
func Write(dir string, s *Store) error {
	m := s.Manifest
	if m.Dim <= 0 {
		return fmt.Errorf("invalid dim: %d", m.Dim)
	}
	if len(m.Classes) == 0 {
		return fmt.Errorf("no classes in manifest")
	}
	n := len(s.Samples)
	if len(s.Features) != n*m.Dim {
		return fmt.Errorf("%w: features hold %d values, want %d", ErrDimMismatch, len(s.Features), n*m.Dim)
	}
	if len(s.Labels) != n*len(m.Classes) {
		return fmt.Errorf("%w: labels hold %d values, want %d", ErrDimMismatch, len(s.Labels), n*len(m.Classes))
	}
	m.applyDefaults()
	m.StoreVersion = Version
	m.Count = n
	if m.RunID == "" {
		m.RunID = uuid.NewString()
	}
	if m.CreatedAt == "" {
		m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create store dir %s: %w", dir, err)
	}

	// manifest
	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), mb, 0o644); err != nil {
		return fmt.Errorf("cannot write manifest: %w", err)
	}

	// samples jsonl
	if err := writeSamples(filepath.Join(dir, m.SamplesFile), s.Samples); err != nil {
		return err
	}

	// features and labels
	if err := writeFloats(filepath.Join(dir, m.FeatureFile), s.Features); err != nil {
		return err
	}
	if err := writeFloats(filepath.Join(dir, m.LabelFile), s.Labels); err != nil {
		return err
	}
	s.Manifest = m
	return nil
}

func writeSamples(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create samples file: %w", err)
	}
	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeFloats(path string, v []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Base(path), err)
	}
	bw := bufio.NewWriter(f)
	if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
		_ = f.Close()
		return fmt.Errorf("cannot write %s: %w", filepath.Base(path), err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
