package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Split names.
const (
	Train      = "train"
	Test       = "test"
	Validation = "validation"
)

// SplitNames lists the splits in the order they are processed.
var SplitNames = []string{Train, Test, Validation}

// Split is a fixed three-way partition of a curated dataset.
type Split struct {
	Labels      []string `json:"labels"`
	Seed        int64    `json:"seed"`
	TrainRatio  float64  `json:"train_ratio"`
	PerClassCap int      `json:"per_class_cap"`
	Train       []Item   `json:"train"`
	Test        []Item   `json:"test"`
	Validation  []Item   `json:"validation"`
}

// Part returns the items of the named split.
func (s *Split) Part(name string) ([]Item, error) {
	switch name {
	case Train:
		return s.Train, nil
	case Test:
		return s.Test, nil
	case Validation:
		return s.Validation, nil
	}
	return nil, fmt.Errorf("unknown split %q", name)
}

// Len is the total number of curated items.
func (s *Split) Len() int {
	return len(s.Train) + len(s.Test) + len(s.Validation)
}

// Counts returns split -> label -> count.
func (s *Split) Counts() map[string]map[string]int {
	out := make(map[string]map[string]int, len(SplitNames))
	for _, name := range SplitNames {
		part, _ := s.Part(name)
		m := make(map[string]int)
		for _, it := range part {
			m[it.Label]++
		}
		out[name] = m
	}
	return out
}

// Save writes the split as indented JSON to path.
func (s *Split) Save(path string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal split: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create split dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("cannot write split %s: %w", path, err)
	}
	return nil
}

// LoadSplit reads a split written by Save and checks it is a partition.
func LoadSplit(path string) (*Split, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read split %s: %w", path, err)
	}
	var s Split
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("invalid split JSON %s: %w", path, err)
	}
	if err := s.checkDisjoint(); err != nil {
		return nil, fmt.Errorf("split %s: %w", path, err)
	}
	return &s, nil
}

func (s *Split) checkDisjoint() error {
	owner := make(map[string]string, s.Len())
	for _, name := range SplitNames {
		part, _ := s.Part(name)
		for _, it := range part {
			if prev, ok := owner[it.ID]; ok {
				return fmt.Errorf("sample %q appears in both %s and %s", it.ID, prev, name)
			}
			owner[it.ID] = name
		}
	}
	return nil
}
