// Package store persists feature-pipeline output for one split as a small
// directory of files:
//
//	manifest.json   run metadata
//	samples.jsonl   one entry per row
//	features.f32    rows x dim little-endian float32
//	labels.f32      rows x len(classes) one-hot little-endian float32
package store

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Version is the on-disk layout version written to manifests.
const Version = 1

const (
	manifestFile = "manifest.json"
	samplesFile  = "samples.jsonl"
	featureFile  = "features.f32"
	labelFile    = "labels.f32"
)

// ErrDimMismatch indicates a feature or label block whose size does not
// match the manifest.
var ErrDimMismatch = errors.New("dimension mismatch")

// Manifest describes a stored split and how it was produced.
type Manifest struct {
	StoreVersion    int            `json:"store_version"`
	RunID           string         `json:"run_id"`
	CreatedAt       string         `json:"created_at"`
	Split           string         `json:"split"`
	Dim             int            `json:"dim"`
	Classes         []string       `json:"classes"`
	TorsoMultiplier float64        `json:"torso_multiplier"`
	Seed            int64          `json:"seed"`
	Count           int            `json:"count"`
	Failures        map[string]int `json:"failures,omitempty"`
	FeatureFile     string         `json:"feature_file"`
	LabelFile       string         `json:"label_file"`
	SamplesFile     string         `json:"samples_file"`
}

// Entry is one row in samples.jsonl.
type Entry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Class int    `json:"class"`
}

// Store is a loaded split.
type Store struct {
	Manifest Manifest
	Samples  []Entry
	Features []float32
	Labels   []float32
}

// FeatureMatrix returns the features as a Count x Dim matrix, or nil when
// the store is empty.
func (s *Store) FeatureMatrix() *mat.Dense {
	return dense(s.Features, len(s.Samples), s.Manifest.Dim)
}

// LabelMatrix returns the one-hot labels as a Count x len(Classes) matrix,
// or nil when the store is empty.
func (s *Store) LabelMatrix() *mat.Dense {
	return dense(s.Labels, len(s.Samples), len(s.Manifest.Classes))
}

// ClassCounts returns rows per class label.
func (s *Store) ClassCounts() map[string]int {
	out := make(map[string]int)
	for _, e := range s.Samples {
		out[e.Label]++
	}
	return out
}

func dense(v []float32, r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	data := make([]float64, len(v))
	for i, x := range v {
		data[i] = float64(x)
	}
	return mat.NewDense(r, c, data)
}

func (m *Manifest) applyDefaults() {
	if m.FeatureFile == "" {
		m.FeatureFile = featureFile
	}
	if m.LabelFile == "" {
		m.LabelFile = labelFile
	}
	if m.SamplesFile == "" {
		m.SamplesFile = samplesFile
	}
}
