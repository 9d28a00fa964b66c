package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kamusis/asana-cli/internal/features"
)

func TestLoad_HappyPath(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{
		StoreVersion: 1,
		RunID:        "run",
		CreatedAt:    "2026-01-01T00:00:00Z",
		Split:        "train",
		Dim:          2,
		Classes:      []string{"a", "b"},
		Count:        2,
	}
	mb, _ := json.Marshal(m)
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), mb, 0o644); err != nil {
		t.Fatal(err)
	}

	entries := []Entry{{ID: "a/1.jpg", Label: "a", Class: 0}, {ID: "b/1.jpg", Label: "b", Class: 1}}
	var lines []byte
	for _, e := range entries {
		b, _ := json.Marshal(e)
		lines = append(lines, b...)
		lines = append(lines, '\n')
	}
	if err := os.WriteFile(filepath.Join(dir, "samples.jsonl"), lines, 0o644); err != nil {
		t.Fatal(err)
	}
	writeRaw(t, filepath.Join(dir, "features.f32"), []float32{1, 0, 0, 1})
	writeRaw(t, filepath.Join(dir, "labels.f32"), []float32{1, 0, 0, 1})

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Manifest.Dim != 2 {
		t.Fatalf("dim mismatch")
	}
	if len(s.Samples) != 2 {
		t.Fatalf("samples mismatch")
	}
	if len(s.Features) != 4 || len(s.Labels) != 4 {
		t.Fatalf("vectors mismatch")
	}
	if got := s.FeatureMatrix().At(1, 1); got != 1 {
		t.Fatalf("features[1][1] = %v, want 1", got)
	}
}

func writeRaw(t *testing.T, path string, v []float32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := binary.Write(f, binary.LittleEndian, v); err != nil {
		_ = f.Close()
		t.Fatal(err)
	}
	_ = f.Close()
}

func testResult() *features.Result {
	res := &features.Result{
		Classes: []string{"ustrasana", "vrikshasana"},
		Counts:  map[features.FailureKind]int{features.KindMissing: 3},
	}
	for i, l := range []string{"vrikshasana", "ustrasana", "vrikshasana"} {
		vec := make([]float64, features.Dim)
		for j := range vec {
			vec[j] = float64(i*100 + j)
		}
		oh, _ := features.OneHot(res.Classes, l)
		res.IDs = append(res.IDs, l+"/"+string(rune('a'+i))+".jpg")
		res.Labels = append(res.Labels, l)
		res.Vectors = append(res.Vectors, vec)
		res.OneHot = append(res.OneHot, oh)
	}
	return res
}

func TestWriteLoad_FromResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "train")
	s := FromResult(testResult(), Manifest{Split: "train", TorsoMultiplier: 2.5, Seed: 123})
	if err := Write(dir, s); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if s.Manifest.RunID == "" || s.Manifest.CreatedAt == "" {
		t.Fatalf("run id and timestamp must be set: %+v", s.Manifest)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m := got.Manifest
	if m.Dim != 69 || m.Count != 3 || m.Seed != 123 || m.Failures["missing"] != 3 {
		t.Fatalf("unexpected manifest %+v", m)
	}
	if got.Samples[1].Class != 0 || got.Samples[0].Class != 1 {
		t.Fatalf("unexpected classes %+v", got.Samples)
	}
	if v := got.FeatureMatrix().At(2, 68); v != 268 {
		t.Fatalf("features[2][68] = %v, want 268", v)
	}
	if v := got.LabelMatrix().At(1, 0); v != 1 {
		t.Fatalf("labels[1][0] = %v, want 1", v)
	}
	if c := got.ClassCounts(); c["vrikshasana"] != 2 {
		t.Fatalf("class counts = %v", c)
	}
}

func TestLoad_TruncatedFeatures(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, FromResult(testResult(), Manifest{Split: "test"})); err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(filepath.Join(dir, "features.f32"), 40); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if !errors.Is(err, ErrDimMismatch) {
		t.Fatalf("err = %v, want ErrDimMismatch", err)
	}
}

func TestWrite_RejectsShapeMismatch(t *testing.T) {
	s := FromResult(testResult(), Manifest{})
	s.Features = s.Features[:10]
	if err := Write(t.TempDir(), s); !errors.Is(err, ErrDimMismatch) {
		t.Fatalf("err = %v, want ErrDimMismatch", err)
	}
}

func TestAtomicSwap(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "train")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "old"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tmp, err := TempDir(dest)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "new"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := AtomicSwap(tmp, dest); err != nil {
		t.Fatalf("AtomicSwap: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "new")); err != nil {
		t.Fatalf("new content missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "old")); !os.IsNotExist(err) {
		t.Fatalf("old content still present")
	}
	if _, err := os.Stat(dest + ".bak"); !os.IsNotExist(err) {
		t.Fatalf("backup not removed")
	}
}

func TestLock_Exclusive(t *testing.T) {
	root := t.TempDir()
	unlock, err := Lock(root, time.Second)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := Lock(root, 300*time.Millisecond); err == nil {
		t.Fatal("second Lock should time out while the first is held")
	}
	unlock()
	unlock2, err := Lock(root, time.Second)
	if err != nil {
		t.Fatalf("Lock after unlock: %v", err)
	}
	unlock2()
}
