// Package features turns samples with poses into fixed-width feature
// vectors and one-hot labels for the classifier.
package features

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/kamusis/asana-cli/internal/dataset"
	"github.com/kamusis/asana-cli/internal/embedding"
	"github.com/kamusis/asana-cli/internal/logger"
	"github.com/kamusis/asana-cli/internal/pose"
)

// Dim is the length of one feature vector.
const Dim = embedding.Width

// ErrUnknownLabel is returned for a sample whose label is not in the
// pipeline's label list.
var ErrUnknownLabel = errors.New("unknown label")

// FailureKind says why a sample was excluded.
type FailureKind string

const (
	KindMissing    FailureKind = "missing"
	KindMalformed  FailureKind = "malformed"
	KindDegenerate FailureKind = "degenerate"
	KindLabel      FailureKind = "label"
	KindDetector   FailureKind = "detector"
)

// Kinds lists failure kinds in report order.
func Kinds() []FailureKind {
	return []FailureKind{KindMissing, KindMalformed, KindDegenerate, KindLabel, KindDetector}
}

// Classify maps a per-sample error to its kind. Errors that are not pose or
// label errors come from the landmark detector.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, pose.ErrMissingPose):
		return KindMissing
	case errors.Is(err, pose.ErrMalformedPose):
		return KindMalformed
	case errors.Is(err, pose.ErrDegeneratePose):
		return KindDegenerate
	case errors.Is(err, ErrUnknownLabel):
		return KindLabel
	default:
		return KindDetector
	}
}

// Failure records a sample excluded from the output.
type Failure struct {
	ID    string
	Label string
	Kind  FailureKind
	Err   error
}

// Result holds the pipeline output. Rows of IDs, Labels, Vectors and OneHot
// line up and follow the input order with failed samples removed.
type Result struct {
	Classes  []string
	IDs      []string
	Labels   []string
	Vectors  [][]float64
	OneHot   [][]float64
	Failures []Failure
	Counts   map[FailureKind]int
}

// Len returns the number of extracted samples.
func (r *Result) Len() int { return len(r.IDs) }

// Matrix returns the feature vectors as a Len x Dim matrix, or nil when empty.
func (r *Result) Matrix() *mat.Dense {
	return rows(r.Vectors, Dim)
}

// LabelMatrix returns the one-hot labels as a Len x len(Classes) matrix,
// or nil when empty.
func (r *Result) LabelMatrix() *mat.Dense {
	return rows(r.OneHot, len(r.Classes))
}

func rows(vs [][]float64, width int) *mat.Dense {
	if len(vs) == 0 || width == 0 {
		return nil
	}
	data := make([]float64, 0, len(vs)*width)
	for _, v := range vs {
		data = append(data, v...)
	}
	return mat.NewDense(len(vs), width, data)
}

// ClassCounts returns the number of extracted samples per label.
func (r *Result) ClassCounts() map[string]int {
	out := make(map[string]int, len(r.Classes))
	for _, l := range r.Labels {
		out[l]++
	}
	return out
}

// Extract normalizes one pose and flattens its embedding. It is a pure
// function of its input.
func Extract(n pose.Normalizer, p pose.Pose) ([]float64, error) {
	np, err := n.Normalize(p)
	if err != nil {
		return nil, err
	}
	return embedding.Embed(&np), nil
}

// OneHot returns a vector of len(classes) with a 1 at label's position.
func OneHot(classes []string, label string) ([]float64, error) {
	for i, c := range classes {
		if c == label {
			v := make([]float64, len(classes))
			v[i] = 1
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
}

// Pipeline extracts feature vectors for a batch of samples in parallel.
type Pipeline struct {
	Normalizer pose.Normalizer
	// Labels is the ordered class list; it fixes the one-hot layout.
	Labels []string
	// Workers bounds concurrency. Zero means GOMAXPROCS.
	Workers int
	Logger  logger.Logger
}

type outcome struct {
	vec    []float64
	onehot []float64
	err    error
}

// Run extracts every sample. Per-sample failures are counted in the
// result and logged; only an empty label list or context cancellation
// make Run fail.
func (p *Pipeline) Run(ctx context.Context, samples []dataset.Sample) (*Result, error) {
	if len(p.Labels) == 0 {
		return nil, fmt.Errorf("pipeline has no labels")
	}
	log := logger.OrDiscard(p.Logger)
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outs := make([]outcome, len(samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range samples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outs[i] = p.one(samples[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Classes: append([]string(nil), p.Labels...),
		Counts:  make(map[FailureKind]int),
	}
	for i, o := range outs {
		s := samples[i]
		if o.err != nil {
			kind := Classify(o.err)
			res.Failures = append(res.Failures, Failure{ID: s.ID, Label: s.Label, Kind: kind, Err: o.err})
			res.Counts[kind]++
			log.Warn("sample excluded", "class", s.Label, "id", s.ID, "reason", kind, "err", o.err)
			continue
		}
		res.IDs = append(res.IDs, s.ID)
		res.Labels = append(res.Labels, s.Label)
		res.Vectors = append(res.Vectors, o.vec)
		res.OneHot = append(res.OneHot, o.onehot)
	}
	return res, nil
}

func (p *Pipeline) one(s dataset.Sample) outcome {
	if s.Err != nil {
		return outcome{err: s.Err}
	}
	if s.Pose == nil {
		return outcome{err: pose.ErrMissingPose}
	}
	oh, err := OneHot(p.Labels, s.Label)
	if err != nil {
		return outcome{err: err}
	}
	vec, err := Extract(p.Normalizer, *s.Pose)
	if err != nil {
		return outcome{err: err}
	}
	return outcome{vec: vec, onehot: oh}
}
