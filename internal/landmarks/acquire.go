package landmarks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kamusis/asana-cli/internal/dataset"
	"github.com/kamusis/asana-cli/internal/logger"
)

// ErrDetector marks a sample whose detector call failed, as opposed to a
// detector that ran and found no usable pose.
var ErrDetector = errors.New("detector failed")

// AcquireOptions tunes Acquire.
type AcquireOptions struct {
	// Workers bounds concurrent Detect calls. Zero means GOMAXPROCS.
	Workers int
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
	Log      logger.Logger
}

// Acquire runs src over items and returns one Sample per item, in item
// order. Per-image failures are recorded on the sample and do not stop the
// run; only context cancellation does.
func Acquire(ctx context.Context, src Source, items []dataset.Item, opts AcquireOptions) ([]dataset.Sample, error) {
	log := logger.OrDiscard(opts.Log).With("source", src.Name())
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var bar *pb.ProgressBar
	if opts.Progress != nil && len(items) > 0 {
		bar = pb.New(len(items))
		bar.SetWriter(opts.Progress)
		bar.Start()
		defer bar.Finish()
	}

	samples := make([]dataset.Sample, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, it := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			samples[i] = detectOne(gctx, src, it)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s := samples[i]; s.Err != nil {
				log.Debug("no pose", "id", it.ID, "err", s.Err)
			}
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

func detectOne(ctx context.Context, src Source, it dataset.Item) dataset.Sample {
	s := dataset.Sample{ID: it.ID, Label: it.Label}
	det, err := src.Detect(ctx, it.Path)
	if err != nil {
		s.Err = fmt.Errorf("%w: %v", ErrDetector, err)
		return s
	}
	p, err := det.Pose()
	if err != nil {
		s.Err = err
		return s
	}
	s.Pose = &p
	return s
}
