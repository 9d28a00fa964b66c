package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/kamusis/asana-cli/internal/config"
	"github.com/kamusis/asana-cli/internal/logger"
)

// Options configures a Curator.
type Options struct {
	Labels      []string
	PerClassCap int
	MinPerClass int
	TrainRatio  float64
	Seed        int64
}

// OptionsFromConfig copies the curation settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Labels:      cfg.Labels,
		PerClassCap: cfg.Curation.PerClassCap,
		MinPerClass: cfg.Curation.MinPerClass,
		TrainRatio:  cfg.Curation.TrainRatio,
		Seed:        cfg.Curation.Seed,
	}
}

// Curator caps classes and splits them into train, test and validation.
// It is deterministic for a given seed and input order.
type Curator struct {
	opts Options
	log  logger.Logger
}

// NewCurator validates opts. Invalid options wrap config.ErrInvalidConfig.
func NewCurator(opts Options, log logger.Logger) (*Curator, error) {
	if len(opts.Labels) == 0 {
		return nil, fmt.Errorf("%w: empty label list", config.ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(opts.Labels))
	for _, l := range opts.Labels {
		if strings.TrimSpace(l) == "" {
			return nil, fmt.Errorf("%w: blank label", config.ErrInvalidConfig)
		}
		if seen[l] {
			return nil, fmt.Errorf("%w: duplicate label %q", config.ErrInvalidConfig, l)
		}
		seen[l] = true
	}
	if opts.PerClassCap < 1 {
		return nil, fmt.Errorf("%w: per-class cap must be >= 1, got %d", config.ErrInvalidConfig, opts.PerClassCap)
	}
	if !(opts.TrainRatio > 0 && opts.TrainRatio < 1) {
		return nil, fmt.Errorf("%w: train ratio must be within (0, 1), got %v", config.ErrInvalidConfig, opts.TrainRatio)
	}
	if opts.MinPerClass < 0 {
		return nil, fmt.Errorf("%w: min per class must not be negative", config.ErrInvalidConfig)
	}
	return &Curator{opts: opts, log: logger.OrDiscard(log)}, nil
}

// Report summarizes what curation did per class.
type Report struct {
	Available map[string]int
	Kept      map[string]int
	// Dropped lists labels that ended up with no usable samples.
	Dropped []string
}

// Curate caps each class at PerClassCap by seeded sampling without
// replacement, drops classes that end up empty or below MinPerClass, then
// performs a stratified split: TrainRatio of each class to train, the rest
// halved into test and validation. Items whose label is not configured are
// ignored. Every item lands in exactly one split.
func (c *Curator) Curate(items []Item) (*Split, *Report, error) {
	rng := rand.New(rand.NewPCG(uint64(c.opts.Seed), uint64(c.opts.Seed)))

	byLabel := make(map[string][]Item, len(c.opts.Labels))
	known := make(map[string]bool, len(c.opts.Labels))
	for _, l := range c.opts.Labels {
		known[l] = true
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if !known[it.Label] {
			c.log.Warn("ignoring sample with unknown label", "id", it.ID, "class", it.Label)
			continue
		}
		if seen[it.ID] {
			return nil, nil, fmt.Errorf("duplicate sample id %q", it.ID)
		}
		seen[it.ID] = true
		byLabel[it.Label] = append(byLabel[it.Label], it)
	}

	rep := &Report{Available: map[string]int{}, Kept: map[string]int{}}
	curated := make(map[string][]Item, len(c.opts.Labels))
	for _, l := range c.opts.Labels {
		group := byLabel[l]
		rep.Available[l] = len(group)
		if len(group) > c.opts.PerClassCap {
			group = sample(rng, group, c.opts.PerClassCap)
		}
		if len(group) == 0 || len(group) < c.opts.MinPerClass {
			c.log.Warn("class dropped after capping", "class", l, "samples", len(group), "min", c.opts.MinPerClass)
			rep.Dropped = append(rep.Dropped, l)
			continue
		}
		rep.Kept[l] = len(group)
		curated[l] = group
	}

	split := &Split{
		Labels:      append([]string(nil), c.opts.Labels...),
		Seed:        c.opts.Seed,
		TrainRatio:  c.opts.TrainRatio,
		PerClassCap: c.opts.PerClassCap,
	}
	for _, l := range c.opts.Labels {
		group := curated[l]
		if len(group) == 0 {
			continue
		}
		shuffled := shuffle(rng, group)
		nTrain := trainCount(len(shuffled), c.opts.TrainRatio)
		split.Train = append(split.Train, shuffled[:nTrain]...)

		rest := shuffled[nTrain:]
		// Test takes the odd one out, as a 50/50 split rounding up.
		nTest := len(rest) - len(rest)/2
		split.Test = append(split.Test, rest[:nTest]...)
		split.Validation = append(split.Validation, rest[nTest:]...)
	}

	split.Train = shuffle(rng, split.Train)
	split.Test = shuffle(rng, split.Test)
	split.Validation = shuffle(rng, split.Validation)
	return split, rep, nil
}

// sample draws k items without replacement, keeping their input order.
func sample(rng *rand.Rand, items []Item, k int) []Item {
	idx := rng.Perm(len(items))[:k]
	sort.Ints(idx)
	out := make([]Item, k)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

func shuffle(rng *rand.Rand, items []Item) []Item {
	out := append([]Item(nil), items...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func trainCount(n int, ratio float64) int {
	k := int(math.Round(float64(n) * ratio))
	return min(max(k, 0), n)
}
