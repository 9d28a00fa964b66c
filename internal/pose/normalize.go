package pose

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultTorsoMultiplier sets the minimal body size as a multiple of
	// the torso length.
	DefaultTorsoMultiplier = 2.5

	// OutputScale is applied after dividing by pose size. It only makes
	// the numbers easier to read.
	OutputScale = 100.0
)

// Normalized is a Pose re-expressed around the hip center and divided by
// the pose size. The hip center of a Normalized pose is the origin in x,y.
type Normalized Pose

// HipCenter of the normalized pose.
func (n *Normalized) HipCenter() r3.Vec {
	return Midpoint(n[LeftHip], n[RightHip])
}

// ShoulderCenter of the normalized pose.
func (n *Normalized) ShoulderCenter() r3.Vec {
	return Midpoint(n[LeftShoulder], n[RightShoulder])
}

// Normalizer maps absolute poses into the invariant frame.
// The zero value uses DefaultTorsoMultiplier.
type Normalizer struct {
	TorsoMultiplier float64
}

// NewNormalizer returns a Normalizer with the given torso multiplier.
func NewNormalizer(torsoMultiplier float64) Normalizer {
	return Normalizer{TorsoMultiplier: torsoMultiplier}
}

func (n Normalizer) multiplier() float64 {
	if n.TorsoMultiplier <= 0 {
		return DefaultTorsoMultiplier
	}
	return n.TorsoMultiplier
}

// TorsoSize is the 2D distance between hip center and shoulder center.
func TorsoSize(p *Pose) float64 {
	return Distance2D(p.HipCenter(), p.ShoulderCenter())
}

// Size returns the normalization divisor: the larger of torso size times the
// multiplier and the farthest 2D distance from the hip center to any
// landmark. It is the same before and after translation.
func (n Normalizer) Size(p *Pose) float64 {
	center := p.HipCenter()
	size := TorsoSize(p) * n.multiplier()
	for _, lm := range p {
		if d := Distance2D(center, lm); d > size {
			size = d
		}
	}
	return size
}

// Normalize translates p so the hip center sits at the origin, then scales
// it by OutputScale/size. A zero or non-finite size, or any non-finite
// output coordinate, yields ErrDegeneratePose.
func (n Normalizer) Normalize(p Pose) (Normalized, error) {
	var out Normalized
	center := p.HipCenter()
	for i, lm := range p {
		out[i] = r3.Sub(lm, center)
	}

	translated := Pose(out)
	size := n.Size(&translated)
	if size == 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return Normalized{}, fmt.Errorf("%w: pose size %v", ErrDegeneratePose, size)
	}

	inv := 1 / size
	for i, v := range out {
		out[i] = r3.Scale(OutputScale, r3.Scale(inv, v))
	}

	scaled := Pose(out)
	flat := scaled.Flat()
	if !allFinite(flat) {
		return Normalized{}, fmt.Errorf("%w: non-finite coordinate after scaling", ErrDegeneratePose)
	}
	return out, nil
}

func allFinite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
