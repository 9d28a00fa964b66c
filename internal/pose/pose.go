// Package pose holds the 33-joint skeleton model and the normalization that
// makes it translation and scale invariant.
package pose

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is one skeleton in absolute (pixel-equivalent) coordinates, indexed
// by Joint.
type Pose [NumJoints]r3.Vec

// At returns the landmark for joint j.
func (p *Pose) At(j Joint) r3.Vec {
	return p[j]
}

// HipCenter is the midpoint of the two hips.
func (p *Pose) HipCenter() r3.Vec {
	return Midpoint(p[LeftHip], p[RightHip])
}

// ShoulderCenter is the midpoint of the two shoulders.
func (p *Pose) ShoulderCenter() r3.Vec {
	return Midpoint(p[LeftShoulder], p[RightShoulder])
}

// Flat returns x1,y1,z1,...,x33,y33,z33.
func (p *Pose) Flat() []float64 {
	out := make([]float64, 0, NumJoints*3)
	for _, v := range p {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

// Midpoint returns the average of a and b.
func Midpoint(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}

// Distance2D is the Euclidean distance between a and b ignoring z.
func Distance2D(a, b r3.Vec) float64 {
	d := r3.Sub(a, b)
	return math.Hypot(d.X, d.Y)
}

// FromSlice builds a Pose from exactly NumJoints landmarks.
func FromSlice(landmarks []r3.Vec) (Pose, error) {
	var p Pose
	if len(landmarks) != NumJoints {
		return p, fmt.Errorf("%w: got %d landmarks, want %d", ErrMalformedPose, len(landmarks), NumJoints)
	}
	copy(p[:], landmarks)
	return p, nil
}

// FromFlat builds a Pose from 3*NumJoints coordinates as written by Flat.
func FromFlat(coords []float64) (Pose, error) {
	var p Pose
	if len(coords) != NumJoints*3 {
		return p, fmt.Errorf("%w: got %d coordinates, want %d", ErrMalformedPose, len(coords), NumJoints*3)
	}
	for i := range p {
		p[i] = r3.Vec{X: coords[3*i], Y: coords[3*i+1], Z: coords[3*i+2]}
	}
	return p, nil
}

// FromRelative maps detector output in [0,1] image coordinates to absolute
// coordinates: x by width, y by height, z by width as a depth proxy. Values
// are rounded to 5 decimals, matching the persisted tabular record.
func FromRelative(rel []r3.Vec, width, height int) (Pose, error) {
	if width <= 0 || height <= 0 {
		return Pose{}, fmt.Errorf("%w: invalid frame size %dx%d", ErrMalformedPose, width, height)
	}
	p, err := FromSlice(rel)
	if err != nil {
		return p, err
	}
	w, h := float64(width), float64(height)
	for i, v := range p {
		p[i] = r3.Vec{X: Round5(v.X * w), Y: Round5(v.Y * h), Z: Round5(v.Z * w)}
	}
	return p, nil
}

// Round5 rounds v to 5 decimal places.
func Round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
