package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-5

// torsoPose places hips and shoulders as a 2x4 rectangle and every other
// joint on the hip line, so the torso floor decides the pose size.
func torsoPose() Pose {
	var p Pose
	for i := range p {
		p[i] = r3.Vec{X: 1, Y: 0, Z: 0}
	}
	p[LeftHip] = r3.Vec{X: 0, Y: 0, Z: 0}
	p[RightHip] = r3.Vec{X: 2, Y: 0, Z: 0}
	p[LeftShoulder] = r3.Vec{X: 0, Y: 4, Z: 0}
	p[RightShoulder] = r3.Vec{X: 2, Y: 4, Z: 0}
	return p
}

// spreadPose has extended limbs so limb extension beats the torso floor.
func spreadPose() Pose {
	p := torsoPose()
	p[LeftWrist] = r3.Vec{X: -9, Y: 7, Z: 1.5}
	p[RightWrist] = r3.Vec{X: 11, Y: 7, Z: -2}
	p[LeftAnkle] = r3.Vec{X: -3, Y: -8, Z: 0.25}
	p[RightAnkle] = r3.Vec{X: 5, Y: -8, Z: 0}
	p[Nose] = r3.Vec{X: 1, Y: 5.5, Z: 3}
	return p
}

func assertVecInDelta(t *testing.T, want, got r3.Vec, msg string) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "%s x", msg)
	assert.InDelta(t, want.Y, got.Y, tol, "%s y", msg)
	assert.InDelta(t, want.Z, got.Z, tol, "%s z", msg)
}

func TestNormalize_TorsoScenario(t *testing.T) {
	p := torsoPose()
	assert.InDelta(t, 4.0, TorsoSize(&p), tol)

	n := NewNormalizer(DefaultTorsoMultiplier)
	assert.InDelta(t, 10.0, n.Size(&p), tol)

	got, err := n.Normalize(p)
	require.NoError(t, err)

	// (0-1)/10*100, (0-0)/10*100, 0
	assertVecInDelta(t, r3.Vec{X: -10, Y: 0, Z: 0}, got[LeftHip], "left hip")
	assertVecInDelta(t, r3.Vec{X: 10, Y: 0, Z: 0}, got[RightHip], "right hip")
	assertVecInDelta(t, r3.Vec{X: -10, Y: 40, Z: 0}, got[LeftShoulder], "left shoulder")
	assertVecInDelta(t, r3.Vec{X: 0, Y: 40, Z: 0}, got.ShoulderCenter(), "shoulder center")
}

func TestNormalize_LimbExtensionBeatsTorsoFloor(t *testing.T) {
	p := spreadPose()
	n := Normalizer{}
	// right wrist: (11-1, 7-0) -> hypot(10, 7)
	want := math.Hypot(10, 7)
	assert.InDelta(t, want, n.Size(&p), tol)

	got, err := n.Normalize(p)
	require.NoError(t, err)
	assertVecInDelta(t, r3.Vec{X: 10 / want * 100, Y: 7 / want * 100, Z: -2 / want * 100}, got[RightWrist], "right wrist")
}

func TestNormalize_TranslationInvariance(t *testing.T) {
	n := Normalizer{}
	base, err := n.Normalize(spreadPose())
	require.NoError(t, err)

	for _, off := range []r3.Vec{{X: 100, Y: -50, Z: 3}, {X: -0.5, Y: 0.25, Z: 0}, {X: 1e4, Y: 1e4, Z: 1e4}} {
		p := spreadPose()
		for i := range p {
			p[i] = r3.Add(p[i], off)
		}
		got, err := n.Normalize(p)
		require.NoError(t, err)
		for j := range got {
			assertVecInDelta(t, base[j], got[j], Joint(j).String())
		}
	}
}

func TestNormalize_ScaleInvariance(t *testing.T) {
	n := Normalizer{}
	base, err := n.Normalize(spreadPose())
	require.NoError(t, err)

	for _, k := range []float64{0.01, 0.5, 3, 640} {
		p := spreadPose()
		for i := range p {
			p[i] = r3.Scale(k, p[i])
		}
		got, err := n.Normalize(p)
		require.NoError(t, err)
		for j := range got {
			assertVecInDelta(t, base[j], got[j], Joint(j).String())
		}
	}
}

func TestNormalize_HipCenterAtOrigin(t *testing.T) {
	for _, p := range []Pose{torsoPose(), spreadPose()} {
		p[LeftHip].Z = 7
		got, err := Normalizer{TorsoMultiplier: 1.5}.Normalize(p)
		require.NoError(t, err)
		c := got.HipCenter()
		assert.InDelta(t, 0, c.X, tol)
		assert.InDelta(t, 0, c.Y, tol)
	}
}

func TestNormalize_Degenerate(t *testing.T) {
	var p Pose
	for i := range p {
		p[i] = r3.Vec{X: 3, Y: 3, Z: 3}
	}
	_, err := Normalizer{}.Normalize(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegeneratePose))
}

func TestNormalize_NonFiniteInput(t *testing.T) {
	p := spreadPose()
	p[LeftEar] = r3.Vec{X: math.NaN(), Y: 1, Z: 0}
	_, err := Normalizer{}.Normalize(p)
	assert.ErrorIs(t, err, ErrDegeneratePose)

	p = spreadPose()
	p[RightEar] = r3.Vec{X: math.Inf(1), Y: 1, Z: 0}
	_, err = Normalizer{}.Normalize(p)
	assert.ErrorIs(t, err, ErrDegeneratePose)
}
