package features

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kamusis/asana-cli/internal/dataset"
	"github.com/kamusis/asana-cli/internal/pose"
)

var classes = []string{"bhujangasana", "ustrasana", "vrikshasana"}

func torsoPose(shift float64) *pose.Pose {
	var p pose.Pose
	for i := range p {
		p[i] = r3.Vec{X: 1 + shift, Y: 0, Z: 0}
	}
	p[pose.LeftHip] = r3.Vec{X: 0 + shift, Y: 0}
	p[pose.RightHip] = r3.Vec{X: 2 + shift, Y: 0}
	p[pose.LeftShoulder] = r3.Vec{X: 0 + shift, Y: 4}
	p[pose.RightShoulder] = r3.Vec{X: 2 + shift, Y: 4}
	return &p
}

func degeneratePose() *pose.Pose {
	var p pose.Pose
	for i := range p {
		p[i] = r3.Vec{X: 3, Y: 3, Z: 3}
	}
	return &p
}

func TestExtract_TorsoScenario(t *testing.T) {
	vec, err := Extract(pose.Normalizer{}, *torsoPose(0))
	require.NoError(t, err)
	require.Len(t, vec, Dim)
	// shoulder center - hip center = (0, 40, 0)
	assert.InDelta(t, 0, vec[0], 1e-5)
	assert.InDelta(t, 40, vec[1], 1e-5)
	assert.InDelta(t, 0, vec[2], 1e-5)
}

func TestOneHot(t *testing.T) {
	v, err := OneHot(classes, "ustrasana")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, v)

	_, err = OneHot(classes, "savasana")
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestClassify(t *testing.T) {
	cases := map[FailureKind]error{
		KindMissing:    pose.ErrMissingPose,
		KindMalformed:  fmt.Errorf("line 3: %w", pose.ErrMalformedPose),
		KindDegenerate: pose.ErrDegeneratePose,
		KindLabel:      ErrUnknownLabel,
		KindDetector:   errors.New("connection reset"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Classify(err), err.Error())
	}
}

func TestRun_OrderAndFailures(t *testing.T) {
	var samples []dataset.Sample
	for i := range 40 {
		s := dataset.Sample{ID: fmt.Sprintf("s%02d", i), Label: classes[i%len(classes)], Pose: torsoPose(float64(i))}
		switch i {
		case 5:
			s.Pose, s.Err = nil, pose.ErrMissingPose
		case 11:
			s.Pose = degeneratePose()
		case 17:
			s.Label = "savasana"
		case 23:
			s.Pose, s.Err = nil, errors.New("timeout")
		}
		samples = append(samples, s)
	}

	p := &Pipeline{Labels: classes, Workers: 4}
	res, err := p.Run(context.Background(), samples)
	require.NoError(t, err)

	assert.Equal(t, 36, res.Len())
	assert.Len(t, res.Failures, 4)
	assert.Equal(t, map[FailureKind]int{
		KindMissing: 1, KindDegenerate: 1, KindLabel: 1, KindDetector: 1,
	}, res.Counts)

	// input order survives with failed ids removed
	prev := -1
	for _, id := range res.IDs {
		var n int
		_, err := fmt.Sscanf(id, "s%d", &n)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}

	// translation invariance: every extracted row is the same vector
	for i := range res.Vectors {
		assert.InDeltaSlice(t, res.Vectors[0], res.Vectors[i], 1e-9)
	}

	m := res.Matrix()
	r, c := m.Dims()
	assert.Equal(t, 36, r)
	assert.Equal(t, Dim, c)

	lm := res.LabelMatrix()
	r, c = lm.Dims()
	assert.Equal(t, 36, r)
	assert.Equal(t, len(classes), c)
	for i := range r {
		var sum float64
		for j := range c {
			sum += lm.At(i, j)
		}
		assert.Equal(t, 1.0, sum)
	}
	assert.Equal(t, 14, res.ClassCounts()["bhujangasana"])
}

func TestRun_Empty(t *testing.T) {
	res, err := (&Pipeline{Labels: classes}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Len())
	assert.Nil(t, res.Matrix())
}

func TestRun_NoLabels(t *testing.T) {
	_, err := (&Pipeline{}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	samples := []dataset.Sample{{ID: "a", Label: classes[0], Pose: torsoPose(0)}}
	_, err := (&Pipeline{Labels: classes}).Run(ctx, samples)
	assert.ErrorIs(t, err, context.Canceled)
}
