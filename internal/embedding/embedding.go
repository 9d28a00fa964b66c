// Package embedding turns a normalized pose into the fixed set of
// joint-to-joint difference vectors the classifier is trained on.
//
// The order of Pairs is part of the model's input contract. Appending,
// removing or reordering a pair invalidates every trained model.
package embedding

import (
	"fmt"

	"github.com/kamusis/asana-cli/internal/pose"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// NumVectors is the number of difference vectors in an embedding.
	NumVectors = 23
	// Width is the length of a flattened embedding.
	Width = NumVectors * 3
)

// Group is the anatomical distance class of a pair.
type Group int

const (
	Torso Group = iota
	OneJoint
	TwoJoints
	FourJoints
	FiveJoints
	CrossBody
)

func (g Group) String() string {
	switch g {
	case Torso:
		return "torso"
	case OneJoint:
		return "one_joint"
	case TwoJoints:
		return "two_joints"
	case FourJoints:
		return "four_joints"
	case FiveJoints:
		return "five_joints"
	case CrossBody:
		return "cross_body"
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// Ref points at a single joint or at the midpoint of two joints.
type Ref struct {
	A, B pose.Joint
}

// J refers to one joint.
func J(j pose.Joint) Ref { return Ref{A: j, B: j} }

// Mid refers to the midpoint of a and b.
func Mid(a, b pose.Joint) Ref { return Ref{A: a, B: b} }

// Resolve returns the position Ref points at in n.
func (r Ref) Resolve(n *pose.Normalized) r3.Vec {
	if r.A == r.B {
		return n[r.A]
	}
	return pose.Midpoint(n[r.A], n[r.B])
}

func (r Ref) String() string {
	if r.A == r.B {
		return r.A.String()
	}
	return fmt.Sprintf("mid(%s,%s)", r.A, r.B)
}

// Pair yields Head - Tail.
type Pair struct {
	Group Group
	Head  Ref
	Tail  Ref
}

func (p Pair) String() string {
	return fmt.Sprintf("%s: %s - %s", p.Group, p.Head, p.Tail)
}

// The five-joint group repeats the two four-joint wrist-to-hip vectors.
// Trained models expect the duplicate, so it stays.
var pairs = [NumVectors]Pair{
	{Torso, Mid(pose.LeftShoulder, pose.RightShoulder), Mid(pose.LeftHip, pose.RightHip)},

	{OneJoint, J(pose.RightShoulder), J(pose.LeftShoulder)},
	{OneJoint, J(pose.RightElbow), J(pose.RightShoulder)},
	{OneJoint, J(pose.LeftWrist), J(pose.LeftElbow)},
	{OneJoint, J(pose.RightWrist), J(pose.RightElbow)},
	{OneJoint, J(pose.LeftKnee), J(pose.LeftHip)},
	{OneJoint, J(pose.RightKnee), J(pose.RightHip)},
	{OneJoint, J(pose.LeftAnkle), J(pose.LeftKnee)},
	{OneJoint, J(pose.RightAnkle), J(pose.RightKnee)},

	{TwoJoints, J(pose.LeftWrist), J(pose.LeftShoulder)},
	{TwoJoints, J(pose.RightWrist), J(pose.RightShoulder)},
	{TwoJoints, J(pose.LeftAnkle), J(pose.LeftHip)},
	{TwoJoints, J(pose.RightAnkle), J(pose.RightHip)},

	{FourJoints, J(pose.LeftWrist), J(pose.LeftHip)},
	{FourJoints, J(pose.RightWrist), J(pose.RightHip)},

	{FiveJoints, J(pose.LeftAnkle), J(pose.LeftShoulder)},
	{FiveJoints, J(pose.RightAnkle), J(pose.RightShoulder)},
	{FiveJoints, J(pose.LeftWrist), J(pose.LeftHip)},
	{FiveJoints, J(pose.RightWrist), J(pose.RightHip)},

	{CrossBody, J(pose.RightElbow), J(pose.LeftElbow)},
	{CrossBody, J(pose.RightKnee), J(pose.LeftKnee)},
	{CrossBody, J(pose.RightWrist), J(pose.LeftWrist)},
	{CrossBody, J(pose.RightAnkle), J(pose.LeftAnkle)},
}

// Pairs returns a copy of the pair list in output order.
func Pairs() []Pair {
	out := make([]Pair, NumVectors)
	copy(out, pairs[:])
	return out
}

// Build computes the difference vectors for n in Pairs order.
func Build(n *pose.Normalized) [NumVectors]r3.Vec {
	var out [NumVectors]r3.Vec
	for i, p := range pairs {
		out[i] = r3.Sub(p.Head.Resolve(n), p.Tail.Resolve(n))
	}
	return out
}

// Flatten lays the vectors out as x,y,z per vector, in order.
func Flatten(vs [NumVectors]r3.Vec) []float64 {
	out := make([]float64, 0, Width)
	for _, v := range vs {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

// Embed is Flatten(Build(n)).
func Embed(n *pose.Normalized) []float64 {
	return Flatten(Build(n))
}

// Names returns one column name per flattened value, e.g.
// "torso.x" or "one_joint.right_shoulder-left_shoulder.y".
func Names() []string {
	out := make([]string, 0, Width)
	for _, p := range pairs {
		base := p.Group.String()
		if p.Group != Torso {
			base += "." + p.Head.String() + "-" + p.Tail.String()
		}
		out = append(out, base+".x", base+".y", base+".z")
	}
	return out
}
