package landmarks

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kamusis/asana-cli/internal/pose"
	"gonum.org/v1/gonum/spatial/r3"
)

// point is a MediaPipe-style landmark. Visibility and presence are read
// but not used.
type point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
	Presence   float64 `json:"presence,omitempty"`
}

// document is the JSON shape shared by sidecar files, the HTTP detector and
// the cache. Landmarks may come as an ordered list or as a map keyed by
// joint name; "found": false, or neither field, means no pose.
type document struct {
	Found     *bool            `json:"found,omitempty"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Landmarks []point          `json:"landmarks,omitempty"`
	Joints    map[string]point `json:"joints,omitempty"`
}

func decodeDocument(r io.Reader) (Detection, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Detection{}, fmt.Errorf("cannot parse landmarks document: %w", err)
	}
	return doc.detection()
}

func (doc document) detection() (Detection, error) {
	if doc.Found != nil && !*doc.Found {
		return Detection{}, nil
	}
	det := Detection{Width: doc.Width, Height: doc.Height}
	switch {
	case len(doc.Landmarks) > 0:
		det.Found = true
		det.Landmarks = make([]r3.Vec, len(doc.Landmarks))
		for i, p := range doc.Landmarks {
			det.Landmarks[i] = r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
		}
	case len(doc.Joints) > 0:
		if len(doc.Joints) != pose.NumJoints {
			return Detection{}, fmt.Errorf("%w: got %d named joints, want %d", pose.ErrMalformedPose, len(doc.Joints), pose.NumJoints)
		}
		det.Found = true
		det.Landmarks = make([]r3.Vec, pose.NumJoints)
		var filled [pose.NumJoints]bool
		for name, p := range doc.Joints {
			j, err := pose.ParseJoint(name)
			if err != nil {
				return Detection{}, fmt.Errorf("%w: %v", pose.ErrMalformedPose, err)
			}
			if filled[j] {
				return Detection{}, fmt.Errorf("%w: joint %s given twice", pose.ErrMalformedPose, j)
			}
			filled[j] = true
			det.Landmarks[j] = r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
		}
	}
	return det, nil
}

func encodeDocument(det Detection) ([]byte, error) {
	found := det.Found
	doc := document{Found: &found, Width: det.Width, Height: det.Height}
	for _, v := range det.Landmarks {
		doc.Landmarks = append(doc.Landmarks, point{X: v.X, Y: v.Y, Z: v.Z})
	}
	return json.Marshal(doc)
}
