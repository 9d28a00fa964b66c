package dataset

import "github.com/kamusis/asana-cli/internal/pose"

// Sample pairs an item with its detected pose. Pose is nil when detection
// failed, and Err says why. Samples are not modified after acquisition.
type Sample struct {
	ID    string
	Label string
	Pose  *pose.Pose
	Err   error
}

// HasPose reports whether the sample carries a usable pose.
func (s Sample) HasPose() bool {
	return s.Pose != nil && s.Err == nil
}
