package pose

import "errors"

var (
	// ErrMissingPose indicates the detector found no pose in the image.
	ErrMissingPose = errors.New("no pose detected")

	// ErrMalformedPose indicates a landmark list whose length is not NumJoints.
	ErrMalformedPose = errors.New("malformed pose")

	// ErrDegeneratePose indicates a pose whose size is zero or not finite,
	// so it cannot be normalized.
	ErrDegeneratePose = errors.New("degenerate pose")
)
