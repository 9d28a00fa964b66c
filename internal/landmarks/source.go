// Package landmarks obtains pose landmarks for images from an external
// detector and feeds them into the dataset as Samples.
package landmarks

import (
	"context"
	"fmt"
	"io"

	"github.com/kamusis/asana-cli/internal/config"
	"github.com/kamusis/asana-cli/internal/pose"
	"gonum.org/v1/gonum/spatial/r3"
)

// Detection is one detector answer for one image. Landmarks are in relative
// [0,1] image coordinates; Width and Height are the frame size in pixels.
type Detection struct {
	Found     bool
	Width     int
	Height    int
	Landmarks []r3.Vec
}

// Pose converts the detection to absolute coordinates. A detection without a
// pose yields pose.ErrMissingPose, a wrong landmark count pose.ErrMalformedPose.
func (d Detection) Pose() (pose.Pose, error) {
	if !d.Found {
		return pose.Pose{}, pose.ErrMissingPose
	}
	return pose.FromRelative(d.Landmarks, d.Width, d.Height)
}

// Source produces landmarks for an image.
//
// Implementations must be safe for concurrent use.
type Source interface {
	Name() string
	Detect(ctx context.Context, imagePath string) (Detection, error)
}

// NewFromConfig returns the configured Source, wrapped in a SQLite cache
// when detector.cache is set. Call Close on the result when done.
func NewFromConfig(cfg *config.Config) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	var src Source
	switch cfg.Detector.Kind {
	case config.DetectorSidecar, "":
		src = Sidecar{}
	case config.DetectorHTTP:
		if cfg.Detector.BaseURL == "" {
			return nil, fmt.Errorf("detector base URL is not configured (set detector.base_url or %s)", config.EnvDetectorURL)
		}
		token, err := config.DetectorToken()
		if err != nil {
			return nil, err
		}
		timeout, err := cfg.DetectorTimeout()
		if err != nil {
			return nil, err
		}
		src = NewHTTP(cfg.Detector.BaseURL, token, timeout)
	default:
		return nil, fmt.Errorf("unsupported detector kind: %s", cfg.Detector.Kind)
	}

	if cfg.Detector.Cache == "" {
		return src, nil
	}
	return OpenCache(cfg.Detector.Cache, src)
}

// Close releases src if it holds resources.
func Close(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
