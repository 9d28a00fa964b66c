package landmarks

import (
	"context"
	"fmt"
	"os"
)

// SidecarSuffix is appended to an image path to find its landmarks file,
// e.g. bhujangasana_1.jpg.landmarks.json.
const SidecarSuffix = ".landmarks.json"

// Sidecar reads landmarks that an offline detector run stored next to each
// image. A missing sidecar file means no pose was found.
type Sidecar struct{}

func (Sidecar) Name() string { return "sidecar" }

func (Sidecar) Detect(ctx context.Context, imagePath string) (Detection, error) {
	if err := ctx.Err(); err != nil {
		return Detection{}, err
	}
	p := imagePath + SidecarSuffix
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Detection{}, nil
		}
		return Detection{}, fmt.Errorf("cannot open sidecar %s: %w", p, err)
	}
	defer f.Close()

	det, err := decodeDocument(f)
	if err != nil {
		return Detection{}, fmt.Errorf("%s: %w", p, err)
	}
	return det, nil
}
