package capture

import (
	"fmt"
	"image"

	"ocr-text-commands/src/screenshot"
)

// ScreenRegion grabs a fixed rectangle of the screen, or the whole virtual
// screen, on every Read.
type ScreenRegion struct {
	region screenshot.Region
	all    bool
}

// NewScreenRegion captures region, or the primary display when region is the
// zero value. A partially specified region is an error.
func NewScreenRegion(region screenshot.Region) (*ScreenRegion, error) {
	if region == (screenshot.Region{}) {
		primary, err := screenshot.PrimaryRegion()
		if err != nil {
			return nil, fmt.Errorf("resolve screen region: %w", err)
		}
		region = primary
	}
	if region.Empty() {
		return nil, fmt.Errorf("invalid screen region: width=%d, height=%d", region.Width, region.Height)
	}
	return &ScreenRegion{region: region}, nil
}

// NewAllDisplays captures the union of every active display.
func NewAllDisplays() *ScreenRegion {
	return &ScreenRegion{all: true}
}

func (s *ScreenRegion) Read() (image.Image, error) {
	var (
		img *image.RGBA
		err error
	)
	if s.all {
		img, err = screenshot.Capture()
	} else {
		img, err = screenshot.CaptureRegion(s.region)
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s *ScreenRegion) Close() error { return nil }

func (s *ScreenRegion) String() string {
	if s.all {
		return "screen(all)"
	}
	r := s.region
	return fmt.Sprintf("screen(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
