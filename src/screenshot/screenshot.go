package screenshot

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// Region represents a screen region to capture, in virtual-screen coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect returns the region as an image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Capture captures the entire virtual screen across all active displays
func Capture() (*image.RGBA, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return screenshot.CaptureRect(union)
}

// CaptureRegion captures a specific region of the screen
func CaptureRegion(region Region) (*image.RGBA, error) {
	if region.Empty() {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", region.Width, region.Height)
	}

	img, err := screenshot.CaptureRect(region.Rect())
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return img, nil
}

// GetDisplayBounds returns the bounds of the primary display
func GetDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}

// PrimaryRegion returns the primary display as a Region.
func PrimaryRegion() (Region, error) {
	b, err := GetDisplayBounds()
	if err != nil {
		return Region{}, err
	}
	return Region{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}, nil
}
