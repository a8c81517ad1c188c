// Package ocr defines the recognizer contract shared by the OCR engines and
// the wrappers that sit between an engine and the dispatch loop.
package ocr

import (
	"context"
	"image"
	"strings"
)

// Detection is one recognized text region. Box holds the corner points
// clockwise from the top-left corner.
type Detection struct {
	Box        [4]image.Point
	Text       string
	Confidence float64
}

// Keyword returns the case-folded text used for dispatch.
func (d Detection) Keyword() string {
	return strings.ToLower(d.Text)
}

// Bounds returns the axis-aligned rectangle spanned by the top-left and
// bottom-right corners.
func (d Detection) Bounds() image.Rectangle {
	return image.Rectangle{Min: d.Box[0], Max: d.Box[2]}.Canon()
}

// BoxFromRect builds the four corner points of r.
func BoxFromRect(r image.Rectangle) [4]image.Point {
	return [4]image.Point{
		r.Min,
		{X: r.Max.X, Y: r.Min.Y},
		r.Max,
		{X: r.Min.X, Y: r.Max.Y},
	}
}

// Recognizer turns a frame into an ordered list of detections. The first
// detection is treated as the most prominent one.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}

// Options are engine tuning parameters. They are handed to the engine
// unchanged; engines ignore the ones they have no equivalent for.
type Options struct {
	Language  string
	Decoder   string
	BeamWidth int
	BatchSize int
	Workers   int
}

// DefaultOptions mirrors the defaults of the EasyOCR readtext call.
func DefaultOptions() Options {
	return Options{
		Language:  "en",
		Decoder:   "greedy",
		BeamWidth: 5,
		BatchSize: 1,
		Workers:   0,
	}
}
