package ocr

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
)

// Downscale shrinks img to maxWidth keeping the aspect ratio. It returns the
// factor that maps downscaled coordinates back onto img (1 when untouched).
func Downscale(img image.Image, maxWidth int) (image.Image, float64) {
	w := img.Bounds().Dx()
	if maxWidth <= 0 || w <= maxWidth {
		return img, 1
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos), float64(w) / float64(maxWidth)
}

// ScaleDetections multiplies every box coordinate by factor in place.
func ScaleDetections(dets []Detection, factor float64) {
	if factor == 1 {
		return
	}
	for i := range dets {
		for j, p := range dets[i].Box {
			dets[i].Box[j] = image.Pt(int(float64(p.X)*factor+0.5), int(float64(p.Y)*factor+0.5))
		}
	}
}

type maxWidthRecognizer struct {
	Recognizer
	maxWidth int
}

// WithMaxWidth downscales frames wider than maxWidth before they reach r and
// maps the returned boxes back to frame coordinates.
func WithMaxWidth(r Recognizer, maxWidth int) Recognizer {
	if maxWidth <= 0 {
		return r
	}
	return &maxWidthRecognizer{Recognizer: r, maxWidth: maxWidth}
}

func (m *maxWidthRecognizer) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	small, factor := Downscale(img, m.maxWidth)
	dets, err := m.Recognizer.Recognize(ctx, small)
	if err != nil {
		return nil, err
	}
	ScaleDetections(dets, factor)
	return dets, nil
}
