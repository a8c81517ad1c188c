// Package display shows the live camera view with the recognized words boxed.
package display

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"gocv.io/x/gocv"

	"ocr-text-commands/src/dispatch"
)

const (
	windowTitle = "Display"
	quitKey     = 'q'
	fontScale   = 2
	thickness   = 2
)

// markColor is blue; gocv hands colors to OpenCV in BGR order itself.
var markColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}

// Window is a highgui window implementing dispatch.Viewer.
type Window struct {
	window *gocv.Window
}

var _ dispatch.Viewer = (*Window)(nil)

func New() *Window {
	return &Window{window: gocv.NewWindow(windowTitle)}
}

// Show draws marks onto a copy of frame, displays it and polls the keyboard
// for one millisecond. It reports true when the quit key was pressed.
func (w *Window) Show(frame image.Image, marks []dispatch.Mark) bool {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		log.Printf("display: convert frame: %v", err)
		return false
	}
	defer mat.Close()

	drawMarks(&mat, marks)
	w.window.IMShow(mat)
	return w.window.WaitKey(1)&0xff == quitKey
}

func (w *Window) Close() error {
	if err := w.window.Close(); err != nil {
		return fmt.Errorf("close window: %w", err)
	}
	return nil
}

func drawMarks(mat *gocv.Mat, marks []dispatch.Mark) {
	for _, m := range marks {
		if !m.Rect.Empty() {
			gocv.Rectangle(mat, m.Rect, markColor, thickness)
		}
		if m.Label != "" {
			gocv.PutText(mat, m.Label, m.At, gocv.FontHersheyPlain, fontScale, markColor, thickness)
		}
	}
}
