package display

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"ocr-text-commands/src/dispatch"
)

func TestDrawMarksBoxesInBlue(t *testing.T) {
	mat, err := gocv.ImageToMatRGB(image.NewRGBA(image.Rect(0, 0, 100, 100)))
	if err != nil {
		t.Fatal(err)
	}
	defer mat.Close()

	drawMarks(&mat, []dispatch.Mark{{Rect: image.Rect(10, 10, 60, 60), Label: "snap", At: image.Pt(5, 90)}})

	// Left edge of the box, BGR.
	px := mat.GetVecbAt(30, 10)
	if px[0] != 255 || px[1] != 0 || px[2] != 0 {
		t.Errorf("Expected blue box edge, got BGR %v", px)
	}
	inside := mat.GetVecbAt(30, 35)
	if inside[0] != 0 {
		t.Errorf("Expected box interior untouched, got BGR %v", inside)
	}
}

func TestDrawMarksLabelOnly(t *testing.T) {
	mat, err := gocv.ImageToMatRGB(image.NewRGBA(image.Rect(0, 0, 400, 200)))
	if err != nil {
		t.Fatal(err)
	}
	defer mat.Close()

	drawMarks(&mat, []dispatch.Mark{{Label: "Picture Saved Successfully!", At: image.Pt(100, 100)}})

	channels := gocv.Split(mat)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if gocv.CountNonZero(channels[0]) == 0 {
		t.Error("Expected label pixels in the blue channel")
	}
}
