package ocr

import (
	"context"
	"image"
	"time"
)

type deadlineRecognizer struct {
	Recognizer
	timeout time.Duration
}

// WithDeadline bounds every Recognize call by timeout. A zero timeout returns
// r unchanged. When the deadline passes the engine call keeps running in the
// background and its result is dropped.
func WithDeadline(r Recognizer, timeout time.Duration) Recognizer {
	if timeout <= 0 {
		return r
	}
	return &deadlineRecognizer{Recognizer: r, timeout: timeout}
}

func (d *deadlineRecognizer) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resCh := make(chan struct {
		dets []Detection
		err  error
	}, 1)
	go func() {
		dets, err := d.Recognizer.Recognize(ctx, img)
		resCh <- struct {
			dets []Detection
			err  error
		}{dets, err}
	}()

	select {
	case r := <-resCh:
		return r.dets, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
