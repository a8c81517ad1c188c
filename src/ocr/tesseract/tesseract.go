// Package tesseract implements ocr.Recognizer on top of the gosseract client.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"ocr-text-commands/src/ocr"
)

// Engine recognizes words with Tesseract. One client is reused for the whole
// session; the dispatch loop never calls Recognize concurrently, the mutex
// only guards against misuse.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	opts   ocr.Options
}

// New creates an engine for opts.Language. Decoder, BeamWidth, BatchSize and
// Workers have no Tesseract equivalent and are kept only for logging.
func New(opts ocr.Options) (*Engine, error) {
	c := gosseract.NewClient()
	if err := c.SetLanguage(LanguageCode(opts.Language)); err != nil {
		c.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		c.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	log.Printf("tesseract: language=%s decoder=%s beam_width=%d batch_size=%d workers=%d (decoder tuning unused)",
		LanguageCode(opts.Language), opts.Decoder, opts.BeamWidth, opts.BatchSize, opts.Workers)
	return &Engine{client: c, opts: opts}, nil
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize returns one detection per word in Tesseract reading order.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}
	return toDetections(boxes, img.Bounds().Min), nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// toDetections drops empty words, normalizes confidence to 0-1 and shifts
// boxes into the frame's coordinate space.
func toDetections(boxes []gosseract.BoundingBox, origin image.Point) []ocr.Detection {
	dets := make([]ocr.Detection, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		dets = append(dets, ocr.Detection{
			Box:        ocr.BoxFromRect(b.Box.Add(origin)),
			Text:       word,
			Confidence: clamp01(b.Confidence / 100.0),
		})
	}
	return dets
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

var languageCodes = map[string]string{
	"en":     "eng",
	"fr":     "fra",
	"de":     "deu",
	"es":     "spa",
	"it":     "ita",
	"pt":     "por",
	"ru":     "rus",
	"ja":     "jpn",
	"ko":     "kor",
	"ch_sim": "chi_sim",
	"ch_tra": "chi_tra",
}

// LanguageCode maps two-letter language codes onto Tesseract traineddata
// names. Anything else is passed through.
func LanguageCode(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "eng"
	}
	if code, ok := languageCodes[lang]; ok {
		return code
	}
	return lang
}
