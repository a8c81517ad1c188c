package ocr

import (
	"context"
	"image"
	"log"

	"github.com/corona10/goimagehash"
)

// SimilarFrameCache skips the engine when a frame is perceptually close to
// the last recognized one and returns the previous detections instead.
// The dispatcher still sees detections for every frame.
type SimilarFrameCache struct {
	next        Recognizer
	maxDistance int

	lastHash *goimagehash.ImageHash
	lastDets []Detection
	hits     int
}

func NewSimilarFrameCache(next Recognizer, maxDistance int) *SimilarFrameCache {
	return &SimilarFrameCache{next: next, maxDistance: maxDistance}
}

func (c *SimilarFrameCache) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		log.Printf("ocr cache: hash failed, recognizing: %v", err)
		return c.next.Recognize(ctx, img)
	}

	if c.lastHash != nil {
		if dist, err := c.lastHash.Distance(hash); err == nil && dist <= c.maxDistance {
			c.hits++
			return c.lastDets, nil
		}
	}

	dets, err := c.next.Recognize(ctx, img)
	if err != nil {
		c.lastHash = nil
		c.lastDets = nil
		return nil, err
	}
	c.lastHash = hash
	c.lastDets = dets
	return dets, nil
}

// Hits returns how many frames were answered from the cache.
func (c *SimilarFrameCache) Hits() int { return c.hits }

func (c *SimilarFrameCache) Close() error {
	return c.next.Close()
}
