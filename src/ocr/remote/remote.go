// Package remote talks to an OCR sidecar over HTTP (for example an EasyOCR
// server) and exposes it as an ocr.Recognizer.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"ocr-text-commands/src/ocr"
)

type Config struct {
	URL     string
	APIKey  string
	Options ocr.Options
	Timeout time.Duration
}

// Request is the JSON body posted to <URL>/readtext. Tuning parameters are
// forwarded exactly as configured.
type Request struct {
	Image     string `json:"image"`
	Language  string `json:"language"`
	Decoder   string `json:"decoder"`
	BeamWidth int    `json:"beam_width"`
	BatchSize int    `json:"batch_size"`
	Workers   int    `json:"workers"`
}

type Response struct {
	Detections []WireDetection `json:"detections"`
	Error      *APIError       `json:"error,omitempty"`
}

// WireDetection mirrors one EasyOCR readtext entry: four [x, y] corners,
// the decoded text and its confidence.
type WireDetection struct {
	Box        [4][2]float64 `json:"box"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
}

type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // string or number
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("recognizer URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}, nil
}

func (c *Client) Name() string { return "remote" }

// Recognize posts the frame as PNG and returns the sidecar's detections in
// the order it reported them. Failures are returned as-is; there is no retry.
func (c *Client) Recognize(ctx context.Context, img image.Image) ([]ocr.Detection, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	request := Request{
		Image:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		Language:  c.cfg.Options.Language,
		Decoder:   c.cfg.Options.Decoder,
		BeamWidth: c.cfg.Options.BeamWidth,
		BatchSize: c.cfg.Options.BatchSize,
		Workers:   c.cfg.Options.Workers,
	}

	response, err := c.makeAPIRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	dets := make([]ocr.Detection, 0, len(response.Detections))
	origin := img.Bounds().Min
	for _, w := range response.Detections {
		var box [4]image.Point
		for i, p := range w.Box {
			box[i] = image.Pt(int(p[0]+0.5)+origin.X, int(p[1]+0.5)+origin.Y)
		}
		dets = append(dets, ocr.Detection{Box: box, Text: w.Text, Confidence: w.Confidence})
	}
	return dets, nil
}

// Ping checks that the sidecar is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recognizer unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recognizer health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) makeAPIRequest(ctx context.Context, request Request) (*Response, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/readtext", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	return &response, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}
