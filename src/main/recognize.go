package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"ocr-text-commands/src/config"
	"ocr-text-commands/src/dispatch"
	"ocr-text-commands/src/ocr"
	"ocr-text-commands/src/runtimeinit"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type recognizeOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
}

func newRecognizeCmd(root *mainOptions) *cobra.Command {
	opts := &recognizeOptions{}
	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Run OCR once on an image file and show the keyword it would dispatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecognize(cmd.Context(), *root, *opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG or JPEG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type RecognizeResult struct {
	Source     string           `json:"source"`
	Timestamp  string           `json:"timestamp"`
	Duration   float64          `json:"duration_seconds"`
	Action     string           `json:"action"`
	Keyword    string           `json:"keyword,omitempty"`
	Detections []DetectionEntry `json:"detections"`
}

type DetectionEntry struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Box        [4][2]int `json:"box"`
}

func runRecognize(ctx context.Context, root mainOptions, opts recognizeOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	setupLogging := func(bool) { log.SetOutput(io.Discard) }
	if opts.verbose {
		setupLogging = func(bool) { log.SetOutput(os.Stderr) }
	}

	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions:  config.LoadOptions{EnvPathOverride: root.envPath},
		SetupLogging: setupLogging,
		Override: func(cfg *config.Config) {
			if root.recognizer != "" {
				cfg.Recognizer = root.recognizer
			}
		},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	img, err := loadImage(opts.filePath)
	if err != nil {
		return err
	}

	start := time.Now()
	dets, err := rt.Recognizer.Recognize(ctx, img)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("OCR failed: %w", err)
	}
	log.Printf("OCR completed in %v, %d detections", elapsed, len(dets))

	decision, _ := dispatch.Decide(dets, rt.Config.Threshold, dispatch.State{}, rt.Config.UserKeyword)
	return outputResult(out, buildResult(opts.filePath, elapsed, decision, dets), opts.jsonOutput)
}

func loadImage(filePath string) (image.Image, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("input is not a supported image: %w", err)
	}
	return img, nil
}

func buildResult(source string, elapsed time.Duration, decision dispatch.Decision, dets []ocr.Detection) RecognizeResult {
	result := RecognizeResult{
		Source:     source,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Duration:   elapsed.Seconds(),
		Action:     decision.Action.String(),
		Keyword:    decision.Keyword,
		Detections: make([]DetectionEntry, 0, len(dets)),
	}
	for _, d := range dets {
		entry := DetectionEntry{Text: d.Text, Confidence: d.Confidence}
		for i, p := range d.Box {
			entry.Box[i] = [2]int{p.X, p.Y}
		}
		result.Detections = append(result.Detections, entry)
	}
	return result
}

func outputResult(out io.Writer, result RecognizeResult, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}

	for _, d := range result.Detections {
		fmt.Fprintf(out, "%.2f\t%s\n", d.Confidence, d.Text)
	}
	fmt.Fprintf(out, "action: %s\n", result.Action)
	return nil
}
