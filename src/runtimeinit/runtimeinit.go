package runtimeinit

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ocr-text-commands/src/capture"
	"ocr-text-commands/src/config"
	"ocr-text-commands/src/logutil"
	"ocr-text-commands/src/ocr"
	"ocr-text-commands/src/ocr/remote"
	"ocr-text-commands/src/ocr/tesseract"
	"ocr-text-commands/src/screenshot"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// Override is applied after loading and before validation, so command
	// line flags take precedence over the environment.
	Override func(*config.Config)
}

// Runtime is everything a dispatch session needs that depends on
// configuration alone.
type Runtime struct {
	Config     *config.Config
	Recognizer ocr.Recognizer
}

func (r *Runtime) Close() error {
	if r.Recognizer == nil {
		return nil
	}
	return r.Recognizer.Close()
}

func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.Override != nil {
		opts.Override(cfg)
	}
	cfg.Source = config.NormalizeSource(cfg.Source)

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	recognizer, err := NewRecognizer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Runtime{Config: cfg, Recognizer: recognizer}, nil
}

// NewRecognizer builds the configured engine and wraps it, innermost first,
// with downscaling, the per-frame deadline and the similar-frame cache.
func NewRecognizer(ctx context.Context, cfg *config.Config) (ocr.Recognizer, error) {
	opts := cfg.OCROptions()

	var (
		base ocr.Recognizer
		name string
	)
	switch cfg.Recognizer {
	case config.RecognizerRemote:
		client, err := remote.New(remote.Config{
			URL:     cfg.RecognizerURL,
			APIKey:  cfg.RecognizerAPIKey,
			Options: opts,
			Timeout: cfg.RecognizeTimeout,
		})
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("startup check failed: %w", err)
		}
		key := "none"
		if cfg.RecognizerAPIKey != "" {
			key = logutil.RedactKey(cfg.RecognizerAPIKey)
		}
		log.Printf("Recognizer ping succeeded (%s, key %s)", cfg.RecognizerURL, key)
		base, name = client, client.Name()
	case config.RecognizerTesseract:
		engine, err := tesseract.New(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to start tesseract: %w", err)
		}
		base, name = engine, engine.Name()
	default:
		return nil, fmt.Errorf("unknown recognizer %q", cfg.Recognizer)
	}

	r := ocr.WithMaxWidth(base, cfg.MaxOCRWidth)
	r = ocr.WithDeadline(r, cfg.RecognizeTimeout)
	if cfg.SkipSimilarFrames {
		r = ocr.NewSimilarFrameCache(r, cfg.MaxHashDistance)
	}
	log.Printf("OCR engine %s ready (max width %d, timeout %s, skip similar frames %t)",
		name, cfg.MaxOCRWidth, cfg.RecognizeTimeout, cfg.SkipSimilarFrames)
	return r, nil
}

// CaptureConfig maps configuration onto the capture layer.
func CaptureConfig(cfg *config.Config) capture.Config {
	return capture.Config{
		Kind:    cfg.Source,
		Device:  cfg.CameraDevice,
		User:    cfg.IPUser,
		Pass:    cfg.IPPass,
		Address: cfg.IPAddress,
		Region: screenshot.Region{
			X:      cfg.Region.X,
			Y:      cfg.Region.Y,
			Width:  cfg.Region.Width,
			Height: cfg.Region.Height,
		},
		AllDisplays: cfg.AllDisplays,
	}
}

// Describe summarizes cfg for the startup log line. Secrets are redacted.
func Describe(cfg *config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "source=%s recognizer=%s threshold=%.2f", cfg.Source, cfg.Recognizer, cfg.Threshold)
	if cfg.Source == config.SourceNetwork {
		fmt.Fprintf(&b, " stream=%s", capture.RedactURL(capture.RTSPURL(cfg.IPUser, cfg.IPPass, cfg.IPAddress)))
	}
	if cfg.UserKeyword != "" {
		fmt.Fprintf(&b, " user_keyword=%q break_after=%t", cfg.UserKeyword, cfg.BreakAfter)
	}
	if cfg.SkipSimilarFrames {
		fmt.Fprintf(&b, " skip_similar=%d", cfg.MaxHashDistance)
	}
	return b.String()
}
