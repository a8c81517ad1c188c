package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ocr-text-commands/src/ocr"
)

const (
	EnvPathEnvVar = "OCR_TEXT_COMMANDS_ENV"

	SourceCamera  = "camera"
	SourceNetwork = "network"
	SourceScreen  = "screen"

	RecognizerTesseract = "tesseract"
	RecognizerRemote    = "remote"

	DefaultThreshold    = 0.2
	DefaultSnapshotPath = "snapshot.jpg"
	DefaultNotesPath    = "notes.txt"
	DefaultSearchURL    = "https://www.google.com"
	DefaultMailURL      = "https://www.google.com/mail"
	DefaultAbortHotkey  = "Ctrl+Alt+Q"
	DefaultMaxHashDist  = 4
)

type LoadOptions struct {
	EnvPathOverride string
	SourceOverride  string
}

// Region is the screen area grabbed by the screen source. The zero Region
// means the whole primary display.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

type Config struct {
	Source       string
	CameraDevice int
	IPUser       string
	IPPass       string
	IPAddress    string
	Region       Region

	// AllDisplays grabs the union of every active display instead of Region.
	AllDisplays bool

	Threshold float64

	Recognizer       string
	RecognizerURL    string
	RecognizerAPIKey string
	RecognizeTimeout time.Duration
	Language         string
	Decoder          string
	BeamWidth        int
	BatchSize        int
	Workers          int
	MaxOCRWidth      int

	SkipSimilarFrames bool
	MaxHashDistance   int

	UserKeyword string
	UserURL     string
	BreakAfter  bool

	SnapshotPath     string
	NotesPath        string
	SearchURL        string
	MailURL          string
	NotesToClipboard bool

	LiveView          bool
	AbortHotkey       string
	EnableFileLogging bool
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	tuning := ocr.DefaultOptions()
	return &Config{
		Source:          SourceCamera,
		Threshold:       DefaultThreshold,
		Recognizer:      RecognizerTesseract,
		Language:        tuning.Language,
		Decoder:         tuning.Decoder,
		BeamWidth:       tuning.BeamWidth,
		BatchSize:       tuning.BatchSize,
		Workers:         tuning.Workers,
		MaxHashDistance: DefaultMaxHashDist,
		BreakAfter:      true,
		SnapshotPath:    DefaultSnapshotPath,
		NotesPath:       DefaultNotesPath,
		SearchURL:       DefaultSearchURL,
		MailURL:         DefaultMailURL,
		LiveView:        true,
		AbortHotkey:     DefaultAbortHotkey,
	}
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions reads configuration from sources in priority order:
// 1) the override path, 2) .env next to the executable, 3) the file named by
// OCR_TEXT_COMMANDS_ENV. Process environment variables always win over the file.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	if envPath := resolveEnvPath(opts); envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", envPath, err)
		}
	}

	cfg := Default()
	var err error

	cfg.Source = NormalizeSource(getEnvWithDefault("SOURCE", cfg.Source))
	if override := strings.TrimSpace(opts.SourceOverride); override != "" {
		cfg.Source = NormalizeSource(override)
	}
	cfg.IPUser = os.Getenv("IP_USER")
	cfg.IPPass = os.Getenv("IP_PASS")
	cfg.IPAddress = os.Getenv("IP_ADDRESS")
	cfg.Recognizer = strings.ToLower(getEnvWithDefault("RECOGNIZER", cfg.Recognizer))
	cfg.RecognizerURL = os.Getenv("RECOGNIZER_URL")
	cfg.RecognizerAPIKey = os.Getenv("RECOGNIZER_API_KEY")
	cfg.Language = getEnvWithDefault("LANGUAGE", cfg.Language)
	cfg.Decoder = getEnvWithDefault("DECODER", cfg.Decoder)
	cfg.UserKeyword = strings.ToLower(strings.TrimSpace(os.Getenv("USER_KEYWORD")))
	cfg.UserURL = os.Getenv("USER_URL")
	cfg.SnapshotPath = getEnvWithDefault("SNAPSHOT_PATH", cfg.SnapshotPath)
	cfg.NotesPath = getEnvWithDefault("NOTES_PATH", cfg.NotesPath)
	cfg.SearchURL = getEnvWithDefault("SEARCH_URL", cfg.SearchURL)
	cfg.MailURL = getEnvWithDefault("MAIL_URL", cfg.MailURL)
	cfg.AbortHotkey = getEnvWithDefault("ABORT_HOTKEY", cfg.AbortHotkey)
	cfg.EnableFileLogging = getBool("ENABLE_FILE_LOGGING", false)
	cfg.NotesToClipboard = getBool("NOTES_TO_CLIPBOARD", false)
	cfg.SkipSimilarFrames = getBool("SKIP_SIMILAR_FRAMES", false)
	cfg.LiveView = getBool("LIVE_VIEW", cfg.LiveView)
	cfg.BreakAfter = getBool("BREAK_AFTER", cfg.BreakAfter)
	cfg.AllDisplays = getBool("ALL_DISPLAYS", false)

	ints := []struct {
		key string
		dst *int
	}{
		{"CAMERA_DEVICE", &cfg.CameraDevice},
		{"REGION_X", &cfg.Region.X},
		{"REGION_Y", &cfg.Region.Y},
		{"REGION_WIDTH", &cfg.Region.Width},
		{"REGION_HEIGHT", &cfg.Region.Height},
		{"BEAM_WIDTH", &cfg.BeamWidth},
		{"BATCH_SIZE", &cfg.BatchSize},
		{"WORKERS", &cfg.Workers},
		{"MAX_OCR_WIDTH", &cfg.MaxOCRWidth},
		{"MAX_HASH_DISTANCE", &cfg.MaxHashDistance},
	}
	for _, e := range ints {
		if *e.dst, err = getInt(e.key, *e.dst); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("THRESHOLD"); v != "" {
		cfg.Threshold, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("THRESHOLD: %w", err)
		}
	}

	timeoutSec, err := getInt("RECOGNIZE_TIMEOUT_SEC", 0)
	if err != nil {
		return nil, err
	}
	cfg.RecognizeTimeout = time.Duration(timeoutSec) * time.Second

	return cfg, nil
}

// Validate reports configuration that can never produce a working session.
// Unknown source kinds are left to the capture layer, which fails when the
// first frame is requested.
func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", c.Threshold)
	}
	if c.Region != (Region{}) && (c.Region.Width <= 0 || c.Region.Height <= 0) {
		return fmt.Errorf("invalid region dimensions: width=%d, height=%d", c.Region.Width, c.Region.Height)
	}
	if c.AllDisplays && c.Region != (Region{}) {
		return fmt.Errorf("a region cannot be combined with capturing all displays")
	}
	if c.BeamWidth < 0 || c.BatchSize < 0 || c.Workers < 0 {
		return fmt.Errorf("recognizer tuning values must not be negative")
	}
	if c.Source == SourceNetwork && c.IPAddress == "" {
		return fmt.Errorf("IP_ADDRESS is required for the network source")
	}
	switch c.Recognizer {
	case RecognizerTesseract:
	case RecognizerRemote:
		if c.RecognizerURL == "" {
			return fmt.Errorf("RECOGNIZER_URL is required for the remote recognizer")
		}
	default:
		return fmt.Errorf("unknown recognizer %q", c.Recognizer)
	}
	if c.UserURL != "" && c.UserKeyword == "" {
		return fmt.Errorf("USER_URL is set but USER_KEYWORD is empty")
	}
	return nil
}

// OCROptions returns the engine tuning parameters.
func (c *Config) OCROptions() ocr.Options {
	return ocr.Options{
		Language:  c.Language,
		Decoder:   c.Decoder,
		BeamWidth: c.BeamWidth,
		BatchSize: c.BatchSize,
		Workers:   c.Workers,
	}
}

// NormalizeSource maps the accepted source spellings onto the canonical kinds.
// Unrecognized values are returned lowercased and untouched.
func NormalizeSource(value string) string {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "web", "webcam", SourceCamera:
		return SourceCamera
	case "ip", "rtsp", SourceNetwork:
		return SourceNetwork
	case SourceScreen:
		return SourceScreen
	default:
		return v
	}
}

func resolveEnvPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.EnvPathOverride); override != "" {
		return override
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
