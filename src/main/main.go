package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ocr-text-commands/src/action"
	"ocr-text-commands/src/capture"
	"ocr-text-commands/src/clipboard"
	"ocr-text-commands/src/config"
	"ocr-text-commands/src/dispatch"
	"ocr-text-commands/src/display"
	"ocr-text-commands/src/hotkey"
	"ocr-text-commands/src/logutil"
	"ocr-text-commands/src/runtimeinit"
)

type mainOptions struct {
	envPath     string
	source      string
	threshold   float64
	region      string
	recognizer  string
	userKeyword string
	userURL     string
	breakAfter  bool
	noView      bool
	skipSimilar bool
}

func init() {
	// highgui windows must be driven from the main thread on some platforms.
	runtime.LockOSThread()
}

func main() {
	enableDPIAwareness()
	if err := runWithArgs(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"ocr-text-commands"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(cmd, args)[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-text-commands",
		Short:         "Trigger desktop actions from words shown to a camera or the screen",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), *opts, cmd.Flags())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.envPath, "env", "", "Path to .env file (highest precedence)")
	flags.StringVar(&opts.recognizer, "recognizer", "", "OCR engine: tesseract or remote")

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Frame source: camera, network or screen")
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", config.DefaultThreshold, "Minimum confidence of the top word")
	cmd.Flags().StringVar(&opts.region, "region", "", "Screen region as x,y,width,height, or 'all' for every display")
	cmd.Flags().StringVar(&opts.userKeyword, "user-keyword", "", "Extra keyword that runs the user action")
	cmd.Flags().StringVar(&opts.userURL, "user-url", "", "URL opened by the user keyword")
	cmd.Flags().BoolVar(&opts.breakAfter, "break-after", true, "Stop after the user action runs")
	cmd.Flags().BoolVar(&opts.noView, "no-view", false, "Do not open the live view window")
	cmd.Flags().BoolVar(&opts.skipSimilar, "skip-similar", false, "Reuse OCR results for near-identical frames")

	cmd.AddCommand(newRecognizeCmd(opts))
	return cmd
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Config, opts mainOptions, flags *pflag.FlagSet) error {
	if flags.Changed("source") {
		cfg.Source = opts.source
	}
	if flags.Changed("threshold") {
		cfg.Threshold = opts.threshold
	}
	if flags.Changed("region") {
		if strings.EqualFold(strings.TrimSpace(opts.region), "all") {
			cfg.AllDisplays = true
			cfg.Region = config.Region{}
		} else {
			region, err := parseRegion(opts.region)
			if err != nil {
				return err
			}
			cfg.Region = region
			cfg.AllDisplays = false
		}
	}
	if flags.Changed("recognizer") {
		cfg.Recognizer = opts.recognizer
	}
	if flags.Changed("user-keyword") {
		cfg.UserKeyword = opts.userKeyword
	}
	if flags.Changed("user-url") {
		cfg.UserURL = opts.userURL
	}
	if flags.Changed("break-after") {
		cfg.BreakAfter = opts.breakAfter
	}
	if flags.Changed("no-view") {
		cfg.LiveView = !opts.noView
	}
	if flags.Changed("skip-similar") {
		cfg.SkipSimilarFrames = opts.skipSimilar
	}
	return nil
}

func parseRegion(value string) (config.Region, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return config.Region{}, fmt.Errorf("region must be x,y,width,height, got %q", value)
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return config.Region{}, fmt.Errorf("region must be x,y,width,height, got %q", value)
		}
		n[i] = v
	}
	return config.Region{X: n[0], Y: n[1], Width: n[2], Height: n[3]}, nil
}

func runSession(ctx context.Context, opts mainOptions, flags *pflag.FlagSet) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var flagErr error
	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions:  config.LoadOptions{EnvPathOverride: opts.envPath},
		SetupLogging: logutil.Setup,
		Override: func(cfg *config.Config) {
			flagErr = applyFlags(cfg, opts, flags)
		},
	})
	if flagErr != nil {
		if rt != nil {
			rt.Close()
		}
		return flagErr
	}
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.Config
	log.Printf("OCR text commands initialized: %s", runtimeinit.Describe(cfg))

	actionOpts, err := actionOptions(cfg)
	if err != nil {
		return err
	}
	handlers := action.New(actionOpts)

	source, err := capture.New(runtimeinit.CaptureConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open frame source: %w", err)
	}
	defer source.Close()
	log.Printf("Reading frames from %s", source)

	var view dispatch.Viewer
	if cfg.LiveView {
		window := display.New()
		defer window.Close()
		view = window
	}

	if cfg.AbortHotkey != "" {
		if err := hotkey.Listen(ctx, cfg.AbortHotkey, cancel); err != nil {
			log.Printf("Abort hotkey disabled: %v", err)
		}
	}

	d := dispatch.New(source, rt.Recognizer, handlers, dispatch.Options{
		Threshold:   cfg.Threshold,
		UserKeyword: cfg.UserKeyword,
		BreakAfter:  cfg.BreakAfter,
		View:        view,
	})
	err = d.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Printf("Session %s aborted", d.ID())
		return nil
	}
	return err
}

// actionOptions wires configuration into the action handlers. A user
// keyword needs a user URL, otherwise the keyword could only fail.
func actionOptions(cfg *config.Config) (action.Options, error) {
	if cfg.UserKeyword != "" && cfg.UserURL == "" {
		return action.Options{}, fmt.Errorf("user keyword %q has no user URL to open", cfg.UserKeyword)
	}
	opts := action.Options{
		SnapshotPath: cfg.SnapshotPath,
		NotesPath:    cfg.NotesPath,
		SearchURL:    cfg.SearchURL,
		MailURL:      cfg.MailURL,
	}
	if cfg.UserURL != "" {
		opts.UserAction = action.OpenURL(cfg.UserURL)
	}
	if cfg.NotesToClipboard {
		opts.Clipboard = clipboard.Write
	}
	return opts, nil
}

// normalizeLegacyArgs maps single-dash long flags (-source, -threshold=0.5)
// onto the double-dash form cobra expects.
func normalizeLegacyArgs(cmd *cobra.Command, args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if len(arg) < 3 || arg[0] != '-' || arg[1] == '-' {
			continue
		}
		name, _, _ := strings.Cut(arg[1:], "=")
		if isLongFlag(cmd, name) {
			normalized[i] = "-" + arg
		}
	}
	return normalized
}

func isLongFlag(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Lookup(name) != nil || cmd.PersistentFlags().Lookup(name) != nil {
		return true
	}
	for _, sub := range cmd.Commands() {
		if sub.Flags().Lookup(name) != nil {
			return true
		}
	}
	return false
}
