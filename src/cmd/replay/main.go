// Command replay feeds a directory of still images through the keyword
// dispatcher and prints which action each frame would trigger. No action
// is actually performed.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ocr-text-commands/src/capture"
	"ocr-text-commands/src/config"
	"ocr-text-commands/src/dispatch"
	"ocr-text-commands/src/runtimeinit"
)

type replayOptions struct {
	dir         string
	envPath     string
	threshold   float64
	userKeyword string
	breakAfter  bool
	verbose     bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &replayOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *replayOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "replay",
		Short:         "Dry-run keyword dispatch over a directory of images",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, cmd.Flags().Changed("threshold"), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory of frames, replayed in file name order")
	cmd.Flags().StringVar(&opts.envPath, "env", "", "path to .env file")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", config.DefaultThreshold, "minimum confidence of the top word")
	cmd.Flags().StringVar(&opts.userKeyword, "user-keyword", "", "extra keyword mapped to the user action")
	cmd.Flags().BoolVar(&opts.breakAfter, "break-after", false, "stop at the first user action")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func runWithOptions(ctx context.Context, opts replayOptions, thresholdSet bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions: config.LoadOptions{EnvPathOverride: opts.envPath},
		SetupLogging: func(bool) {
			if opts.verbose {
				log.SetOutput(os.Stderr)
			} else {
				log.SetOutput(io.Discard)
			}
		},
		Override: func(cfg *config.Config) {
			if thresholdSet {
				cfg.Threshold = opts.threshold
			}
			if opts.userKeyword != "" {
				cfg.UserKeyword = opts.userKeyword
			}
		},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	frames, err := capture.OpenDir(opts.dir)
	if err != nil {
		return err
	}
	return replay(ctx, frames, rt, opts.breakAfter, out)
}

func replay(ctx context.Context, frames *capture.FileSequence, rt *runtimeinit.Runtime, breakAfter bool, out io.Writer) error {
	rec := &dryRun{out: out, frames: frames}
	d := dispatch.New(frames, rt.Recognizer, rec, dispatch.Options{
		Threshold:   rt.Config.Threshold,
		UserKeyword: rt.Config.UserKeyword,
		BreakAfter:  breakAfter,
	})

	start := time.Now()
	err := d.Run(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	// stop has no handler; the session ends on the frame that carried it.
	if d.Fired(dispatch.ActionStop) > 0 {
		_ = rec.print("stop", "")
	}
	fmt.Fprintf(out, "session=%s stop=%d snap=%d search=%d mail=%d notes=%d user=%d elapsed=%s\n",
		d.ID(), d.Fired(dispatch.ActionStop), d.Fired(dispatch.ActionSnap), d.Fired(dispatch.ActionSearch),
		d.Fired(dispatch.ActionMail), d.Fired(dispatch.ActionNotes), d.Fired(dispatch.ActionUser),
		time.Since(start).Round(time.Millisecond))
	return nil
}

// dryRun prints each action instead of performing it.
type dryRun struct {
	out    io.Writer
	frames *capture.FileSequence
}

func (r *dryRun) print(action, detail string) error {
	fmt.Fprintf(r.out, "%s\t%s%s\n", filepath.Base(r.frames.Current()), action, detail)
	return nil
}

func (r *dryRun) Snap(image.Image) error { return r.print("snap", "") }
func (r *dryRun) Search() error { return r.print("search", "") }
func (r *dryRun) Mail() error { return r.print("mail", "") }
func (r *dryRun) Notes(text string) error { return r.print("notes", fmt.Sprintf(" %q", text)) }
func (r *dryRun) User() error { return r.print("user", "") }
