// Package dispatch runs the poll-recognize-dispatch loop: it pulls a frame,
// hands it to the recognizer and fires at most one action per frame based on
// the top detection.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/google/uuid"

	"ocr-text-commands/src/logutil"
	"ocr-text-commands/src/ocr"
)

// ErrNoUserAction is returned by action handlers when a user keyword is
// configured without a callback.
var ErrNoUserAction = errors.New("no user action configured")

// Source yields one frame per call. Errors are fatal to the loop.
type Source interface {
	Read() (image.Image, error)
}

// Actions are the side effects the dispatcher can trigger.
type Actions interface {
	Snap(frame image.Image) error
	Search() error
	Mail() error
	Notes(text string) error
	User() error
}

// Mark is an overlay annotation for the live view. An empty Rect draws only
// the label.
type Mark struct {
	Rect  image.Rectangle
	Label string
	At    image.Point
}

// Viewer renders the current frame. Show returns true when the user asked to
// quit.
type Viewer interface {
	Show(frame image.Image, marks []Mark) bool
}

const snapSavedLabel = "Picture Saved Successfully!"

type Options struct {
	Threshold   float64
	UserKeyword string
	// BreakAfter ends the loop once the user action has run.
	BreakAfter bool
	// View is optional.
	View Viewer
}

type Dispatcher struct {
	source     Source
	recognizer ocr.Recognizer
	actions    Actions
	opts       Options

	id     string
	state  State
	frames int
	fired  map[Action]int
}

func New(source Source, recognizer ocr.Recognizer, actions Actions, opts Options) *Dispatcher {
	return &Dispatcher{
		source:     source,
		recognizer: recognizer,
		actions:    actions,
		opts:       opts,
		id:         uuid.NewString(),
		fired:      make(map[Action]int),
	}
}

// ID identifies the session in log lines.
func (d *Dispatcher) ID() string { return d.id }

// State returns the debounce state carried into the next frame.
func (d *Dispatcher) State() State { return d.state }

// Fired returns how many times action has fired in this session.
func (d *Dispatcher) Fired(action Action) int { return d.fired[action] }

// Run loops until a stop keyword, a user action with BreakAfter, a quit from
// the live view or cancellation of ctx. Cancellation is checked once per
// iteration and returned as ctx.Err(). Frame source failures end the loop
// with an error.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.state = State{}
	log.Printf("dispatch[%s]: session started (threshold=%.2f, user keyword=%q)", d.id, d.opts.Threshold, d.opts.UserKeyword)
	defer func() {
		log.Printf("dispatch[%s]: session ended after %d frames", d.id, d.frames)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		stop, err := d.Step(ctx)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// Step runs exactly one iteration and reports whether the loop should end.
func (d *Dispatcher) Step(ctx context.Context) (bool, error) {
	frame, err := d.source.Read()
	if err != nil {
		return true, fmt.Errorf("acquire frame: %w", err)
	}
	d.frames++

	dets, err := d.recognizer.Recognize(ctx, frame)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return true, ctxErr
		}
		log.Printf("dispatch[%s]: recognition failed, skipping frame %d: %v", d.id, d.frames, err)
		dets = nil
	}

	decision, next := Decide(dets, d.opts.Threshold, d.state, d.opts.UserKeyword)
	d.state = next

	var marks []Mark
	if decision.Eligible {
		marks = append(marks, markFor(decision.Top))
	}
	if decision.Action != ActionNone {
		d.fired[decision.Action]++
		log.Printf("dispatch[%s]: frame %d keyword %q (%.2f) -> %s", d.id, d.frames,
			logutil.Sanitize(decision.Keyword), decision.Top.Confidence, decision.Action)
	}

	switch decision.Action {
	case ActionStop:
		return true, nil
	case ActionSnap:
		d.report(decision.Action, d.actions.Snap(frame))
		marks = append(marks, Mark{Label: snapSavedLabel, At: image.Pt(100, 100)})
	case ActionSearch:
		d.report(decision.Action, d.actions.Search())
	case ActionMail:
		d.report(decision.Action, d.actions.Mail())
	case ActionNotes:
		d.report(decision.Action, d.actions.Notes(NotesText(dets)))
		for _, det := range dets[1:] {
			marks = append(marks, markFor(det))
		}
	case ActionUser:
		d.report(decision.Action, d.actions.User())
		if d.opts.BreakAfter {
			return true, nil
		}
	}

	if d.opts.View != nil && d.opts.View.Show(frame, marks) {
		log.Printf("dispatch[%s]: quit requested from live view", d.id)
		return true, nil
	}
	return false, nil
}

// report logs action failures. They never end the loop.
func (d *Dispatcher) report(action Action, err error) {
	if err != nil {
		log.Printf("dispatch[%s]: %s action failed: %v", d.id, action, err)
	}
}

// markFor boxes a detection and places its label 50px above and left of
// the box.
func markFor(det ocr.Detection) Mark {
	r := det.Bounds()
	return Mark{Rect: r, Label: det.Text, At: r.Min.Sub(image.Pt(50, 50))}
}
