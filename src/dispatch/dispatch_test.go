package dispatch

import (
	"context"
	"errors"
	"image"
	"testing"

	"ocr-text-commands/src/ocr"
)

type frameSource struct {
	reads int
	limit int
	err   error
}

func (s *frameSource) Read() (image.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.limit > 0 && s.reads >= s.limit {
		return nil, errors.New("source exhausted")
	}
	s.reads++
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

// scriptedRecognizer returns frames[i] on the i-th call and nothing after.
type scriptedRecognizer struct {
	frames [][]ocr.Detection
	errs   []error
	calls  int
}

func (r *scriptedRecognizer) Recognize(ctx context.Context, img image.Image) ([]ocr.Detection, error) {
	i := r.calls
	r.calls++
	if i < len(r.errs) && r.errs[i] != nil {
		return nil, r.errs[i]
	}
	if i < len(r.frames) {
		return r.frames[i], nil
	}
	return nil, nil
}

func (r *scriptedRecognizer) Close() error { return nil }

type recordingActions struct {
	calls   []string
	notes   []string
	snapErr error
}

func (a *recordingActions) Snap(image.Image) error {
	a.calls = append(a.calls, "snap")
	return a.snapErr
}

func (a *recordingActions) Search() error {
	a.calls = append(a.calls, "search")
	return nil
}

func (a *recordingActions) Mail() error {
	a.calls = append(a.calls, "mail")
	return nil
}

func (a *recordingActions) Notes(text string) error {
	a.calls = append(a.calls, "notes")
	a.notes = append(a.notes, text)
	return nil
}

func (a *recordingActions) User() error {
	a.calls = append(a.calls, "user")
	return nil
}

func (a *recordingActions) count(name string) int {
	n := 0
	for _, c := range a.calls {
		if c == name {
			n++
		}
	}
	return n
}

type quitAfter struct {
	shown int
	after int
	marks [][]Mark
}

func (v *quitAfter) Show(_ image.Image, marks []Mark) bool {
	v.shown++
	v.marks = append(v.marks, marks)
	return v.after > 0 && v.shown >= v.after
}

func word(text string, conf float64) ocr.Detection {
	return ocr.Detection{Box: ocr.BoxFromRect(image.Rect(60, 60, 100, 80)), Text: text, Confidence: conf}
}

func frame(dets ...ocr.Detection) []ocr.Detection { return dets }

func TestDecideBelowThresholdIsNoop(t *testing.T) {
	states := []State{{}, {Search: Cooling}, {Mail: Cooling}, {Search: Cooling, Mail: Cooling}}
	keywords := []string{"stop", "snap", "search", "mail", "notes", "spot"}
	for _, s := range states {
		for _, kw := range keywords {
			for _, conf := range []float64{0, 0.1, 0.5} {
				d, next := Decide(frame(word(kw, conf)), 0.5, s, "spot")
				if d.Action != ActionNone || next != s || d.Eligible {
					t.Errorf("Decide(%q, %.1f) in %+v = %v/%+v, want no-op", kw, conf, s, d.Action, next)
				}
			}
		}
	}
}

func TestDecideNoDetections(t *testing.T) {
	s := State{Search: Cooling}
	d, next := Decide(nil, 0.2, s, "")
	if d.Action != ActionNone || next != s {
		t.Fatalf("Expected no-op on empty frame, got %v %+v", d.Action, next)
	}
}

func TestDecideRules(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		user    string
		in      State
		want    Action
		next    State
	}{
		{"stop keeps state", "STOP", "", State{Search: Cooling}, ActionStop, State{Search: Cooling}},
		{"snap arms both", "snap", "", State{Search: Cooling, Mail: Cooling}, ActionSnap, State{}},
		{"search fires when armed", "Search", "", State{Mail: Cooling}, ActionSearch, State{Search: Cooling}},
		{"search suppressed when cooling", "search", "", State{Search: Cooling}, ActionNone, State{Search: Cooling}},
		{"mail fires when armed", "mail", "", State{Search: Cooling}, ActionMail, State{Mail: Cooling}},
		{"mail suppressed when cooling", "mail", "", State{Mail: Cooling}, ActionNone, State{Mail: Cooling}},
		{"notes arms both", "notes", "", State{Search: Cooling}, ActionNotes, State{}},
		{"user keyword", "Spot", "spot", State{Mail: Cooling}, ActionUser, State{}},
		{"user keyword case-folded", "spot", "SPOT", State{}, ActionUser, State{}},
		{"unknown keyword", "hello", "spot", State{Search: Cooling}, ActionNone, State{Search: Cooling}},
		{"empty user keyword never matches", "", "", State{}, ActionNone, State{}},
		{"builtin wins over user keyword", "snap", "snap", State{}, ActionSnap, State{}},
		{"suppressed search falls through to user", "search", "search", State{Search: Cooling}, ActionUser, State{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, next := Decide(frame(word(tt.keyword, 0.9)), 0.2, tt.in, tt.user)
			if d.Action != tt.want {
				t.Errorf("Action = %v, want %v", d.Action, tt.want)
			}
			if next != tt.next {
				t.Errorf("next state = %+v, want %+v", next, tt.next)
			}
		})
	}
}

func TestDecideOnlyTopDetectionDrives(t *testing.T) {
	d, _ := Decide(frame(word("hello", 0.9), word("stop", 0.99)), 0.2, State{}, "")
	if d.Action != ActionNone {
		t.Fatalf("Expected non-top stop to be inert, got %v", d.Action)
	}
}

func TestNotesText(t *testing.T) {
	dets := frame(word("notes", 0.9), word("alpha", 0.8), word("beta", 0.85))
	if got := NotesText(dets); got != "alpha beta " {
		t.Errorf("NotesText() = %q, want %q", got, "alpha beta ")
	}
	if got := NotesText(frame(word("ALPHA", 0.9), word("BeTa", 0.1))); got != "beta " {
		t.Errorf("Expected case-folded payload, got %q", got)
	}
	if got := NotesText(frame(word("notes", 0.9))); got != "" {
		t.Errorf("Expected empty payload, got %q", got)
	}
}

func TestRunStopTerminatesRegardlessOfState(t *testing.T) {
	for _, s := range []State{{}, {Search: Cooling}, {Mail: Cooling}} {
		rec := &scriptedRecognizer{frames: [][]ocr.Detection{frame(word("stop", 0.9))}}
		acts := &recordingActions{}
		d := New(&frameSource{}, rec, acts, Options{Threshold: 0.2})
		d.state = s

		stop, err := d.Step(context.Background())
		if err != nil || !stop {
			t.Fatalf("Step() in %+v = %v, %v; want stop", s, stop, err)
		}
		if len(acts.calls) != 0 {
			t.Errorf("Expected stop to fire nothing else, got %v", acts.calls)
		}
	}
}

func TestRunSearchDebounced(t *testing.T) {
	rec := &scriptedRecognizer{frames: [][]ocr.Detection{
		frame(word("search", 0.9)),
		frame(word("search", 0.9)),
		frame(word("stop", 0.9)),
	}}
	acts := &recordingActions{}
	d := New(&frameSource{}, rec, acts, Options{Threshold: 0.2})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := acts.count("search"); n != 1 {
		t.Fatalf("Expected search once, got %d (%v)", n, acts.calls)
	}
	if d.Fired(ActionSearch) != 1 {
		t.Errorf("Fired(search) = %d", d.Fired(ActionSearch))
	}
}

func TestRunSnapRearmsSearch(t *testing.T) {
	rec := &scriptedRecognizer{frames: [][]ocr.Detection{
		frame(word("search", 0.9)),
		frame(word("snap", 0.9)),
		frame(word("search", 0.9)),
		frame(word("stop", 0.9)),
	}}
	acts := &recordingActions{}
	d := New(&frameSource{}, rec, acts, Options{Threshold: 0.2})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"search", "snap", "search"}
	if len(acts.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", acts.calls, want)
	}
	for i := range want {
		if acts.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", acts.calls, want)
		}
	}
}

func TestRunMailAndSearchAlternate(t *testing.T) {
	rec := &scriptedRecognizer{frames: [][]ocr.Detection{
		frame(word("mail", 0.9)),
		frame(word("mail", 0.9)),
		frame(word("search", 0.9)),
		frame(word("mail", 0.9)),
		frame(word("stop", 0.9)),
	}}
	acts := &recordingActions{}
	d := New(&frameSource{}, rec, acts, Options{Threshold: 0.2})
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if acts.count("mail") != 2 || acts.count("search") != 1 {
		t.Fatalf("Unexpected calls %v", acts.calls)
	}
}

func TestRunNotesPayload(t *testing.T) {
	rec := &scriptedRecognizer{frames: [][]ocr.Detection{
		frame(word("notes", 0.9), word("alpha", 0.8), word("beta", 0.85)),
		frame(word("stop", 0.9)),
	}}
	acts := &recordingActions{}
	view := &quitAfter{}
	d := New(&frameSource{}, rec, acts, Options{Threshold: 0.2, View: view})

	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(acts.notes) != 1 || acts.notes[0] != "alpha beta " {
		t.Fatalf("notes = %q, want [\"alpha beta \"]", acts.notes)
	}
	if len(view.marks) != 1 || len(view.marks[0]) != 3 {
		t.Fatalf("Expected top + two payload marks, got %+v", view.marks)
	}
}

func TestRunUserBreakAfter(t *testing.T) {
	rec := &scriptedRecognizer{frames: [][]ocr.Detection{
		frame(word("hello", 0.9)),
		frame(word("spot", 0.9)),
		frame(word("spot", 0.9)),
	}}
	acts := &recordingActions{}
	src := &frameSource{}
	d := New(src, rec, acts, Options{Threshold: 0.2, UserKeyword: "spot", BreakAfter: true})

	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if acts.count("user") != 1 {
		t.Fatalf("Expected user action exactly once, got %v", acts.calls)
	}
	if src.reads != 2 {
		t.Fatalf("Expected loop to end on the user frame, read %d frames", src.reads)
	}
}

func TestRunUserWithoutBreakAfterContinues(t *testing.T) {
	rec := &scriptedRecognizer{frames: [][]ocr.Detection{
		frame(word("spot", 0.9)),
		frame(word("spot", 0.9)),
		frame(word("stop", 0.9)),
	}}
	acts := &recordingActions{}
	d := New(&frameSource{}, rec, acts, Options{Threshold: 0.2, UserKeyword: "spot"})
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if acts.count("user") != 2 {
		t.Fatalf("Expected user action on every frame, got %v", acts.calls)
	}
}

func TestRunSourceErrorIsFatal(t *testing.T) {
	sentinel := errors.New("camera unplugged")
	d := New(&frameSource{err: sentinel}, &scriptedRecognizer{}, &recordingActions{}, Options{})
	if err := d.Run(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("Run() error = %v, want %v", err, sentinel)
	}
}

func TestRunRecognizerErrorSkipsFrame(t *testing.T) {
	rec := &scriptedRecognizer{
		errs:   []error{errors.New("engine hiccup")},
		frames: [][]ocr.Detection{nil, frame(word("snap", 0.9)), frame(word("stop", 0.9))},
	}
	acts := &recordingActions{}
	d := New(&frameSource{}, rec, acts, Options{Threshold: 0.2})
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if acts.count("snap") != 1 {
		t.Fatalf("Expected loop to continue after recognizer error, got %v", acts.calls)
	}
}

func TestRunActionErrorDoesNotStop(t *testing.T) {
	rec := &scriptedRecognizer{frames: [][]ocr.Detection{
		frame(word("snap", 0.9)),
		frame(word("snap", 0.9)),
		frame(word("stop", 0.9)),
	}}
	acts := &recordingActions{snapErr: errors.New("disk full")}
	d := New(&frameSource{}, rec, acts, Options{Threshold: 0.2})
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if acts.count("snap") != 2 {
		t.Fatalf("Expected snap to fire on every frame, got %v", acts.calls)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &frameSource{}
	d := New(src, &scriptedRecognizer{}, &recordingActions{}, Options{})
	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if src.reads != 0 {
		t.Errorf("Expected no frame after cancellation, read %d", src.reads)
	}
}

func TestRunViewQuit(t *testing.T) {
	view := &quitAfter{after: 3}
	src := &frameSource{}
	d := New(src, &scriptedRecognizer{}, &recordingActions{}, Options{View: view})
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.reads != 3 {
		t.Fatalf("Expected 3 frames before quit, got %d", src.reads)
	}
}

func TestRunResetsStateAtStart(t *testing.T) {
	rec := &scriptedRecognizer{frames: [][]ocr.Detection{frame(word("search", 0.9)), frame(word("stop", 0.9))}}
	acts := &recordingActions{}
	d := New(&frameSource{}, rec, acts, Options{Threshold: 0.2})
	d.state = State{Search: Cooling, Mail: Cooling}
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if acts.count("search") != 1 {
		t.Fatalf("Expected search to be armed at loop start, got %v", acts.calls)
	}
}

func TestSnapMarksSavedLabel(t *testing.T) {
	view := &quitAfter{after: 1}
	rec := &scriptedRecognizer{frames: [][]ocr.Detection{frame(word("snap", 0.9))}}
	d := New(&frameSource{}, rec, &recordingActions{}, Options{Threshold: 0.2, View: view})
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	marks := view.marks[0]
	if len(marks) != 2 || marks[1].Label != snapSavedLabel || !marks[1].Rect.Empty() {
		t.Fatalf("Unexpected marks %+v", marks)
	}
	if marks[0].At != image.Pt(10, 10) {
		t.Errorf("Expected label offset from box, got %v", marks[0].At)
	}
}

func TestActionString(t *testing.T) {
	if ActionNotes.String() != "notes" || Action(42).String() != "unknown" {
		t.Error("Unexpected Action names")
	}
	if got := Action(-1).String(); got != "unknown" {
		t.Errorf("Action(-1).String() = %q, want unknown", got)
	}
	if Cooling.String() != "cooling" || Armed.String() != "armed" {
		t.Error("Unexpected Debounce names")
	}
}
