package dispatch

import (
	"strings"

	"ocr-text-commands/src/ocr"
)

// Debounce is the state of one repeatable action.
type Debounce int

const (
	// Armed actions fire on their next keyword.
	Armed Debounce = iota
	// Cooling actions are suppressed until another action fires.
	Cooling
)

func (d Debounce) String() string {
	if d == Cooling {
		return "cooling"
	}
	return "armed"
}

// State is owned by one dispatch loop. The zero value has both actions armed.
type State struct {
	Search Debounce
	Mail   Debounce
}

type Action int

const (
	ActionNone Action = iota
	ActionStop
	ActionSnap
	ActionSearch
	ActionMail
	ActionNotes
	ActionUser
)

var actionNames = [...]string{"none", "stop", "snap", "search", "mail", "notes", "user"}

func (a Action) String() string {
	if a >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// Decision is the outcome of inspecting one frame's detections.
type Decision struct {
	Action Action
	// Keyword is the case-folded text of the top detection. Empty unless
	// Eligible.
	Keyword string
	// Top is the first detection; valid only when Eligible.
	Top ocr.Detection
	// Eligible is set when the top detection cleared the threshold.
	Eligible bool
}

type rule struct {
	action Action
	match  func(keyword, userKeyword string, s State) bool
	next   func(State) State
}

func keep(s State) State { return s }
func armBoth(State) State { return State{} }
func coolSearch(State) State { return State{Search: Cooling, Mail: Armed} }
func coolMail(State) State { return State{Search: Armed, Mail: Cooling} }

func is(word string) func(string, string, State) bool {
	return func(keyword, _ string, _ State) bool { return keyword == word }
}

// rules are evaluated top to bottom; the first match wins. A suppressed
// search or mail falls through to the remaining rules.
var rules = []rule{
	{ActionStop, is("stop"), keep},
	{ActionSnap, is("snap"), armBoth},
	{ActionSearch, func(k, _ string, s State) bool { return k == "search" && s.Search == Armed }, coolSearch},
	{ActionMail, func(k, _ string, s State) bool { return k == "mail" && s.Mail == Armed }, coolMail},
	{ActionNotes, is("notes"), armBoth},
	{ActionUser, func(k, user string, _ State) bool { return user != "" && k == user }, armBoth},
}

// Decide maps the top detection onto an action and returns the state the
// loop should carry into the next frame. Only dets[0] drives the decision.
// A top confidence at or below threshold is a no-op.
func Decide(dets []ocr.Detection, threshold float64, s State, userKeyword string) (Decision, State) {
	if len(dets) == 0 || dets[0].Confidence <= threshold {
		return Decision{Action: ActionNone}, s
	}

	d := Decision{Action: ActionNone, Keyword: dets[0].Keyword(), Top: dets[0], Eligible: true}
	userKeyword = strings.ToLower(userKeyword)
	for _, r := range rules {
		if r.match(d.Keyword, userKeyword, s) {
			d.Action = r.action
			return d, r.next(s)
		}
	}
	return d, s
}

// NotesText joins every detection after the top one, case-folded, each
// followed by a single space.
func NotesText(dets []ocr.Detection) string {
	if len(dets) < 2 {
		return ""
	}
	var b strings.Builder
	for _, d := range dets[1:] {
		b.WriteString(strings.ToLower(d.Text))
		b.WriteByte(' ')
	}
	return b.String()
}
