// Package hotkey watches for the global abort key combination.
package hotkey

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Listen calls callback each time the full combo (for example "Ctrl+Alt+Q")
// is held down. The hook runs until ctx is cancelled.
func Listen(ctx context.Context, combo string, callback func()) error {
	m, err := newMatcher(combo)
	if err != nil {
		return err
	}
	log.Printf("Hotkey listener configured for: %s", combo)

	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("keyboard hook unavailable")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				gohook.End()
				return
			case ev, ok := <-evChan:
				if !ok {
					log.Printf("Hotkey event channel closed")
					return
				}
				if m.feed(ev.Kind == gohook.KeyDown, ev.Kind == gohook.KeyUp, ev.Keycode) {
					log.Printf("Hotkey %s pressed", combo)
					if callback != nil {
						callback()
					}
				}
			}
		}
	}()
	return nil
}

type keyState struct {
	name     string
	keycodes []uint16
	pressed  bool
}

// matcher tracks which keys of a combination are currently held.
type matcher struct {
	mu   sync.Mutex
	keys []keyState
}

func newMatcher(combo string) (*matcher, error) {
	m := &matcher{}
	for _, name := range parseHotkey(combo) {
		keycodes := keyNameToKeycodes(name)
		if len(keycodes) == 0 {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", combo, name)
		}
		m.keys = append(m.keys, keyState{name: name, keycodes: keycodes})
	}
	if len(m.keys) == 0 {
		return nil, fmt.Errorf("hotkey %q has no keys", combo)
	}
	return m, nil
}

// feed applies one key event and reports whether it completed the combo.
// Key state is cleared after a match so holding the keys fires once.
func (m *matcher) feed(down, up bool, keycode uint16) bool {
	if !down && !up {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.keys {
		if m.keys[i].matches(keycode) {
			m.keys[i].pressed = down
		}
	}
	if up {
		return false
	}
	for _, k := range m.keys {
		if !k.pressed {
			return false
		}
	}
	for i := range m.keys {
		m.keys[i].pressed = false
	}
	return true
}

func (k keyState) matches(keycode uint16) bool {
	for _, kc := range k.keycodes {
		if kc == keycode {
			return true
		}
	}
	return false
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(combo string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		case "control":
			keys = append(keys, "ctrl")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// aliases maps accepted spellings onto gohook key names.
var aliases = map[string]string{
	"return": "enter",
	"escape": "esc",
	"del":    "delete",
	"ins":    "insert",
	"pgup":   "pageup",
	"pgdn":   "pagedown",
	"win":    "cmd",
	"super":  "cmd",
}

var modifiers = map[string]bool{"ctrl": true, "alt": true, "shift": true, "cmd": true}

// keyNameToKeycodes maps a key name to gohook's virtual key codes, which are
// the same on every platform. Modifiers yield both the left and the right
// variant.
func keyNameToKeycodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if alias, ok := aliases[keyName]; ok {
		keyName = alias
	}

	code, ok := gohook.Keycode[keyName]
	if !ok || keyName == "" {
		log.Printf("WARNING: Unknown key name '%s', cannot map to keycode", keyName)
		return nil
	}
	codes := []uint16{code}
	if modifiers[keyName] {
		if right, ok := gohook.Keycode["r"+keyName]; ok && right != code {
			codes = append(codes, right)
		}
	}
	return codes
}
