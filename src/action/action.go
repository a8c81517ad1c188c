// Package action holds the side effects fired by recognized keywords.
package action

import (
	"fmt"
	"image"
	"log"
	"os"

	"github.com/disintegration/imaging"

	"ocr-text-commands/src/dispatch"
)

type Options struct {
	SnapshotPath string
	NotesPath    string
	SearchURL    string
	MailURL      string
	// UserAction runs on the user keyword. Nil means none is configured.
	UserAction func() error
	// Open launches a URL. Defaults to OpenBrowser.
	Open func(url string) error
	// Clipboard, when set, receives a copy of every notes write.
	Clipboard func(text string) error
}

// Handlers implements dispatch.Actions.
type Handlers struct {
	opts Options
}

var _ dispatch.Actions = (*Handlers)(nil)

func New(opts Options) *Handlers {
	if opts.Open == nil {
		opts.Open = OpenBrowser
	}
	return &Handlers{opts: opts}
}

// Snap writes the frame to the snapshot path. The image format follows the
// file extension.
func (h *Handlers) Snap(frame image.Image) error {
	if err := imaging.Save(frame, h.opts.SnapshotPath); err != nil {
		return fmt.Errorf("save snapshot %s: %w", h.opts.SnapshotPath, err)
	}
	log.Printf("Snapshot saved to %s", h.opts.SnapshotPath)
	return nil
}

func (h *Handlers) Search() error {
	return h.open(h.opts.SearchURL)
}

func (h *Handlers) Mail() error {
	return h.open(h.opts.MailURL)
}

// Notes replaces the notes file contents with text.
func (h *Handlers) Notes(text string) error {
	if err := os.WriteFile(h.opts.NotesPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("write notes %s: %w", h.opts.NotesPath, err)
	}
	log.Printf("Notes written to %s (%d chars)", h.opts.NotesPath, len(text))
	if h.opts.Clipboard != nil {
		if err := h.opts.Clipboard(text); err != nil {
			return fmt.Errorf("copy notes to clipboard: %w", err)
		}
	}
	return nil
}

func (h *Handlers) User() error {
	if h.opts.UserAction == nil {
		return dispatch.ErrNoUserAction
	}
	return h.opts.UserAction()
}

func (h *Handlers) open(url string) error {
	if url == "" {
		return fmt.Errorf("no URL configured")
	}
	if err := h.opts.Open(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// OpenURL returns a user action that opens url in the default browser.
func OpenURL(url string) func() error {
	return func() error {
		return OpenBrowser(url)
	}
}
