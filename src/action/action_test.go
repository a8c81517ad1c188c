package action

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"ocr-text-commands/src/dispatch"
)

func TestSnapWritesImage(t *testing.T) {
	for _, name := range []string{"snapshot.jpg", "snapshot.png"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			h := New(Options{SnapshotPath: path})

			frame := imaging.New(40, 20, color.NRGBA{R: 200, A: 255})
			if err := h.Snap(frame); err != nil {
				t.Fatalf("Snap() error = %v", err)
			}

			img, err := imaging.Open(path)
			if err != nil {
				t.Fatalf("Failed to reopen snapshot: %v", err)
			}
			if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
				t.Errorf("Unexpected snapshot size %v", img.Bounds())
			}
		})
	}
}

func TestSnapOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.png")
	h := New(Options{SnapshotPath: path})

	if err := h.Snap(image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatal(err)
	}
	if err := h.Snap(image.NewRGBA(image.Rect(0, 0, 5, 5))); err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 5 {
		t.Errorf("Expected the second snapshot to replace the first, got %v", img.Bounds())
	}
}

func TestSnapUnsupportedExtension(t *testing.T) {
	h := New(Options{SnapshotPath: filepath.Join(t.TempDir(), "snapshot.xyz")})
	if err := h.Snap(image.NewRGBA(image.Rect(0, 0, 2, 2))); err == nil {
		t.Fatal("Expected error for unknown image format")
	}
}

func TestNotesTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("a much longer previous note"), 0644); err != nil {
		t.Fatal(err)
	}

	var copied string
	h := New(Options{NotesPath: path, Clipboard: func(s string) error {
		copied = s
		return nil
	}})
	if err := h.Notes("buy milk "); err != nil {
		t.Fatalf("Notes() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "buy milk " {
		t.Errorf("Notes file = %q, want %q", data, "buy milk ")
	}
	if copied != "buy milk " {
		t.Errorf("Clipboard got %q", copied)
	}
}

func TestNotesEmptyText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	h := New(Options{NotesPath: path})
	if err := h.Notes(""); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty notes file, got %d bytes", info.Size())
	}
}

func TestSearchAndMailOpenConfiguredURLs(t *testing.T) {
	var opened []string
	h := New(Options{
		SearchURL: "https://www.google.com",
		MailURL:   "https://www.google.com/mail",
		Open: func(url string) error {
			opened = append(opened, url)
			return nil
		},
	})

	if err := h.Search(); err != nil {
		t.Fatal(err)
	}
	if err := h.Mail(); err != nil {
		t.Fatal(err)
	}
	if len(opened) != 2 || opened[0] != "https://www.google.com" || opened[1] != "https://www.google.com/mail" {
		t.Errorf("Unexpected opened URLs: %v", opened)
	}
}

func TestOpenErrors(t *testing.T) {
	boom := errors.New("no browser")
	h := New(Options{SearchURL: "https://example.com", Open: func(string) error { return boom }})
	if err := h.Search(); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped opener error, got %v", err)
	}
	if err := h.Mail(); err == nil {
		t.Error("Expected error when mail URL is empty")
	}
}

func TestUser(t *testing.T) {
	h := New(Options{})
	if err := h.User(); !errors.Is(err, dispatch.ErrNoUserAction) {
		t.Errorf("Expected ErrNoUserAction, got %v", err)
	}

	calls := 0
	h = New(Options{UserAction: func() error {
		calls++
		return nil
	}})
	if err := h.User(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("Expected one callback invocation, got %d", calls)
	}
}
