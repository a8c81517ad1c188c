package logutil

import (
	"fmt"
	"log"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	logFileName  = "ocr_text_commands.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
	maxLogLength = 100
)

// Setup enables file logging with basic size-based rotation (10MB, max 3 files).
// When disabled, logs go to stderr.
func Setup(enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(os.Stderr)
		return
	}
	w, err := openRotating(logFileName, maxSizeBytes, maxArchives)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return
	}
	log.SetOutput(w)
}

// rotatingWriter appends to path and shifts it to path.1 .. path.N once a
// write would take it past maxSize.
type rotatingWriter struct {
	path     string
	maxSize  int64
	archives int
	f        *os.File
}

func openRotating(path string, maxSize int64, archives int) (*rotatingWriter, error) {
	w := &rotatingWriter{path: path, maxSize: maxSize, archives: archives}
	if st, err := os.Stat(path); err == nil && st.Size() > maxSize {
		w.rotate()
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	w.f = f
	return nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	if st, err := w.f.Stat(); err == nil && st.Size() > 0 && st.Size()+int64(len(p)) > w.maxSize {
		_ = w.f.Close()
		w.rotate()
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	return w.f.Write(p)
}

// rotate drops the oldest archive and renames the rest one step up.
func (w *rotatingWriter) rotate() {
	_ = os.Remove(w.archive(w.archives))
	for i := w.archives - 1; i >= 1; i-- {
		_ = os.Rename(w.archive(i), w.archive(i+1))
	}
	_ = os.Rename(w.path, w.archive(1))
}

func (w *rotatingWriter) archive(n int) string { return fmt.Sprintf("%s.%d", w.path, n) }

// RedactKey masks an API key, leaving first/last 4 chars: xxxx...yyyy
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...%s", k[:4], k[len(k)-4:])
}

// Sanitize makes recognized text safe to log: long text is truncated and
// control characters cannot forge log lines.
func Sanitize(text string) string {
	if len(text) > maxLogLength {
		cut := maxLogLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}

	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("\\n")
		case r == '\t':
			b.WriteString("\\t")
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
