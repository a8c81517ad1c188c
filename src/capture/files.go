package capture

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// FileSequence replays still images in order. Read returns io.EOF once every
// file has been served.
type FileSequence struct {
	paths []string
	next  int
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".gif": true, ".tif": true, ".tiff": true}

func NewFileSequence(paths []string) *FileSequence {
	return &FileSequence{paths: paths}
}

// OpenDir serves the images of dir sorted by file name.
func OpenDir(dir string) (*FileSequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	sort.Strings(paths)
	return NewFileSequence(paths), nil
}

func (f *FileSequence) Read() (image.Image, error) {
	if f.next >= len(f.paths) {
		return nil, io.EOF
	}
	path := f.paths[f.next]
	f.next++
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load frame %s: %w", path, err)
	}
	return img, nil
}

// Current returns the path of the last frame served.
func (f *FileSequence) Current() string {
	if f.next == 0 {
		return ""
	}
	return f.paths[f.next-1]
}

func (f *FileSequence) Close() error { return nil }

func (f *FileSequence) String() string { return fmt.Sprintf("files(%d)", len(f.paths)) }
