// Package capture provides the frame sources polled by the dispatch loop:
// a local camera, a network (RTSP) camera or a screen region.
package capture

import (
	"errors"
	"fmt"
	"image"
	"log"

	"ocr-text-commands/src/screenshot"
)

const (
	KindCamera  = "camera"
	KindNetwork = "network"
	KindScreen  = "screen"
)

var (
	ErrUnknownSource = errors.New("unknown capture source")
	ErrSourceClosed  = errors.New("capture source is not open")
	ErrEmptyFrame    = errors.New("capture source returned an empty frame")
)

// Source yields one color frame per Read.
type Source interface {
	Read() (image.Image, error)
	Close() error
	String() string
}

type Config struct {
	Kind    string
	Device  int
	User    string
	Pass    string
	Address string
	Region  screenshot.Region

	// AllDisplays selects the whole virtual screen for KindScreen.
	AllDisplays bool
}

// New opens the source selected by cfg.Kind. An unrecognized kind is not
// reported here: the returned source fails with ErrUnknownSource on its
// first Read.
func New(cfg Config) (Source, error) {
	var (
		src Source
		err error
	)
	switch cfg.Kind {
	case KindCamera:
		src, err = asSource(OpenCamera(cfg.Device))
	case KindNetwork:
		src, err = asSource(OpenNetworkCamera(cfg.User, cfg.Pass, cfg.Address))
	case KindScreen:
		if cfg.AllDisplays {
			src = NewAllDisplays()
			break
		}
		var screen *ScreenRegion
		if screen, err = NewScreenRegion(cfg.Region); err == nil {
			src = screen
		}
	default:
		log.Printf("capture: unknown source %q, the first frame request will fail", cfg.Kind)
		src = unknownSource{kind: cfg.Kind}
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

func asSource(c *Camera, err error) (Source, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

type unknownSource struct{ kind string }

func (u unknownSource) Read() (image.Image, error) {
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, u.kind)
}

func (unknownSource) Close() error { return nil }

func (u unknownSource) String() string { return "unknown(" + u.kind + ")" }
