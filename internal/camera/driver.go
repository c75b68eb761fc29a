package camera

import (
	"context"
	"fmt"
	"image"
	"time"
)

const (
	DriverDevice   = "device"
	DriverSnapshot = "snapshot"
	DriverStatic   = "static"
)

// Config selects and parameterises a camera driver.
type Config struct {
	Driver string
	Device string
	URL    string
	Width  int
	Height int
	// Timeout bounds a single snapshot request.
	Timeout time.Duration
}

// NewOpener returns the Opener for cfg.Driver.
func NewOpener(cfg Config) (Opener, error) {
	switch cfg.Driver {
	case DriverDevice:
		return func(ctx context.Context) (Source, error) {
			return OpenDevice(ctx, cfg.Device, cfg.Width, cfg.Height)
		}, nil
	case DriverSnapshot:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: snapshot driver needs a URL", ErrUnknownDriver)
		}
		return func(ctx context.Context) (Source, error) {
			return OpenSnapshot(ctx, cfg.URL, cfg.Timeout)
		}, nil
	case DriverStatic:
		return func(context.Context) (Source, error) {
			return NewStatic(testPattern(cfg.Width, cfg.Height)), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func testPattern(w, h int) image.Image {
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 480
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(x * 255 / w)
			img.Pix[i+1] = uint8(y * 255 / h)
			img.Pix[i+2] = 128
			img.Pix[i+3] = 255
		}
	}
	return img
}
