package camera

import (
	"context"
	"image"
	"sync/atomic"
)

// Static serves the same frame on every read.
type Static struct {
	frame  image.Image
	closed atomic.Bool
}

func NewStatic(frame image.Image) *Static {
	return &Static{frame: frame}
}

func (s *Static) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrCameraUnavailable
	}
	return s.frame, nil
}

func (s *Static) Close() error {
	s.closed.Store(true)
	return nil
}
