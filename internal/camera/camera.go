// Package camera owns the single frame source of the process: opening and
// closing it, serialising reads, and the recognition-enabled switch.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	ErrCameraOff         = errors.New("camera is off")
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrUnknownDriver     = errors.New("unknown camera driver")
)

// Source yields frames from one capture device.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener opens a fresh Source.
type Opener func(ctx context.Context) (Source, error)

// Session holds at most one open Source. Start, Stop and Read are
// serialised by a mutex; the recognition flag is independent of it.
type Session struct {
	open   Opener
	logger *slog.Logger

	mu     sync.Mutex
	source Source

	recognition atomic.Bool
}

func NewSession(open Opener, recognition bool, logger *slog.Logger) *Session {
	s := &Session{open: open, logger: logger}
	s.recognition.Store(recognition)
	return s
}

// Start opens the source. Starting an active session is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source != nil {
		return nil
	}

	src, err := s.open(ctx)
	if err != nil {
		s.logger.Error("camera open failed", "error", err)
		if errors.Is(err, ErrCameraUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	s.source = src
	s.logger.Info("camera started")
	return nil
}

// Stop releases the source. Stopping an inactive session is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return nil
	}

	err := s.source.Close()
	s.source = nil
	if err != nil {
		s.logger.Warn("camera close failed", "error", err)
		return fmt.Errorf("close camera: %w", err)
	}
	s.logger.Info("camera stopped")
	return nil
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source != nil
}

// Read returns the next frame, ErrCameraOff when the session is not
// started, or an error wrapping ErrCameraUnavailable when the read fails.
func (s *Session) Read(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return nil, ErrCameraOff
	}

	frame, err := s.source.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrCameraUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	return frame, nil
}

// ToggleRecognition flips the recognition flag and returns the new value.
func (s *Session) ToggleRecognition() bool {
	for {
		old := s.recognition.Load()
		if s.recognition.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (s *Session) SetRecognition(enabled bool) {
	s.recognition.Store(enabled)
}

func (s *Session) RecognitionEnabled() bool {
	return s.recognition.Load()
}
