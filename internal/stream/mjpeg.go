// Package stream writes motion-JPEG over a multipart/x-mixed-replace body.
package stream

import (
	"bufio"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"time"
)

const Boundary = "frame"

// ContentType is the response content type for an MJPEG stream.
var ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// FrameSource yields one encoded JPEG per call.
type FrameSource func(ctx context.Context) ([]byte, error)

type Writer struct {
	w  *bufio.Writer
	mw *multipart.Writer
}

func NewWriter(w *bufio.Writer) *Writer {
	mw := multipart.NewWriter(w)
	// SetBoundary only fails on invalid boundaries.
	_ = mw.SetBoundary(Boundary)
	return &Writer{w: w, mw: mw}
}

// WriteFrame writes one JPEG part and flushes it to the client.
func (s *Writer) WriteFrame(jpeg []byte) error {
	h := make(textproto.MIMEHeader, 2)
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(jpeg)))

	part, err := s.mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(jpeg); err != nil {
		return fmt.Errorf("write part: %w", err)
	}
	return s.w.Flush()
}

// Close writes the closing boundary.
func (s *Writer) Close() error {
	if err := s.mw.Close(); err != nil {
		return err
	}
	return s.w.Flush()
}

// Pump writes frames from next until ctx is done, next fails, or a write
// fails because the client went away. interval is the minimum time
// between two frames.
func Pump(ctx context.Context, w *Writer, next FrameSource, interval time.Duration) error {
	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for {
		if err := ctx.Err(); err != nil {
			_ = w.Close()
			return nil
		}

		frame, err := next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = w.Close()
				return nil
			}
			return err
		}
		if err := w.WriteFrame(frame); err != nil {
			return err
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
	}
}
