// Package pipeline turns camera frames into annotated JPEG images: read,
// mirror, detect, optionally recognize, draw overlays, encode.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saturnino-fabrica-de-software/facecam/internal/camera"
	"github.com/saturnino-fabrica-de-software/facecam/internal/domain"
	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
	"github.com/saturnino-fabrica-de-software/facecam/internal/ws"
)

const (
	TextCameraOff        = "Camera Off"
	TextCameraError      = "Camera Error"
	TextUnknown          = "Unknown"
	TextRecognitionError = "Recognition Error"

	boxThickness = 3
)

// Recognizer identifies one face crop.
type Recognizer interface {
	Identify(ctx context.Context, face image.Image) (resolver.Match, error)
}

// Publisher receives pipeline events.
type Publisher interface {
	Publish(eventType ws.EventType, data interface{})
}

// Outcome is the recognition state of one detected face.
type Outcome int

const (
	OutcomeNone    Outcome = iota // recognition disabled
	OutcomeSkipped                // another attempt was in flight
	OutcomeMatched
	OutcomeUnknown
	OutcomeError
)

type FaceResult struct {
	Box        image.Rectangle
	Outcome    Outcome
	Name       string
	Confidence float64
	Label      string
}

// Frame is one encoded stream image.
type Frame struct {
	JPEG        []byte
	Faces       []FaceResult
	Placeholder bool
}

type Config struct {
	Width  int
	Height int
	Mirror bool
	// RecognitionTimeout bounds a single Identify call.
	RecognitionTimeout time.Duration
	// RecognizedDebounce is the minimum gap between two face.recognized
	// events for the same identity.
	RecognizedDebounce time.Duration
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = 640
	}
	if c.Height <= 0 {
		c.Height = 480
	}
	if c.RecognitionTimeout <= 0 {
		c.RecognitionTimeout = 5 * time.Second
	}
	if c.RecognizedDebounce <= 0 {
		c.RecognizedDebounce = 5 * time.Second
	}
	return c
}

type Pipeline struct {
	session    *camera.Session
	detector   provider.Detector
	recognizer Recognizer
	unknown    *UnknownRecorder
	publisher  Publisher
	logger     *slog.Logger
	cfg        Config
	now        func() time.Time

	inflight atomic.Bool

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

type Option func(*Pipeline)

// WithUnknownRecorder enables persistence of unrecognised faces.
func WithUnknownRecorder(r *UnknownRecorder) Option {
	return func(p *Pipeline) {
		p.unknown = r
	}
}

func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func New(session *camera.Session, detector provider.Detector, recognizer Recognizer, cfg Config, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		session:    session,
		detector:   detector,
		recognizer: recognizer,
		logger:     logger,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		lastSeen:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Capture reads one frame, mirrored like the stream, and encodes it.
func (p *Pipeline) Capture(ctx context.Context) ([]byte, error) {
	frame, err := p.read(ctx)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeJPEG(frame)
}

// Process produces the next stream frame. Camera and recognition failures
// are rendered into the image; only an encoding failure returns an error.
func (p *Pipeline) Process(ctx context.Context) (Frame, error) {
	canvas, err := p.read(ctx)
	switch {
	case errors.Is(err, camera.ErrCameraOff):
		return p.placeholder(TextCameraOff)
	case err != nil:
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		p.logger.Warn("frame read failed", "error", err)
		return p.placeholder(TextCameraError)
	}

	faces, err := p.detector.Detect(ctx, canvas)
	if err != nil {
		p.logger.Warn("face detection failed", "detector", p.detector.Name(), "error", err)
		faces = nil
	}

	recognition := p.session.RecognitionEnabled()
	results := make([]FaceResult, 0, len(faces))
	for _, face := range faces {
		box := face.Box.Intersect(canvas.Bounds())
		if box.Empty() {
			continue
		}
		result := FaceResult{Box: box}
		if recognition {
			result = p.recognize(ctx, canvas, box)
		}
		results = append(results, result)
	}

	// Boxes are drawn after every crop so one face's overlay never leaks
	// into the crop of a neighbour.
	for _, r := range results {
		drawFace(canvas, r)
	}
	drawStatus(canvas, recognition)

	data, err := imaging.EncodeJPEG(canvas)
	if err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	return Frame{JPEG: data, Faces: results}, nil
}

func (p *Pipeline) read(ctx context.Context) (*image.RGBA, error) {
	frame, err := p.session.Read(ctx)
	if err != nil {
		return nil, err
	}
	if p.cfg.Mirror {
		return imaging.Mirror(frame), nil
	}
	return imaging.ToRGBA(frame), nil
}

func (p *Pipeline) placeholder(text string) (Frame, error) {
	data, err := imaging.EncodeJPEG(imaging.Placeholder(p.cfg.Width, p.cfg.Height, text))
	if err != nil {
		return Frame{}, fmt.Errorf("encode placeholder: %w", err)
	}
	return Frame{JPEG: data, Placeholder: true}, nil
}

// recognize runs one recognition attempt. Only one attempt runs at a time
// across all streams; a face arriving while another is in flight is
// returned as skipped.
func (p *Pipeline) recognize(ctx context.Context, canvas *image.RGBA, box image.Rectangle) FaceResult {
	result := FaceResult{Box: box}

	if !p.inflight.CompareAndSwap(false, true) {
		result.Outcome = OutcomeSkipped
		return result
	}
	defer p.inflight.Store(false)

	crop, err := imaging.Crop(canvas, box)
	if err != nil {
		result.Outcome = OutcomeError
		result.Label = TextRecognitionError
		return result
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.RecognitionTimeout)
	match, err := p.recognizer.Identify(attemptCtx, crop)
	cancel()

	switch {
	case err == nil && match.Matched:
		result.Outcome = OutcomeMatched
		result.Name = match.Label
		result.Confidence = match.Confidence
		result.Label = fmt.Sprintf("%s (%.1f%%)", match.Label, match.Confidence*100)
		p.announce(match)
	case err == nil, errors.Is(err, resolver.ErrDescriptorUnavailable):
		result.Outcome = OutcomeUnknown
		result.Label = TextUnknown
		p.recordUnknown(ctx, crop)
	default:
		if ctx.Err() == nil {
			p.logger.Warn("recognition failed", "error", err)
		}
		result.Outcome = OutcomeError
		result.Label = TextRecognitionError
	}
	return result
}

// announce publishes face.recognized at most once per debounce window
// per identity.
func (p *Pipeline) announce(match resolver.Match) {
	if p.publisher == nil {
		return
	}

	now := p.now()
	p.mu.Lock()
	last, seen := p.lastSeen[match.Label]
	if seen && now.Sub(last) < p.cfg.RecognizedDebounce {
		p.mu.Unlock()
		return
	}
	p.lastSeen[match.Label] = now
	p.mu.Unlock()

	p.publisher.Publish(ws.EventFaceRecognized, domain.Recognition{
		Name:       match.Label,
		Score:      match.Score,
		Confidence: match.Confidence,
		Policy:     match.Policy,
	})
}

func (p *Pipeline) recordUnknown(ctx context.Context, crop image.Image) {
	if p.unknown == nil {
		return
	}
	entry, saved, err := p.unknown.Offer(ctx, crop)
	if err != nil {
		p.logger.Warn("unknown face not recorded", "error", err)
		return
	}
	if saved && p.publisher != nil {
		p.publisher.Publish(ws.EventUnknownCaptured, map[string]interface{}{
			"filename": entry.Filename,
		})
	}
}

func drawFace(canvas *image.RGBA, r FaceResult) {
	imaging.DrawRect(canvas, r.Box, imaging.Green, boxThickness)
	if r.Label == "" {
		return
	}

	var fg color.Color = imaging.Red
	if r.Outcome == OutcomeMatched {
		fg = imaging.ConfidenceColor(r.Confidence)
	}
	y := r.Box.Min.Y - 6
	if y < 14 {
		y = r.Box.Max.Y + 16
	}
	imaging.DrawLabel(canvas, r.Box.Min.X, y, r.Label, fg, imaging.Black)
}

func drawStatus(canvas *image.RGBA, enabled bool) {
	text := "Recognition: OFF"
	if enabled {
		text = "Recognition: ON"
	}
	imaging.DrawLabel(canvas, 10, 24, text, imaging.Red, nil)
}
