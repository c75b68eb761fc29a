// Package pigo detects faces with the pure-Go pixel intensity comparison
// cascade from github.com/esimov/pigo.
package pigo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
)

var ErrInvalidCascade = errors.New("invalid pigo cascade")

// facefinder is the frontal face cascade distributed with pigo (MIT, see
// cascade/LICENSE).
//
//go:embed cascade/facefinder
var facefinder []byte

// Config tunes the cascade scan. Sizes are in pixels.
type Config struct {
	// CascadePath names a cascade file on disk; empty uses the bundled facefinder.
	CascadePath  string
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	// MinQuality drops weak detections; pigo scores are unbounded.
	MinQuality float32
}

func DefaultConfig() Config {
	return Config{
		MinSize:      60,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
	}
}

type Detector struct {
	classifier *pigo.Pigo
	config     Config
}

// New reads and unpacks the cascade file named by cfg.CascadePath, or the
// bundled facefinder cascade when no path is set.
func New(cfg Config) (*Detector, error) {
	if cfg.CascadePath == "" {
		return NewFromBytes(facefinder, cfg)
	}
	data, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	return NewFromBytes(data, cfg)
}

func NewFromBytes(cascade []byte, cfg Config) (*Detector, error) {
	// header plus at least one tree; shorter input makes Unpack index out of range
	if len(cascade) < 16 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCascade, len(cascade))
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCascade, err)
	}

	return &Detector{classifier: classifier, config: cfg}, nil
}

func (d *Detector) Name() string {
	return "pigo"
}

func (d *Detector) Detect(ctx context.Context, frame image.Image) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := pigo.ImgToNRGBA(frame)
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     min(d.config.MaxSize, max(cols, rows)),
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)

	return toFaces(dets, d.config.MinQuality, frame.Bounds()), nil
}

// toFaces converts centre/scale detections into frame rectangles.
func toFaces(dets []pigo.Detection, minQuality float32, bounds image.Rectangle) []provider.DetectedFace {
	faces := make([]provider.DetectedFace, 0, len(dets))
	for _, det := range dets {
		if det.Q < minQuality {
			continue
		}
		half := det.Scale / 2
		box := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half).
			Add(bounds.Min).
			Intersect(bounds)
		if box.Empty() {
			continue
		}
		faces = append(faces, provider.DetectedFace{
			Box:        box,
			Confidence: qualityToConfidence(det.Q),
		})
	}
	return faces
}

// qualityToConfidence squashes pigo's open-ended score into [0, 1).
func qualityToConfidence(q float32) float64 {
	if q <= 0 {
		return 0
	}
	return float64(q) / float64(q+20)
}

var _ provider.Detector = (*Detector)(nil)
