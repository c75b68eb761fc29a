// Package provider defines the face detection and feature extraction
// collaborators used by the recognition pipeline.
package provider

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
)

// Extractor maps a face image to a descriptor. Implementations return
// resolver.ErrDescriptorUnavailable when no descriptor can be produced.
type Extractor interface {
	// Name identifies the model; descriptors from different names are not
	// comparable.
	Name() string
	Extract(ctx context.Context, face image.Image) (resolver.Descriptor, error)
}

// Detector finds face regions in a frame.
type Detector interface {
	Name() string
	Detect(ctx context.Context, frame image.Image) ([]DetectedFace, error)
}

// Pinger is implemented by providers backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DetectedFace is one face region in frame coordinates.
type DetectedFace struct {
	Box        image.Rectangle `json:"box"`
	Confidence float64         `json:"confidence"`
}

// Square grows the shorter side of r around its centre so face crops keep
// the aspect ratio the extractors were trained on.
func Square(r image.Rectangle) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	if w == h {
		return r
	}
	side := max(w, h)
	cx := r.Min.X + w/2
	cy := r.Min.Y + h/2
	return image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)
}
