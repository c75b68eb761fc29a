// Package template implements the degraded-mode extractor: a face is
// described by its normalised grayscale thumbnail, compared by correlation.
package template

import (
	"context"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
)

const (
	DefaultSize = 100
	minSide     = 8
)

type Extractor struct {
	size int
}

// New returns an extractor producing size x size thumbnails. size <= 0 uses
// DefaultSize.
func New(size int) *Extractor {
	if size <= 0 {
		size = DefaultSize
	}
	return &Extractor{size: size}
}

func (e *Extractor) Name() string {
	return fmt.Sprintf("template/%d", e.size)
}

func (e *Extractor) Extract(ctx context.Context, face image.Image) (resolver.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := face.Bounds()
	if b.Dx() < minSide || b.Dy() < minSide {
		return nil, fmt.Errorf("%w: face region %dx%d too small", resolver.ErrDescriptorUnavailable, b.Dx(), b.Dy())
	}
	return resolver.Descriptor(imaging.GrayVector(face, e.size)), nil
}

var _ provider.Extractor = (*Extractor)(nil)
