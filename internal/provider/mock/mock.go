package mock

import (
	"context"
	"crypto/sha256"
	"image"
	"math"

	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
)

const (
	embeddingDimension = 512
	// minSide is the smallest image side the mock treats as containing a face
	minSide = 16
)

// Provider is a deterministic extractor and detector for development and
// tests. Identical pixels always produce the identical embedding.
type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string {
	return "mock"
}

// Detect reports one face covering the central 80% of the frame.
func (p *Provider) Detect(ctx context.Context, frame image.Image) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := frame.Bounds()
	if b.Dx() < minSide || b.Dy() < minSide {
		return nil, nil
	}

	return []provider.DetectedFace{
		{
			Box: image.Rect(
				b.Min.X+b.Dx()/10,
				b.Min.Y+b.Dy()/10,
				b.Max.X-b.Dx()/10,
				b.Max.Y-b.Dy()/10,
			),
			Confidence: 0.99,
		},
	}, nil
}

// Extract derives a unit-length embedding from a hash of the pixels.
func (p *Provider) Extract(ctx context.Context, face image.Image) (resolver.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := face.Bounds()
	if b.Dx() < minSide || b.Dy() < minSide {
		return nil, resolver.ErrDescriptorUnavailable
	}
	return generateEmbedding(imaging.ToRGBA(face).Pix), nil
}

func generateEmbedding(pixels []byte) resolver.Descriptor {
	hash := sha256.Sum256(pixels)
	embedding := make(resolver.Descriptor, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		// mix the position in so repeated hash bytes do not repeat values
		b := hash[i%hashLen] ^ byte(i/hashLen*31)
		embedding[i] = (float64(b)/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var (
	_ provider.Extractor = (*Provider)(nil)
	_ provider.Detector  = (*Provider)(nil)
)
