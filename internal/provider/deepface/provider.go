package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
)

const (
	// minFaceArea is the minimum face area (in pixels²) for reliable detection
	minFaceArea = 2500 // 50x50 pixels
	// maxFaceArea is used for confidence scaling
	maxFaceArea = 250000 // 500x500 pixels
)

// Provider extracts embeddings, and optionally detects faces, through the
// DeepFace HTTP API.
type Provider struct {
	client *Client
	config Config
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
		config: config,
	}
}

// Name includes the model, since embeddings of different models live in
// different spaces.
func (p *Provider) Name() string {
	return "deepface/" + p.config.Model
}

func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Extract returns the embedding of the largest face deepface finds in the
// image. A 4xx answer ("Face could not be detected") or an empty result
// means no descriptor.
func (p *Provider) Extract(ctx context.Context, face image.Image) (resolver.Descriptor, error) {
	uri, err := dataURI(face)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Represent(ctx, uri, p.config.EnforceDetection)
	if err != nil {
		if isClientError(err) {
			return nil, fmt.Errorf("%w: %v", resolver.ErrDescriptorUnavailable, err)
		}
		return nil, fmt.Errorf("extract descriptor: %w", err)
	}

	best := -1
	bestArea := -1
	for i, r := range resp.Results {
		if len(r.Embedding) == 0 {
			continue
		}
		if area := r.FacialArea.W * r.FacialArea.H; area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("%w: %v", resolver.ErrDescriptorUnavailable, ErrNoFaceInResponse)
	}

	return resolver.Descriptor(resp.Results[best].Embedding), nil
}

// Detect uses deepface's detector backend to locate faces in a frame.
func (p *Provider) Detect(ctx context.Context, frame image.Image) ([]provider.DetectedFace, error) {
	uri, err := dataURI(frame)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Represent(ctx, uri, true)
	if err != nil {
		if isClientError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	origin := frame.Bounds().Min
	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		area := result.FacialArea
		if area.W <= 0 || area.H <= 0 {
			continue
		}
		confidence := result.FaceConfidence
		if confidence <= 0 {
			confidence = calculateConfidence(float64(area.W * area.H))
		}

		faces = append(faces, provider.DetectedFace{
			Box:        image.Rect(area.X, area.Y, area.X+area.W, area.Y+area.H).Add(origin),
			Confidence: confidence,
		})
	}

	return faces, nil
}

// calculateConfidence estimates confidence based on face area for backends
// that report none. Larger faces are more likely to be accurately detected.
func calculateConfidence(faceArea float64) float64 {
	if faceArea < minFaceArea {
		return 0.5
	}
	// Scale from 0.7 to 0.99 based on face area
	normalized := math.Min(1.0, (faceArea-minFaceArea)/(maxFaceArea-minFaceArea))
	return 0.7 + (normalized * 0.29)
}

func dataURI(img image.Image) (string, error) {
	data, err := imaging.EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

var (
	_ provider.Extractor = (*Provider)(nil)
	_ provider.Detector  = (*Provider)(nil)
	_ provider.Pinger    = (*Provider)(nil)
)
