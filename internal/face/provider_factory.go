package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/facecam/internal/config"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider/pigo"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider/rekognition"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider/template"
)

// ProviderType names an extractor or detector implementation.
type ProviderType string

const (
	// ProviderTypeDeepFace calls a DeepFace HTTP service
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeTemplate compares grayscale thumbnails, no model needed
	ProviderTypeTemplate ProviderType = "template"
	// ProviderTypePigo runs the pigo cascade in process
	ProviderTypePigo ProviderType = "pigo"
	// ProviderTypeRekognition calls AWS Rekognition DetectFaces
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeMock is deterministic and offline, for dev/test
	ProviderTypeMock ProviderType = "mock"
)

// NewExtractor creates the feature extractor selected by PROVIDER_TYPE.
//
// Environment variables:
//   - PROVIDER_TYPE: "deepface", "template" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_MODEL, DEEPFACE_DETECTOR: DeepFace service settings
func NewExtractor(cfg *config.Config) (provider.Extractor, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeDeepFace, "":
		return newDeepFaceProvider(cfg), nil
	case ProviderTypeTemplate:
		return template.New(template.DefaultSize), nil
	case ProviderTypeMock:
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s)",
			cfg.ProviderType, ProviderTypeDeepFace, ProviderTypeTemplate, ProviderTypeMock)
	}
}

// NewDetector creates the face detector selected by DETECTOR_TYPE.
//
// Environment variables:
//   - DETECTOR_TYPE: "pigo", "rekognition", "deepface" or "mock" (default: "pigo")
//   - PIGO_CASCADE: path to a pigo cascade file (default: the bundled facefinder)
//   - AWS_REGION: AWS region for Rekognition; credentials come from the SDK chain
func NewDetector(ctx context.Context, cfg *config.Config) (provider.Detector, error) {
	switch ProviderType(cfg.DetectorType) {
	case ProviderTypePigo, "":
		pigoConfig := pigo.DefaultConfig()
		if cfg.PigoCascade != "" {
			pigoConfig.CascadePath = cfg.PigoCascade
		}
		d, err := pigo.New(pigoConfig)
		if err != nil {
			return nil, fmt.Errorf("create pigo detector: %w", err)
		}
		return d, nil

	case ProviderTypeRekognition:
		rekogConfig := rekognition.DefaultConfig()
		if cfg.AWSRegion != "" {
			rekogConfig.Region = cfg.AWSRegion
		}
		d, err := rekognition.NewDetector(ctx, rekogConfig)
		if err != nil {
			return nil, fmt.Errorf("create rekognition detector: %w", err)
		}
		return d, nil

	case ProviderTypeDeepFace:
		return newDeepFaceProvider(cfg), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown detector type: %s (supported: %s, %s, %s, %s)",
			cfg.DetectorType, ProviderTypePigo, ProviderTypeRekognition, ProviderTypeDeepFace, ProviderTypeMock)
	}
}

// newDeepFaceProvider creates a DeepFace provider, keeping package defaults
// for anything the config leaves empty
func newDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}
	return deepface.NewProvider(deepfaceConfig)
}
