package face

import (
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/facecam/internal/config"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/recognizer"
	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
)

// NewRecognizer builds a recognizer over db using the configured distance
// policy and threshold. When detector is non-nil, reference images are
// cropped to their largest face before extraction.
func NewRecognizer(cfg *config.Config, db recognizer.Database, extractor provider.Extractor, detector provider.Detector, logger *slog.Logger) (*recognizer.Recognizer, error) {
	policy, err := resolver.ParsePolicy(cfg.Metric())
	if err != nil {
		return nil, fmt.Errorf("distance metric: %w", err)
	}

	var opts []recognizer.Option
	if detector != nil {
		opts = append(opts, recognizer.WithDetector(detector))
	}
	return recognizer.New(db, extractor, policy, cfg.RecognitionThreshold, logger, opts...), nil
}
