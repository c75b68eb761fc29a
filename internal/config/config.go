package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"5001"`
	Environment string `envconfig:"ENV" default:"development"`

	// Storage
	FaceDatabase   string `envconfig:"FACE_DATABASE" default:"face_database"`
	UnknownDir     string `envconfig:"UNKNOWN_DIR" default:"unknown_faces"`
	UploadMaxBytes int    `envconfig:"UPLOAD_MAX_BYTES" default:"16777216"`

	// Feature extractor
	ProviderType     string `envconfig:"PROVIDER_TYPE" default:"deepface"`
	DeepFaceURL      string `envconfig:"DEEPFACE_URL" default:"http://localhost:5000"`
	DeepFaceModel    string `envconfig:"DEEPFACE_MODEL" default:"VGG-Face"`
	DeepFaceDetector string `envconfig:"DEEPFACE_DETECTOR" default:"opencv"`

	// Resolver
	DistanceMetric       string  `envconfig:"DISTANCE_METRIC"`
	RecognitionThreshold float64 `envconfig:"RECOGNITION_THRESHOLD" default:"0"`

	// Face detector
	DetectorType string `envconfig:"DETECTOR_TYPE" default:"pigo"`
	PigoCascade  string `envconfig:"PIGO_CASCADE"`
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Camera
	CameraDriver string `envconfig:"CAMERA_DRIVER" default:"device"`
	CameraDevice string `envconfig:"CAMERA_DEVICE" default:"0"`
	CameraURL    string `envconfig:"CAMERA_URL"`
	FrameWidth   int    `envconfig:"FRAME_WIDTH" default:"640"`
	FrameHeight  int    `envconfig:"FRAME_HEIGHT" default:"480"`
	Mirror       bool   `envconfig:"MIRROR" default:"true"`
	// StreamInterval is the minimum gap between two MJPEG parts
	StreamInterval time.Duration `envconfig:"STREAM_INTERVAL" default:"40ms"`

	// Recognition loop
	RecognitionEnabled     bool          `envconfig:"RECOGNITION_ENABLED" default:"true"`
	RecognitionTimeout     time.Duration `envconfig:"RECOGNITION_TIMEOUT" default:"5s"`
	UnknownCaptureEnabled  bool          `envconfig:"UNKNOWN_CAPTURE_ENABLED" default:"false"`
	UnknownCaptureInterval time.Duration `envconfig:"UNKNOWN_CAPTURE_INTERVAL" default:"10s"`
	UnknownDedupDistance   int           `envconfig:"UNKNOWN_DEDUP_DISTANCE" default:"8"`

	// Rate limiting of mutating endpoints, requests per minute per client
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values that would only fail later at wiring time.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if strings.TrimSpace(c.FaceDatabase) == "" {
		errs = append(errs, errors.New("FACE_DATABASE is required"))
	}
	if c.UploadMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_BYTES must be positive: %d", c.UploadMaxBytes))
	}
	if c.RecognitionThreshold < 0 {
		errs = append(errs, fmt.Errorf("RECOGNITION_THRESHOLD must not be negative: %v", c.RecognitionThreshold))
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		errs = append(errs, fmt.Errorf("invalid frame size %dx%d", c.FrameWidth, c.FrameHeight))
	}
	if c.RecognitionTimeout <= 0 {
		errs = append(errs, errors.New("RECOGNITION_TIMEOUT must be positive"))
	}
	if c.StreamInterval < 0 {
		errs = append(errs, errors.New("STREAM_INTERVAL must not be negative"))
	}
	if c.CameraDriver == "snapshot" && c.CameraURL == "" {
		errs = append(errs, errors.New("CAMERA_URL is required for the snapshot camera driver"))
	}

	switch c.ProviderType {
	case "deepface", "template", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown PROVIDER_TYPE %q", c.ProviderType))
	}
	switch c.DetectorType {
	case "pigo", "rekognition", "deepface", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown DETECTOR_TYPE %q", c.DetectorType))
	}
	switch c.CameraDriver {
	case "device", "snapshot", "static":
	default:
		errs = append(errs, fmt.Errorf("unknown CAMERA_DRIVER %q", c.CameraDriver))
	}

	return errors.Join(errs...)
}

// Metric returns the configured distance policy name. When unset it follows
// the extractor: template thumbnails are compared by correlation, embeddings
// by cosine distance.
func (c *Config) Metric() string {
	if c.DistanceMetric != "" {
		return c.DistanceMetric
	}
	if c.ProviderType == "template" {
		return "template_correlation"
	}
	return "cosine"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
