package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads explicit values",
			envVars: map[string]string{
				"PORT":                  "8080",
				"ENV":                   "production",
				"FACE_DATABASE":         "/var/lib/facecam",
				"PROVIDER_TYPE":         "template",
				"DISTANCE_METRIC":       "euclidean_l2",
				"RECOGNITION_THRESHOLD": "0.5",
				"RECOGNITION_TIMEOUT":   "2s",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.FaceDatabase == "/var/lib/facecam" &&
					c.ProviderType == "template" &&
					c.Metric() == "euclidean_l2" &&
					c.RecognitionThreshold == 0.5 &&
					c.RecognitionTimeout == 2*time.Second
			},
		},
		{
			name:    "uses defaults when optional vars missing",
			envVars: map[string]string{},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 5001 &&
					c.Environment == "development" &&
					c.ProviderType == "deepface" &&
					c.DetectorType == "pigo" &&
					c.PigoCascade == "" &&
					c.FaceDatabase == "face_database" &&
					c.UploadMaxBytes == 16*1024*1024 &&
					c.Metric() == "cosine" &&
					c.Mirror &&
					c.StreamInterval == 40*time.Millisecond &&
					!c.UnknownCaptureEnabled
			},
		},
		{
			name: "fails on unknown provider",
			envVars: map[string]string{
				"PROVIDER_TYPE": "magic",
			},
			wantErr: true,
		},
		{
			name: "fails on snapshot driver without url",
			envVars: map[string]string{
				"CAMERA_DRIVER": "snapshot",
			},
			wantErr: true,
		},
		{
			name: "fails on malformed port",
			envVars: map[string]string{
				"PORT": "not-a-number",
			},
			wantErr: true,
		},
		{
			name: "fails on negative stream interval",
			envVars: map[string]string{
				"STREAM_INTERVAL": "-1s",
			},
			wantErr: true,
		},
		{
			name: "fails on negative threshold",
			envVars: map[string]string{
				"RECOGNITION_THRESHOLD": "-1",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_Metric(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		metric   string
		want     string
	}{
		{"explicit wins", "template", "cosine", "cosine"},
		{"template default", "template", "", "template_correlation"},
		{"deepface default", "deepface", "", "cosine"},
		{"mock default", "mock", "", "cosine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{ProviderType: tt.provider, DistanceMetric: tt.metric}
			if got := c.Metric(); got != tt.want {
				t.Errorf("Metric() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}
