package mock

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
)

func filled(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestProvider_Detect(t *testing.T) {
	p := New()
	ctx := context.Background()

	tests := []struct {
		name      string
		image     image.Image
		wantFaces int
		wantBox   image.Rectangle
	}{
		{
			name:      "frame",
			image:     filled(100, 50, color.White),
			wantFaces: 1,
			wantBox:   image.Rect(10, 5, 90, 45),
		},
		{
			name:      "image too small",
			image:     filled(8, 8, color.White),
			wantFaces: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faces, err := p.Detect(ctx, tt.image)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(faces) != tt.wantFaces {
				t.Fatalf("Detect() got %d faces, want %d", len(faces), tt.wantFaces)
			}
			if tt.wantFaces > 0 && faces[0].Box != tt.wantBox {
				t.Errorf("Detect() box = %v, want %v", faces[0].Box, tt.wantBox)
			}
		})
	}
}

func TestProvider_Extract(t *testing.T) {
	p := New()
	ctx := context.Background()

	embedding, err := p.Extract(ctx, filled(32, 32, color.RGBA{R: 10, G: 20, B: 30, A: 255}))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(embedding) != embeddingDimension {
		t.Errorf("embedding length = %d, want %d", len(embedding), embeddingDimension)
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 0.0001 {
		t.Errorf("embedding norm = %f, want 1.0", math.Sqrt(norm))
	}
}

func TestProvider_ExtractDeterministic(t *testing.T) {
	p := New()
	ctx := context.Background()

	a := filled(32, 32, color.RGBA{R: 200, A: 255})
	b := filled(32, 32, color.RGBA{G: 200, A: 255})

	emb1, _ := p.Extract(ctx, a)
	emb2, _ := p.Extract(ctx, a)
	emb3, _ := p.Extract(ctx, b)

	if d := resolver.Cosine.Score(emb1, emb2); d > 1e-9 {
		t.Errorf("same image distance = %f, want 0", d)
	}
	if d := resolver.Cosine.Score(emb1, emb3); d < 0.01 {
		t.Errorf("different images distance = %f, want clearly > 0", d)
	}
}

func TestProvider_ExtractTooSmall(t *testing.T) {
	_, err := New().Extract(context.Background(), filled(4, 4, color.White))
	if err != resolver.ErrDescriptorUnavailable {
		t.Errorf("Extract() error = %v, want ErrDescriptorUnavailable", err)
	}
}
