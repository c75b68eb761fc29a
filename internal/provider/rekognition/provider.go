package rekognition

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
)

// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
const maxImageSize = 5 * 1024 * 1024

// Detector finds faces with the Rekognition DetectFaces API. No face data is
// indexed or stored on the AWS side.
type Detector struct {
	api    DetectFacesAPI
	config Config
}

// NewDetector loads AWS credentials and returns a detector for cfg.Region.
func NewDetector(ctx context.Context, cfg Config) (*Detector, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewDetectorWithAPI(client, cfg), nil
}

// NewDetectorWithAPI builds a detector around an existing API client.
func NewDetectorWithAPI(api DetectFacesAPI, cfg Config) *Detector {
	return &Detector{api: api, config: cfg}
}

func (d *Detector) Name() string {
	return "rekognition"
}

// Detect returns faces with a confidence of at least MinConfidence. Boxes
// come back from AWS as frame ratios and are converted to pixels.
func (d *Detector) Detect(ctx context.Context, frame image.Image) ([]provider.DetectedFace, error) {
	data, err := imaging.EncodeJPEG(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(data), maxImageSize)
	}

	output, err := d.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: data},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", classifyError(err))
	}

	b := frame.Bounds()
	faces := make([]provider.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil || detail.Confidence == nil {
			continue
		}
		if *detail.Confidence < d.config.MinConfidence {
			continue
		}
		box := toRect(detail.BoundingBox, b)
		if box.Empty() {
			continue
		}
		faces = append(faces, provider.DetectedFace{
			Box:        box,
			Confidence: float64(*detail.Confidence) / 100,
		})
	}

	return faces, nil
}

func toRect(bb *types.BoundingBox, frame image.Rectangle) image.Rectangle {
	var left, top, width, height float32
	if bb.Left != nil {
		left = *bb.Left
	}
	if bb.Top != nil {
		top = *bb.Top
	}
	if bb.Width != nil {
		width = *bb.Width
	}
	if bb.Height != nil {
		height = *bb.Height
	}

	w, h := float64(frame.Dx()), float64(frame.Dy())
	r := image.Rect(
		int(math.Round(float64(left)*w)),
		int(math.Round(float64(top)*h)),
		int(math.Round(float64(left+width)*w)),
		int(math.Round(float64(top+height)*h)),
	).Add(frame.Min)
	return r.Intersect(frame)
}

var _ provider.Detector = (*Detector)(nil)
