//go:build gocv

package camera

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// Device reads frames from a local capture device through OpenCV.
type Device struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenDevice opens device, which is either a numeric index or a
// device path such as /dev/video0.
func OpenDevice(_ context.Context, device string, width, height int) (Source, error) {
	var id interface{} = device
	if n, err := strconv.Atoi(device); err == nil {
		id = n
	}

	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %s not opened", ErrCameraUnavailable, device)
	}
	if width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	return &Device{capture: capture, mat: gocv.NewMat()}, nil
}

func (d *Device) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if ok := d.capture.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrCameraUnavailable)
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	return img, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.mat.Close(); err != nil {
		return err
	}
	return d.capture.Close()
}
