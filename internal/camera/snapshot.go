package camera

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
)

const maxSnapshotBytes = 16 << 20

// Snapshot polls an HTTP endpoint that returns one still image per
// request, as served by most IP cameras.
type Snapshot struct {
	url    string
	client *http.Client
}

// OpenSnapshot fetches one frame to check the endpoint before returning.
func OpenSnapshot(ctx context.Context, url string, timeout time.Duration) (*Snapshot, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &Snapshot{url: url, client: &http.Client{Timeout: timeout}}
	if _, err := s.Read(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Snapshot) Read(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: snapshot status %d", ErrCameraUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %w", ErrCameraUnavailable, err)
	}

	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	return img, nil
}

func (s *Snapshot) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
