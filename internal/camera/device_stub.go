//go:build !gocv

package camera

import (
	"context"
	"fmt"
)

// OpenDevice always fails in builds without the gocv tag.
func OpenDevice(_ context.Context, device string, _, _ int) (Source, error) {
	return nil, fmt.Errorf("%w: device %s needs a build with -tags gocv", ErrCameraUnavailable, device)
}
