package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facecam/internal/pipeline"
)

// frameScript returns its frames in order, then fails.
type frameScript struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *frameScript) Process(ctx context.Context) (pipeline.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.frames) == 0 {
		return pipeline.Frame{}, errors.New("source exhausted")
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return pipeline.Frame{JPEG: frame}, nil
}

func TestStreamHandler_VideoFeed(t *testing.T) {
	// the last part is only terminated by the boundary of the one after it
	source := &frameScript{frames: [][]byte{[]byte("frame-1"), []byte("frame-2"), []byte("frame-3")}}

	app := newTestApp()
	app.Get("/video_feed", NewStreamHandler(context.Background(), source, 0, testLogger()).VideoFeed)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/video_feed", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-cache")

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/x-mixed-replace", mediaType)
	assert.Equal(t, "frame", params["boundary"])

	reader := multipart.NewReader(resp.Body, params["boundary"])
	for _, want := range []string{"frame-1", "frame-2"} {
		part, err := reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))

		data, err := io.ReadAll(part)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}
}

func TestStreamHandler_ServerShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &frameScript{frames: [][]byte{[]byte("never")}}

	app := newTestApp()
	app.Get("/video_feed", NewStreamHandler(ctx, source, 0, testLogger()).VideoFeed)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/video_feed", nil))
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "never")
	assert.True(t, strings.Contains(string(raw), "--frame--"))
}
