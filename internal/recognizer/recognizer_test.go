package recognizer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facecam/internal/facedb"
	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
)

// MockExtractor is a testify mock of provider.Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Name() string {
	return "mock-extractor"
}

func (m *MockExtractor) Extract(ctx context.Context, face image.Image) (resolver.Descriptor, error) {
	args := m.Called(ctx, face)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(resolver.Descriptor), args.Error(1)
}

// colorExtractor describes an image by the colour of its first pixel.
type colorExtractor struct {
	calls atomic.Int32
	fail  color.RGBA
}

func (e *colorExtractor) Name() string { return "color" }

func (e *colorExtractor) Extract(_ context.Context, face image.Image) (resolver.Descriptor, error) {
	e.calls.Add(1)
	r, g, b, _ := face.At(face.Bounds().Min.X, face.Bounds().Min.Y).RGBA()
	c := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
	if c == e.fail {
		return nil, resolver.ErrDescriptorUnavailable
	}
	return resolver.Descriptor{float64(c.R), float64(c.G), float64(c.B)}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(c)))
	return buf.Bytes()
}

func newStore(t *testing.T) *facedb.Store {
	t.Helper()
	s, err := facedb.New(t.TempDir(), discardLogger())
	require.NoError(t, err)
	return s
}

var (
	red   = color.RGBA{R: 200, A: 255}
	green = color.RGBA{G: 200, A: 255}
	blue  = color.RGBA{B: 200, A: 255}
)

func TestRecognizer_EmptyDatabaseSkipsExtractor(t *testing.T) {
	extractor := new(MockExtractor)
	r := New(newStore(t), extractor, resolver.Cosine, 0, discardLogger())

	m, err := r.Identify(context.Background(), solid(red))
	require.NoError(t, err)
	assert.False(t, m.Matched)
	assert.Equal(t, resolver.PolicyCosine, m.Policy)

	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestRecognizer_Identify(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Save(ctx, "alice", "a.png", pngBytes(t, red))
	require.NoError(t, err)
	_, err = store.Save(ctx, "bob", "b.png", pngBytes(t, green))
	require.NoError(t, err)

	extractor := &colorExtractor{}
	r := New(store, extractor, resolver.Euclidean, 50, discardLogger())

	m, err := r.Identify(ctx, solid(color.RGBA{R: 190, G: 10, A: 255}))
	require.NoError(t, err)
	assert.True(t, m.Matched)
	assert.Equal(t, "alice", m.Label)
	assert.Greater(t, m.Confidence, 0.5)

	m, err = r.Identify(ctx, solid(blue))
	require.NoError(t, err)
	assert.False(t, m.Matched)
}

func TestRecognizer_CachesReferenceDescriptors(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Save(ctx, "alice", "a.png", pngBytes(t, red))
	require.NoError(t, err)
	_, err = store.Save(ctx, "alice", "a2.png", pngBytes(t, red))
	require.NoError(t, err)

	extractor := &colorExtractor{}
	r := New(store, extractor, resolver.Euclidean, 50, discardLogger())

	_, err = r.Identify(ctx, solid(red))
	require.NoError(t, err)
	assert.Equal(t, int32(3), extractor.calls.Load(), "probe plus two references")
	assert.Equal(t, 2, r.CacheSize())

	_, err = r.Identify(ctx, solid(red))
	require.NoError(t, err)
	assert.Equal(t, int32(4), extractor.calls.Load(), "references come from the cache")
}

func TestRecognizer_PrunesDeletedReferences(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	a, err := store.Save(ctx, "alice", "a.png", pngBytes(t, red))
	require.NoError(t, err)
	_, err = store.Save(ctx, "bob", "b.png", pngBytes(t, green))
	require.NoError(t, err)

	r := New(store, &colorExtractor{}, resolver.Euclidean, 50, discardLogger())
	_, err = r.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, r.CacheSize())

	require.NoError(t, store.Delete(ctx, "alice", a.Filename))

	m, err := r.Identify(ctx, solid(red))
	require.NoError(t, err)
	assert.False(t, m.Matched, "deleted identity must not match")
	assert.Equal(t, 1, r.CacheSize())
}

func TestRecognizer_SkipsUnreadableReferences(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Save(ctx, "alice", "a.png", pngBytes(t, red))
	require.NoError(t, err)
	_, err = store.Save(ctx, "broken", "x.png", []byte("not a png"))
	require.NoError(t, err)
	_, err = store.Save(ctx, "faceless", "f.png", pngBytes(t, blue))
	require.NoError(t, err)

	extractor := &colorExtractor{fail: blue}
	r := New(store, extractor, resolver.Euclidean, 50, discardLogger())

	stats, err := r.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, WarmStats{References: 3, Cached: 1, Failed: 2}, stats)

	m, err := r.Identify(ctx, solid(red))
	require.NoError(t, err)
	assert.Equal(t, "alice", m.Label)
}

func TestRecognizer_SkipsOversizedReferences(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Save(ctx, "alice", "a.png", pngBytes(t, red))
	require.NoError(t, err)
	_, err = store.Save(ctx, "bomb", "huge.gif", []byte("GIF89a\xff\xff\xff\xff\x00\x00\x00"))
	require.NoError(t, err)

	extractor := &colorExtractor{}
	r := New(store, extractor, resolver.Euclidean, 50, discardLogger())

	stats, err := r.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, WarmStats{References: 2, Cached: 1, Failed: 1}, stats)
	assert.Equal(t, int32(1), extractor.calls.Load())
}

func TestRecognizer_ProbeErrors(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := store.Save(ctx, "alice", "a.png", pngBytes(t, red))
	require.NoError(t, err)

	t.Run("descriptor unavailable", func(t *testing.T) {
		extractor := new(MockExtractor)
		extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, resolver.ErrDescriptorUnavailable).Once()

		r := New(store, extractor, resolver.Cosine, 0, discardLogger())
		_, err := r.Identify(ctx, solid(red))
		assert.ErrorIs(t, err, resolver.ErrDescriptorUnavailable)
		extractor.AssertExpectations(t)
	})

	t.Run("extractor failure", func(t *testing.T) {
		boom := errors.New("deepface down")
		extractor := new(MockExtractor)
		extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, boom).Once()

		r := New(store, extractor, resolver.Cosine, 0, discardLogger())
		_, err := r.Identify(ctx, solid(red))
		assert.ErrorIs(t, err, boom)
	})
}

func TestNew_DefaultThreshold(t *testing.T) {
	r := New(newStore(t), &colorExtractor{}, resolver.TemplateCorrelation, 0, discardLogger())
	assert.Equal(t, 0.6, r.Threshold())

	r = New(newStore(t), &colorExtractor{}, resolver.Cosine, 0.3, discardLogger())
	assert.Equal(t, 0.3, r.Threshold())
	assert.Equal(t, resolver.Cosine, r.Policy())
}
