package pipeline

import (
	"context"
	"image"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facecam/internal/audit"
	"github.com/saturnino-fabrica-de-software/facecam/internal/facedb"
)

// blockFace is a 64x64 grayscale image of random 8x8 blocks.
func blockFace(seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for by := 0; by < 8; by++ {
		for bx := 0; bx < 8; bx++ {
			v := uint8(rng.Intn(256))
			for y := by * 8; y < by*8+8; y++ {
				for x := bx * 8; x < bx*8+8; x++ {
					i := img.PixOffset(x, y)
					img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
				}
			}
		}
	}
	return img
}

func newRecorder(t *testing.T, cfg UnknownConfig) (*UnknownRecorder, *facedb.UnknownStore, *time.Time) {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store, err := facedb.NewUnknownStore(t.TempDir(), discardLogger(), facedb.WithClock(clock))
	require.NoError(t, err)

	r := NewUnknownRecorder(store, cfg, discardLogger())
	r.now = clock
	return r, store, &now
}

func TestUnknownRecorder_Interval(t *testing.T) {
	r, store, now := newRecorder(t, UnknownConfig{Interval: 10 * time.Second, MaxDistance: 8})
	ctx := context.Background()

	entry, saved, err := r.Offer(ctx, blockFace(1))
	require.NoError(t, err)
	assert.True(t, saved)
	assert.NotEmpty(t, entry.Filename)

	_, saved, err = r.Offer(ctx, blockFace(2))
	require.NoError(t, err)
	assert.False(t, saved, "inside the capture interval")

	*now = now.Add(11 * time.Second)
	_, saved, err = r.Offer(ctx, blockFace(2))
	require.NoError(t, err)
	assert.True(t, saved)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestUnknownRecorder_Dedup(t *testing.T) {
	r, store, now := newRecorder(t, UnknownConfig{Interval: time.Second, MaxDistance: 8})
	ctx := context.Background()

	_, saved, err := r.Offer(ctx, blockFace(1))
	require.NoError(t, err)
	require.True(t, saved)

	*now = now.Add(time.Minute)
	_, saved, err = r.Offer(ctx, blockFace(1))
	require.NoError(t, err)
	assert.False(t, saved, "same face is a duplicate")

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUnknownRecorder_ForgetsRemovedFaces(t *testing.T) {
	r, store, now := newRecorder(t, UnknownConfig{Interval: time.Second, MaxDistance: 8})
	ctx := context.Background()

	entry, saved, err := r.Offer(ctx, blockFace(1))
	require.NoError(t, err)
	require.True(t, saved)

	require.NoError(t, store.Delete(ctx, entry.Filename))

	*now = now.Add(time.Minute)
	_, saved, err = r.Offer(ctx, blockFace(1))
	require.NoError(t, err)
	assert.True(t, saved, "a deleted face no longer blocks capture")
}

func TestUnknownRecorder_StoredAsThumbnail(t *testing.T) {
	r, _, _ := newRecorder(t, UnknownConfig{})
	entry, saved, err := r.Offer(context.Background(), blockFace(1))
	require.NoError(t, err)
	require.True(t, saved)

	hash, err := hashFile(entry.Path)
	require.NoError(t, err)
	assert.NotNil(t, hash)
}

type auditTrail struct {
	events []audit.Event
}

func (a *auditTrail) Log(_ context.Context, event audit.Event) error {
	a.events = append(a.events, event)
	return nil
}

func TestUnknownRecorder_Audit(t *testing.T) {
	r, _, now := newRecorder(t, UnknownConfig{Interval: time.Second, MaxDistance: 8})
	trail := &auditTrail{}
	WithRecorderAudit(trail)(r)
	ctx := context.Background()

	first, saved, err := r.Offer(ctx, blockFace(1))
	require.NoError(t, err)
	require.True(t, saved)

	*now = now.Add(time.Minute)
	_, saved, err = r.Offer(ctx, blockFace(1))
	require.NoError(t, err)
	require.False(t, saved)

	*now = now.Add(time.Minute)
	_, saved, err = r.Offer(ctx, blockFace(7))
	require.NoError(t, err)
	require.True(t, saved)

	require.Len(t, trail.events, 2, "duplicates are not recorded")
	assert.Equal(t, audit.EventUnknownCaptured, trail.events[0].EventType)
	assert.Equal(t, first.Filename, trail.events[0].Filename)
	assert.Equal(t, audit.SourcePipeline, trail.events[0].Source)
	assert.Nil(t, trail.events[0].Metadata, "nothing to compare the first face against")
	assert.Contains(t, trail.events[1].Metadata, "hash_distance")
}
