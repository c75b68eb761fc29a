package facedb

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownStore_SaveListLabel(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	now := fixedNow
	clock := WithClock(func() time.Time { return now })

	unknowns, err := NewUnknownStore(t.TempDir(), logger, clock)
	require.NoError(t, err)
	db, err := New(t.TempDir(), logger, clock)
	require.NoError(t, err)

	first, err := unknowns.Save(ctx, []byte("face-1"))
	require.NoError(t, err)
	assert.Equal(t, "unknown_20240309_140507.jpg", first.Filename)
	assert.True(t, fixedNow.Equal(first.CapturedAt))

	now = fixedNow.Add(time.Minute)
	second, err := unknowns.Save(ctx, []byte("face-2"))
	require.NoError(t, err)

	list, err := unknowns.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Filename, list[0].Filename, "newest first")

	entry, err := unknowns.Label(ctx, first.Filename, db, "grace")
	require.NoError(t, err)
	assert.Equal(t, "grace", entry.Name)

	data, err := os.ReadFile(entry.Path)
	require.NoError(t, err)
	assert.Equal(t, "face-1", string(data))

	_, err = unknowns.Path(first.Filename)
	assert.ErrorIs(t, err, ErrImageNotFound)

	list, err = unknowns.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUnknownStore_LabelErrors(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	unknowns, err := NewUnknownStore(t.TempDir(), logger)
	require.NoError(t, err)
	db, err := New(t.TempDir(), logger)
	require.NoError(t, err)

	_, err = unknowns.Label(ctx, "unknown_missing.jpg", db, "henry")
	assert.ErrorIs(t, err, ErrImageNotFound)

	_, err = unknowns.Label(ctx, "unknown_missing.jpg", db, "")
	assert.ErrorIs(t, err, ErrInvalidLabel)

	assert.ErrorIs(t, unknowns.Delete(ctx, "../x.jpg"), ErrInvalidFilename)
}
