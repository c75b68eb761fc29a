package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/saturnino-fabrica-de-software/facecam/internal/audit"
	"github.com/saturnino-fabrica-de-software/facecam/internal/facedb"
	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
)

// UnknownSize is the edge length unknown faces are stored at.
const UnknownSize = 100

// UnknownStore persists unrecognised face crops.
type UnknownStore interface {
	List(ctx context.Context) ([]facedb.Entry, error)
	Save(ctx context.Context, data []byte) (facedb.Entry, error)
}

type UnknownConfig struct {
	// Interval is the minimum time between two stored faces.
	Interval time.Duration
	// MaxDistance is the largest perceptual-hash distance, in bits, at
	// which a face counts as a duplicate of a stored one.
	MaxDistance int
}

// UnknownRecorder decides whether an unrecognised face is worth keeping:
// it rate-limits captures and rejects faces whose perceptual hash is close
// to one already on disk.
type UnknownRecorder struct {
	store  UnknownStore
	cfg    UnknownConfig
	audit  audit.Logger
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	last   time.Time
	hashes map[string]*goimagehash.ImageHash
}

type RecorderOption func(*UnknownRecorder)

// WithRecorderAudit records every stored unknown face.
func WithRecorderAudit(l audit.Logger) RecorderOption {
	return func(r *UnknownRecorder) {
		r.audit = l
	}
}

func NewUnknownRecorder(store UnknownStore, cfg UnknownConfig, logger *slog.Logger, opts ...RecorderOption) *UnknownRecorder {
	r := &UnknownRecorder{
		store:  store,
		cfg:    cfg,
		audit:  &audit.NoOpLogger{},
		logger: logger,
		now:    time.Now,
		hashes: make(map[string]*goimagehash.ImageHash),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Offer stores face if the capture interval has elapsed and no stored
// face is a near duplicate. It reports whether the face was saved.
func (r *UnknownRecorder) Offer(ctx context.Context, face image.Image) (facedb.Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.last.IsZero() && now.Sub(r.last) < r.cfg.Interval {
		return facedb.Entry{}, false, nil
	}

	thumb := imaging.Resize(face, UnknownSize, UnknownSize)
	hash, err := goimagehash.PerceptionHash(thumb)
	if err != nil {
		return facedb.Entry{}, false, fmt.Errorf("hash unknown face: %w", err)
	}

	if err := r.refresh(ctx); err != nil {
		return facedb.Entry{}, false, err
	}
	nearest := -1
	for filename, stored := range r.hashes {
		d, err := hash.Distance(stored)
		if err != nil {
			continue
		}
		if nearest < 0 || d < nearest {
			nearest = d
		}
		if d <= r.cfg.MaxDistance {
			r.logger.Debug("unknown face is a duplicate", "of", filename, "distance", d)
			return facedb.Entry{}, false, nil
		}
	}

	data, err := imaging.EncodeJPEG(thumb)
	if err != nil {
		return facedb.Entry{}, false, err
	}
	entry, err := r.store.Save(ctx, data)
	if err != nil {
		return facedb.Entry{}, false, err
	}

	r.last = now
	r.hashes[entry.Filename] = hash
	r.logger.Info("unknown face recorded", "filename", entry.Filename)

	event := audit.Event{
		EventType: audit.EventUnknownCaptured,
		Filename:  entry.Filename,
		Source:    audit.SourcePipeline,
		Success:   true,
	}
	if nearest >= 0 {
		event.Metadata = map[string]string{"hash_distance": strconv.Itoa(nearest)}
	}
	if err := r.audit.Log(ctx, event); err != nil {
		r.logger.Warn("audit log failed", "error", err)
	}
	return entry, true, nil
}

// refresh syncs the hash set with the store: files labelled or deleted
// since the last call are forgotten, new ones are hashed.
func (r *UnknownRecorder) refresh(ctx context.Context) error {
	entries, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list unknown faces: %w", err)
	}

	live := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		live[e.Filename] = struct{}{}
		if _, ok := r.hashes[e.Filename]; ok {
			continue
		}
		hash, err := hashFile(e.Path)
		if err != nil {
			r.logger.Debug("unknown face not hashable", "filename", e.Filename, "error", err)
			continue
		}
		r.hashes[e.Filename] = hash
	}

	for filename := range r.hashes {
		if _, ok := live[filename]; !ok {
			delete(r.hashes, filename)
		}
	}
	return nil
}

func hashFile(path string) (*goimagehash.ImageHash, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	return goimagehash.PerceptionHash(imaging.Resize(img, UnknownSize, UnknownSize))
}
