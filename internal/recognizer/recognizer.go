// Package recognizer binds the face database, a feature extractor and the
// identity resolver into a single Identify call.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/saturnino-fabrica-de-software/facecam/internal/facedb"
	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
)

// Database lists the stored reference images.
type Database interface {
	List(ctx context.Context) ([]facedb.Entry, error)
}

type cacheKey struct {
	path      string
	size      int64
	modTime   int64
	extractor string
}

type Recognizer struct {
	db        Database
	extractor provider.Extractor
	detector  provider.Detector
	policy    resolver.Policy
	threshold float64
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[cacheKey]resolver.Descriptor
}

type Option func(*Recognizer)

// WithDetector crops reference images to their largest detected face before
// extraction, so stored full frames compare like live face crops.
func WithDetector(d provider.Detector) Option {
	return func(r *Recognizer) {
		r.detector = d
	}
}

// New returns a recognizer. A threshold <= 0 selects the policy default.
func New(db Database, extractor provider.Extractor, policy resolver.Policy, threshold float64, logger *slog.Logger, opts ...Option) *Recognizer {
	if threshold <= 0 {
		threshold = resolver.DefaultThreshold(policy)
	}
	r := &Recognizer{
		db:        db,
		extractor: extractor,
		policy:    policy,
		threshold: threshold,
		logger:    logger,
		cache:     make(map[cacheKey]resolver.Descriptor),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recognizer) Policy() resolver.Policy {
	return r.policy
}

func (r *Recognizer) Threshold() float64 {
	return r.threshold
}

func (r *Recognizer) Extractor() provider.Extractor {
	return r.extractor
}

// Identify resolves one face crop against the current database contents.
// An empty database answers "no match" without calling the extractor.
func (r *Recognizer) Identify(ctx context.Context, face image.Image) (resolver.Match, error) {
	entries, err := r.db.List(ctx)
	if err != nil {
		return resolver.Match{}, fmt.Errorf("list face database: %w", err)
	}
	if len(entries) == 0 {
		return resolver.Match{Policy: r.policy.Name()}, nil
	}

	probe, err := r.extractor.Extract(ctx, face)
	if err != nil {
		return resolver.Match{}, err
	}

	snapshot, err := r.snapshot(ctx, entries)
	if err != nil {
		return resolver.Match{}, err
	}

	return resolver.Resolve(probe, snapshot, r.policy, r.threshold)
}

// WarmStats reports the outcome of a Warm pass.
type WarmStats struct {
	References int
	Cached     int
	Failed     int
}

// Warm computes descriptors for every reference image not yet cached.
func (r *Recognizer) Warm(ctx context.Context) (WarmStats, error) {
	entries, err := r.db.List(ctx)
	if err != nil {
		return WarmStats{}, fmt.Errorf("list face database: %w", err)
	}
	snapshot, err := r.snapshot(ctx, entries)
	if err != nil {
		return WarmStats{}, err
	}

	stats := WarmStats{References: len(entries), Cached: snapshot.Len()}
	stats.Failed = stats.References - stats.Cached
	r.logger.Info("descriptor cache warmed",
		"references", stats.References,
		"cached", stats.Cached,
		"failed", stats.Failed,
		"extractor", r.extractor.Name(),
	)
	return stats, nil
}

// snapshot builds label -> descriptors for entries, reusing cached
// descriptors and pruning cache entries for files that are gone or changed.
func (r *Recognizer) snapshot(ctx context.Context, entries []facedb.Entry) (resolver.Snapshot, error) {
	name := r.extractor.Name()
	live := make(map[cacheKey]struct{}, len(entries))
	snapshot := make(resolver.Snapshot)

	for _, e := range entries {
		key := cacheKey{path: e.Path, size: e.Size, modTime: e.ModTime.UnixNano(), extractor: name}
		live[key] = struct{}{}

		r.mu.Lock()
		d, ok := r.cache[key]
		r.mu.Unlock()

		if !ok {
			var err error
			d, err = r.describe(ctx, e)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				r.logger.Warn("reference image skipped",
					"name", e.Name,
					"filename", e.Filename,
					"error", err,
				)
				continue
			}
			r.mu.Lock()
			r.cache[key] = d
			r.mu.Unlock()
		}

		snapshot[e.Name] = append(snapshot[e.Name], d)
	}

	r.mu.Lock()
	for key := range r.cache {
		if _, ok := live[key]; !ok {
			delete(r.cache, key)
		}
	}
	r.mu.Unlock()

	return snapshot, nil
}

func (r *Recognizer) describe(ctx context.Context, e facedb.Entry) (resolver.Descriptor, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	if r.detector != nil {
		img = r.largestFace(ctx, img)
	}

	d, err := r.extractor.Extract(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(d) == 0 {
		return nil, resolver.ErrDescriptorUnavailable
	}
	return d, nil
}

// largestFace crops img to its largest detected face, or returns img
// unchanged when detection finds nothing.
func (r *Recognizer) largestFace(ctx context.Context, img image.Image) image.Image {
	faces, err := r.detector.Detect(ctx, img)
	if err != nil || len(faces) == 0 {
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Debug("reference detection failed, using full image", "error", err)
		}
		return img
	}
	sort.SliceStable(faces, func(i, j int) bool {
		a, b := faces[i].Box, faces[j].Box
		return a.Dx()*a.Dy() > b.Dx()*b.Dy()
	})
	crop, err := imaging.Crop(img, provider.Square(faces[0].Box))
	if err != nil {
		return img
	}
	return crop
}

// CacheSize returns the number of cached reference descriptors.
func (r *Recognizer) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
