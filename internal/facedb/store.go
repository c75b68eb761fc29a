// Package facedb stores labeled reference face images on disk, one directory
// per identity.
//
// Writes are atomic per file (temp file and rename); there is no cross-file
// transaction. A recognition pass that lists the database while a
// registration is in flight may miss that one registration.
package facedb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	timestampLayout = "20060102_150405"
	lockFileName    = ".facecam.lock"
)

var (
	ErrInvalidLabel    = errors.New("invalid identity label")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrExtensionDenied = errors.New("file type not allowed")
	ErrImageNotFound   = errors.New("image not found")
	ErrEmptyImage      = errors.New("empty image data")
	ErrDatabaseLocked  = errors.New("face database is locked by another process")
)

// Entry is one reference image of one identity.
type Entry struct {
	Name       string
	Filename   string
	Path       string
	Size       int64
	ModTime    time.Time
	CapturedAt time.Time
}

// Store is a directory-backed face database.
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time

	// serialises filename allocation within this process; other processes
	// are kept out by Lock.
	mu sync.Mutex
}

type options struct {
	now func() time.Time
}

// Option configures a Store or UnknownStore.
type Option func(*options)

// WithClock overrides the clock used to name new files.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func New(root string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create face database %s: %w", root, err)
	}
	o := buildOptions(opts)
	return &Store{
		root:   root,
		logger: logger,
		now:    o.now,
	}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Lock takes a non-blocking advisory lock on the database directory so two
// servers never write into the same tree.
func (s *Store) Lock() (func() error, error) {
	lock := flock.New(filepath.Join(s.root, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire database lock: %w", err)
	}
	if !ok {
		return nil, ErrDatabaseLocked
	}
	return lock.Unlock, nil
}

// List enumerates every reference image, sorted by identity then filename.
// Entries that are not directories, hidden, or not images are skipped.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	identities, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read face database: %w", err)
	}

	var entries []Entry
	for _, identity := range identities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !identity.IsDir() || strings.HasPrefix(identity.Name(), ".") {
			continue
		}
		files, err := s.listIdentity(identity.Name())
		if err != nil {
			return nil, err
		}
		entries = append(entries, files...)
	}
	return entries, nil
}

// Snapshot groups List by identity label.
func (s *Store) Snapshot(ctx context.Context) (map[string][]Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := make(map[string][]Entry)
	for _, e := range entries {
		snapshot[e.Name] = append(snapshot[e.Name], e)
	}
	return snapshot, nil
}

func (s *Store) listIdentity(name string) ([]Entry, error) {
	dir := filepath.Join(s.root, name)
	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// removed between the two reads
			return nil, nil
		}
		return nil, fmt.Errorf("read identity %s: %w", name, err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if f.IsDir() || strings.HasPrefix(f.Name(), ".") || !AllowedFile(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s/%s: %w", name, f.Name(), err)
		}
		entries = append(entries, newEntry(name, filepath.Join(dir, f.Name()), info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })
	return entries, nil
}

func newEntry(name, path string, info fs.FileInfo) Entry {
	return Entry{
		Name:       name,
		Filename:   info.Name(),
		Path:       path,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		CapturedAt: capturedAt(info.Name(), info.ModTime()),
	}
}

// capturedAt reads the timestamp encoded in the filename, falling back to
// the file modification time.
func capturedAt(filename string, modTime time.Time) time.Time {
	if len(filename) >= len(timestampLayout) {
		if t, err := time.ParseInLocation(timestampLayout, filename[:len(timestampLayout)], time.Local); err == nil {
			return t
		}
	}
	return modTime
}

// Save stores data as a new reference image of identity name. The stored
// filename is the capture timestamp, followed by the secured original name
// when one is given; a numeric suffix keeps same-second saves apart.
func (s *Store) Save(ctx context.Context, name, originalFilename string, data []byte) (Entry, error) {
	label, err := ValidateLabel(name)
	if err != nil {
		return Entry{}, err
	}
	if len(data) == 0 {
		return Entry{}, ErrEmptyImage
	}

	base := s.now().Format(timestampLayout)
	ext := ".jpg"
	if originalFilename != "" {
		if !AllowedFile(originalFilename) {
			return Entry{}, ErrExtensionDenied
		}
		secured := SecureFilename(originalFilename)
		if secured == "" || !AllowedFile(secured) {
			secured = "image" + strings.ToLower(filepath.Ext(originalFilename))
		}
		ext = filepath.Ext(secured)
		base = base + "_" + strings.TrimSuffix(secured, ext)
	}

	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	dir := filepath.Join(s.root, label)

	// Delete removes an emptied identity directory under mu, so the
	// directory must be created inside the same critical section.
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("create identity %s: %w", label, err)
	}
	path, err := freePath(dir, base, ext)
	if err != nil {
		return Entry{}, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return Entry{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat saved image: %w", err)
	}

	s.logger.Info("reference image saved", "name", label, "filename", info.Name(), "bytes", len(data))
	return newEntry(label, path, info), nil
}

func freePath(dir, base, ext string) (string, error) {
	for n := 1; n < 1000; n++ {
		name := base + ext
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(dir, name)
		if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("no free filename for %s%s", base, ext)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod image: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename image: %w", err)
	}
	return nil
}

// Path returns the on-disk location of a stored image after validating both
// path components.
func (s *Store) Path(name, filename string) (string, error) {
	if _, err := ValidateLabel(name); err != nil || strings.TrimSpace(name) != name {
		return "", ErrInvalidLabel
	}
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	if !AllowedFile(filename) {
		return "", ErrExtensionDenied
	}

	path := filepath.Join(s.root, name, filename)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrImageNotFound
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", ErrImageNotFound
	}
	return path, nil
}

// Delete removes one reference image. The identity directory goes with its
// last image.
func (s *Store) Delete(ctx context.Context, name, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := ValidateLabel(name); err != nil || strings.TrimSpace(name) != name {
		return ErrInvalidLabel
	}
	if err := validateFilename(filename); err != nil {
		return err
	}

	dir := filepath.Join(s.root, name)
	path := filepath.Join(dir, filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrImageNotFound
		}
		return fmt.Errorf("delete %s/%s: %w", name, filename, err)
	}

	remaining, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read identity %s: %w", name, err)
	}
	if len(remaining) == 0 {
		if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove identity %s: %w", name, err)
		}
		s.logger.Info("identity removed", "name", name)
	}

	s.logger.Info("reference image deleted", "name", name, "filename", filename)
	return nil
}
