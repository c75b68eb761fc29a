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
)

// UnknownStore keeps face crops that matched no identity in a flat
// directory until someone labels or deletes them.
type UnknownStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func NewUnknownStore(dir string, logger *slog.Logger, opts ...Option) (*UnknownStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create unknown faces dir %s: %w", dir, err)
	}
	o := buildOptions(opts)
	return &UnknownStore{dir: dir, logger: logger, now: o.now}, nil
}

func (u *UnknownStore) Dir() string {
	return u.dir
}

// List returns stored unknown faces, newest first.
func (u *UnknownStore) List(ctx context.Context) ([]Entry, error) {
	files, err := os.ReadDir(u.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read unknown faces: %w", err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.IsDir() || strings.HasPrefix(f.Name(), ".") || !AllowedFile(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		e := newEntry("", filepath.Join(u.dir, f.Name()), info)
		e.CapturedAt = capturedAt(strings.TrimPrefix(f.Name(), "unknown_"), info.ModTime())
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CapturedAt.Equal(entries[j].CapturedAt) {
			return entries[i].CapturedAt.After(entries[j].CapturedAt)
		}
		return entries[i].Filename > entries[j].Filename
	})
	return entries, nil
}

// Save stores one JPEG face crop as unknown_<timestamp>.jpg.
func (u *UnknownStore) Save(ctx context.Context, data []byte) (Entry, error) {
	if len(data) == 0 {
		return Entry{}, ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	path, err := freePath(u.dir, "unknown_"+u.now().Format(timestampLayout), ".jpg")
	if err != nil {
		return Entry{}, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat unknown face: %w", err)
	}

	u.logger.Debug("unknown face stored", "filename", info.Name())
	e := newEntry("", path, info)
	e.CapturedAt = capturedAt(strings.TrimPrefix(info.Name(), "unknown_"), info.ModTime())
	return e, nil
}

func (u *UnknownStore) Path(filename string) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	if !AllowedFile(filename) {
		return "", ErrExtensionDenied
	}
	path := filepath.Join(u.dir, filename)
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

func (u *UnknownStore) Delete(ctx context.Context, filename string) error {
	path, err := u.Path(filename)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrImageNotFound
		}
		return fmt.Errorf("delete unknown face %s: %w", filename, err)
	}
	return nil
}

// Saver stores a reference image for an identity. *Store implements it.
type Saver interface {
	Save(ctx context.Context, name, originalFilename string, data []byte) (Entry, error)
}

// Label moves an unknown face into db as a new reference image of name.
func (u *UnknownStore) Label(ctx context.Context, filename string, db Saver, name string) (Entry, error) {
	if _, err := ValidateLabel(name); err != nil {
		return Entry{}, err
	}
	path, err := u.Path(filename)
	if err != nil {
		return Entry{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("read unknown face %s: %w", filename, err)
	}

	entry, err := db.Save(ctx, name, "", data)
	if err != nil {
		return Entry{}, err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		u.logger.Warn("labeled unknown face not removed", "filename", filename, "error", err)
	}

	u.logger.Info("unknown face labeled", "filename", filename, "name", entry.Name, "stored_as", entry.Filename)
	return entry, nil
}
