package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/facecam/internal/audit"
	"github.com/saturnino-fabrica-de-software/facecam/internal/config"
	"github.com/saturnino-fabrica-de-software/facecam/internal/face"
	"github.com/saturnino-fabrica-de-software/facecam/internal/facedb"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/recognizer"
)

type commandContext struct {
	databaseFlag *string
	verboseFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(databaseFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		databaseFlag: databaseFlag,
		verboseFlag:  verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.configErr = fmt.Errorf("read .env: %w", err)
			return
		}
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if c.databaseFlag != nil {
			if path := strings.TrimSpace(*c.databaseFlag); path != "" {
				cfg.FaceDatabase = path
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes to stderr with --verbose and discards otherwise, so table
// output stays clean.
func (c *commandContext) logger() *slog.Logger {
	cfg, _ := c.ensureConfig()
	env := "development"
	if cfg != nil {
		env = cfg.Environment
	}
	if c.verboseFlag != nil && *c.verboseFlag {
		return config.NewLoggerTo(os.Stderr, env)
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (c *commandContext) store() (*facedb.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return facedb.New(cfg.FaceDatabase, c.logger())
}

// withLockedStore runs fn while holding the database lock, failing fast
// when a server owns the database.
func (c *commandContext) withLockedStore(fn func(*facedb.Store) error) error {
	store, err := c.store()
	if err != nil {
		return err
	}
	unlock, err := store.Lock()
	if err != nil {
		if errors.Is(err, facedb.ErrDatabaseLocked) {
			return fmt.Errorf("%w: stop the server before modifying %s", err, store.Root())
		}
		return err
	}
	defer func() { _ = unlock() }()

	return fn(store)
}

// record writes a CLI change to the audit trail. The trail follows the
// logger, so it is only visible with --verbose.
func (c *commandContext) record(ctx context.Context, eventType audit.EventType, name, filename string, err error) {
	event := audit.Event{
		EventType: eventType,
		Name:      name,
		Filename:  filename,
		Source:    audit.SourceCLI,
		Success:   err == nil,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = audit.NewSlogLogger(c.logger()).Log(ctx, event)
}

type recognitionStack struct {
	store      *facedb.Store
	detector   provider.Detector
	recognizer *recognizer.Recognizer
}

// recognition builds the extractor, detector and recognizer selected by the
// configuration. The detector is nil with noDetect.
func (c *commandContext) recognition(ctx context.Context, noDetect bool) (*recognitionStack, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.store()
	if err != nil {
		return nil, err
	}

	extractor, err := face.NewExtractor(cfg)
	if err != nil {
		return nil, err
	}

	var detector provider.Detector
	if !noDetect {
		detector, err = face.NewDetector(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	rec, err := face.NewRecognizer(cfg, store, extractor, detector, c.logger())
	if err != nil {
		return nil, err
	}

	return &recognitionStack{store: store, detector: detector, recognizer: rec}, nil
}
