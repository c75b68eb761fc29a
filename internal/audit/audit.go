// Package audit records every change to stored biometric images.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventFaceCaptured    EventType = "FACE_CAPTURED"
	EventFaceUploaded    EventType = "FACE_UPLOADED"
	EventFaceDeleted     EventType = "FACE_DELETED"
	EventUnknownCaptured EventType = "UNKNOWN_CAPTURED"
	EventUnknownLabeled  EventType = "UNKNOWN_LABELED"
)

// Source names the surface a change came through.
const (
	SourceHTTP     = "http"
	SourceCLI      = "cli"
	SourcePipeline = "pipeline"
)

// Event is one change to the face database or the unknown-face store.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType EventType         `json:"event_type"`
	Name      string            `json:"name,omitempty"`
	Filename  string            `json:"filename,omitempty"`
	Source    string            `json:"source"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger writes events as structured log records.
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log fills in a missing ID and timestamp and records the event.
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("name", event.Name),
		slog.String("source", event.Source),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpLogger discards events.
type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
