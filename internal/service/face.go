package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/saturnino-fabrica-de-software/facecam/internal/audit"
	"github.com/saturnino-fabrica-de-software/facecam/internal/camera"
	"github.com/saturnino-fabrica-de-software/facecam/internal/domain"
	"github.com/saturnino-fabrica-de-software/facecam/internal/facedb"
	"github.com/saturnino-fabrica-de-software/facecam/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facecam/internal/ws"
)

type FaceDatabaseInterface interface {
	List(ctx context.Context) ([]facedb.Entry, error)
	Save(ctx context.Context, name, originalFilename string, data []byte) (facedb.Entry, error)
	Path(name, filename string) (string, error)
	Delete(ctx context.Context, name, filename string) error
}

type UnknownFacesInterface interface {
	List(ctx context.Context) ([]facedb.Entry, error)
	Path(filename string) (string, error)
	Label(ctx context.Context, filename string, db facedb.Saver, name string) (facedb.Entry, error)
}

type CameraInterface interface {
	Start(ctx context.Context) error
	Stop() error
	Active() bool
	ToggleRecognition() bool
	RecognitionEnabled() bool
}

// FrameCapturer grabs the current camera frame as a JPEG.
type FrameCapturer interface {
	Capture(ctx context.Context) ([]byte, error)
}

type EventPublisher interface {
	Publish(eventType ws.EventType, data interface{})
}

type FaceService struct {
	db        FaceDatabaseInterface
	unknown   UnknownFacesInterface
	camera    CameraInterface
	capturer  FrameCapturer
	publisher EventPublisher
	audit     audit.Logger
	logger    *slog.Logger
}

type Option func(*FaceService)

// WithAuditLogger records every stored, deleted or labeled image.
func WithAuditLogger(l audit.Logger) Option {
	return func(s *FaceService) {
		s.audit = l
	}
}

func NewFaceService(
	db FaceDatabaseInterface,
	unknown UnknownFacesInterface,
	cam CameraInterface,
	capturer FrameCapturer,
	publisher EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *FaceService {
	s := &FaceService{
		db:        db,
		unknown:   unknown,
		camera:    cam,
		capturer:  capturer,
		publisher: publisher,
		audit:     &audit.NoOpLogger{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FaceService) StartCamera(ctx context.Context) error {
	wasActive := s.camera.Active()
	if err := s.camera.Start(ctx); err != nil {
		return domain.ErrCameraUnavailable.WithError(err)
	}
	if !wasActive {
		s.publish(ws.EventCameraStarted, nil)
	}
	return nil
}

func (s *FaceService) StopCamera(ctx context.Context) error {
	wasActive := s.camera.Active()
	if err := s.camera.Stop(); err != nil {
		return domain.ErrInternal.WithError(err)
	}
	if wasActive {
		s.publish(ws.EventCameraStopped, nil)
	}
	return nil
}

// ToggleRecognition flips the recognition flag and returns its new value.
func (s *FaceService) ToggleRecognition(ctx context.Context) bool {
	enabled := s.camera.ToggleRecognition()
	s.logger.Info("recognition toggled", "enabled", enabled)
	s.publish(ws.EventRecognitionToggled, map[string]bool{"enabled": enabled})
	return enabled
}

func (s *FaceService) CameraActive() bool {
	return s.camera.Active()
}

func (s *FaceService) RecognitionEnabled() bool {
	return s.camera.RecognitionEnabled()
}

// CaptureFace stores the current camera frame as a reference image of name.
func (s *FaceService) CaptureFace(ctx context.Context, name string) (*domain.RegisteredFace, error) {
	if !s.camera.Active() {
		return nil, domain.ErrCameraInactive
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}

	data, err := s.capturer.Capture(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrCameraOff) {
			return nil, domain.ErrCameraInactive
		}
		return nil, domain.ErrCaptureFailed.WithError(err)
	}

	entry, err := s.db.Save(ctx, name, "", data)
	s.record(ctx, audit.EventFaceCaptured, name, entry.Filename, err)
	if err != nil {
		return nil, mapStorageError(err)
	}

	face := registeredFace(entry)
	s.publish(ws.EventFaceRegistered, face)
	return face, nil
}

// UploadFace stores an uploaded image as a reference image of name.
func (s *FaceService) UploadFace(ctx context.Context, name, filename string, data []byte) (*domain.RegisteredFace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if filename == "" {
		return nil, domain.ErrNoSelectedFile
	}
	if !facedb.AllowedFile(filename) {
		return nil, domain.ErrFileTypeNotAllowed
	}
	if _, err := imaging.Decode(data); err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	entry, err := s.db.Save(ctx, name, filename, data)
	s.record(ctx, audit.EventFaceUploaded, name, entry.Filename, err)
	if err != nil {
		return nil, mapStorageError(err)
	}

	face := registeredFace(entry)
	s.publish(ws.EventFaceRegistered, face)
	return face, nil
}

func (s *FaceService) ListFaces(ctx context.Context) ([]domain.RegisteredFace, error) {
	entries, err := s.db.List(ctx)
	if err != nil {
		return nil, domain.ErrStorage.WithError(err)
	}

	faces := make([]domain.RegisteredFace, 0, len(entries))
	for _, e := range entries {
		faces = append(faces, *registeredFace(e))
	}
	return faces, nil
}

// FaceImagePath resolves a stored reference image to a file path.
func (s *FaceService) FaceImagePath(name, filename string) (string, error) {
	path, err := s.db.Path(name, filename)
	if err != nil {
		return "", mapStorageError(err)
	}
	return path, nil
}

func (s *FaceService) DeleteFace(ctx context.Context, name, filename string) error {
	if name == "" || filename == "" {
		return domain.ErrNameAndFilenameRequired
	}

	err := s.db.Delete(ctx, name, filename)
	s.record(ctx, audit.EventFaceDeleted, name, filename, err)
	if err != nil {
		if errors.Is(err, facedb.ErrImageNotFound) || errors.Is(err, facedb.ErrInvalidLabel) ||
			errors.Is(err, facedb.ErrInvalidFilename) || errors.Is(err, facedb.ErrExtensionDenied) {
			return domain.ErrNotFound
		}
		return domain.ErrStorage.
			WithMessage(fmt.Sprintf("Error deleting file: %v", err)).
			WithError(err)
	}

	s.publish(ws.EventFaceDeleted, map[string]string{"name": name, "filename": filename})
	return nil
}

func (s *FaceService) ListUnknown(ctx context.Context) ([]domain.UnknownFace, error) {
	entries, err := s.unknown.List(ctx)
	if err != nil {
		return nil, domain.ErrStorage.WithError(err)
	}

	faces := make([]domain.UnknownFace, 0, len(entries))
	for _, e := range entries {
		faces = append(faces, domain.UnknownFace{
			Filename:   e.Filename,
			ImagePath:  "/unknown_image/" + url.PathEscape(e.Filename),
			CapturedAt: e.CapturedAt,
		})
	}
	return faces, nil
}

func (s *FaceService) UnknownImagePath(filename string) (string, error) {
	path, err := s.unknown.Path(filename)
	if err != nil {
		return "", mapStorageError(err)
	}
	return path, nil
}

// LabelUnknown moves a stored unknown face into identity name.
func (s *FaceService) LabelUnknown(ctx context.Context, filename, name string) (*domain.RegisteredFace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if filename == "" {
		return nil, domain.ErrNoSelectedFile
	}

	entry, err := s.unknown.Label(ctx, filename, s.db, name)
	s.record(ctx, audit.EventUnknownLabeled, name, filename, err)
	if err != nil {
		return nil, mapStorageError(err)
	}

	face := registeredFace(entry)
	s.publish(ws.EventUnknownLabeled, map[string]string{
		"filename": filename,
		"name":     face.Name,
		"stored":   face.Filename,
	})
	return face, nil
}

func (s *FaceService) publish(eventType ws.EventType, data interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(eventType, data)
	}
}

func (s *FaceService) record(ctx context.Context, eventType audit.EventType, name, filename string, err error) {
	event := audit.Event{
		EventType: eventType,
		Name:      name,
		Filename:  filename,
		Source:    audit.SourceHTTP,
		Success:   err == nil,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if aerr := s.audit.Log(ctx, event); aerr != nil {
		s.logger.Warn("audit log failed", "event_type", eventType, "error", aerr)
	}
}

func registeredFace(e facedb.Entry) *domain.RegisteredFace {
	return &domain.RegisteredFace{
		Name:      e.Name,
		ImagePath: fmt.Sprintf("/face_image/%s/%s", url.PathEscape(e.Name), url.PathEscape(e.Filename)),
		Filename:  e.Filename,
	}
}

func mapStorageError(err error) error {
	switch {
	case errors.Is(err, facedb.ErrImageNotFound):
		return domain.ErrNotFound
	case errors.Is(err, facedb.ErrExtensionDenied):
		return domain.ErrFileTypeNotAllowed
	case errors.Is(err, facedb.ErrInvalidLabel):
		return domain.ErrInvalidRequest.WithMessage("Invalid person name").WithError(err)
	case errors.Is(err, facedb.ErrInvalidFilename):
		return domain.ErrInvalidRequest.WithMessage("Invalid filename").WithError(err)
	case errors.Is(err, facedb.ErrEmptyImage):
		return domain.ErrInvalidImage
	default:
		return domain.ErrStorage.WithError(err)
	}
}
