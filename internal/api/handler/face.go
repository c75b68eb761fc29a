package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facecam/internal/domain"
)

// FaceService manages the reference image database.
type FaceService interface {
	CameraActive() bool
	CaptureFace(ctx context.Context, name string) (*domain.RegisteredFace, error)
	UploadFace(ctx context.Context, name, filename string, data []byte) (*domain.RegisteredFace, error)
	ListFaces(ctx context.Context) ([]domain.RegisteredFace, error)
	FaceImagePath(name, filename string) (string, error)
	DeleteFace(ctx context.Context, name, filename string) error
}

type CaptureRequest struct {
	Name string `json:"name" form:"name" validate:"notblank"`
}

type DeleteRequest struct {
	Name     string `json:"name" form:"name" validate:"required"`
	Filename string `json:"filename" form:"filename" validate:"required"`
}

// StoredFaceResponse is returned after a capture, upload or label.
type StoredFaceResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ImagePath string `json:"image_path"`
}

type FacesResponse struct {
	Faces []domain.RegisteredFace `json:"faces"`
}

type FaceHandler struct {
	service FaceService
	logger  *slog.Logger
}

func NewFaceHandler(service FaceService, logger *slog.Logger) *FaceHandler {
	return &FaceHandler{
		service: service,
		logger:  logger,
	}
}

// Capture POST /capture_face - register the current camera frame
func (h *FaceHandler) Capture(c *fiber.Ctx) error {
	var req CaptureRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if !h.service.CameraActive() {
		return domain.ErrCameraInactive
	}
	if err := validateRequest(req, domain.ErrNameRequired, nil); err != nil {
		return err
	}

	face, err := h.service.CaptureFace(c.UserContext(), req.Name)
	if err != nil {
		return err
	}

	h.logger.Info("face captured", "name", face.Name, "filename", face.Filename)

	return c.JSON(StoredFaceResponse{
		Status:    "success",
		Message:   "Face captured successfully",
		ImagePath: face.ImagePath,
	})
}

// Upload POST /upload_face - register an uploaded image (multipart: name, file)
func (h *FaceHandler) Upload(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return domain.ErrNameRequired
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return domain.ErrFileRequired
	}
	if fileHeader.Filename == "" {
		return domain.ErrNoSelectedFile
	}

	file, err := fileHeader.Open()
	if err != nil {
		return domain.ErrInvalidRequest.WithError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.ErrInvalidRequest.WithError(err)
	}

	face, err := h.service.UploadFace(c.UserContext(), name, fileHeader.Filename, data)
	if err != nil {
		return err
	}

	h.logger.Info("face uploaded", "name", face.Name, "filename", face.Filename, "size", len(data))

	return c.JSON(StoredFaceResponse{
		Status:    "success",
		Message:   "Face uploaded successfully",
		ImagePath: face.ImagePath,
	})
}

// List GET /get_registered_faces
func (h *FaceHandler) List(c *fiber.Ctx) error {
	faces, err := h.service.ListFaces(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(FacesResponse{Faces: faces})
}

// Image GET /face_image/:name/:filename
func (h *FaceHandler) Image(c *fiber.Ctx) error {
	path, err := h.service.FaceImagePath(c.Params("name"), c.Params("filename"))
	if err != nil {
		return err
	}
	return sendImage(c, path)
}

// Delete POST /delete_face
func (h *FaceHandler) Delete(c *fiber.Ctx) error {
	var req DeleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validateRequest(req, domain.ErrNameAndFilenameRequired, nil); err != nil {
		return err
	}

	if err := h.service.DeleteFace(c.UserContext(), req.Name, req.Filename); err != nil {
		return err
	}

	h.logger.Info("face deleted", "name", req.Name, "filename", req.Filename)

	return c.JSON(StatusResponse{Status: "success", Message: "Face deleted successfully"})
}

// sendImage reads the file on every request; stored images are replaced and
// removed at runtime, so nothing is cached.
func sendImage(c *fiber.Ctx, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrNotFound
		}
		return domain.ErrStorage.WithError(err)
	}

	c.Type(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.Send(data)
}
