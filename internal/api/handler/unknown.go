package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facecam/internal/domain"
)

// UnknownFaceService reviews faces the recognizer could not place.
type UnknownFaceService interface {
	ListUnknown(ctx context.Context) ([]domain.UnknownFace, error)
	UnknownImagePath(filename string) (string, error)
	LabelUnknown(ctx context.Context, filename, name string) (*domain.RegisteredFace, error)
}

type LabelRequest struct {
	Filename string `json:"filename" form:"filename" validate:"required"`
	Name     string `json:"name" form:"name" validate:"notblank"`
}

type UnknownFacesResponse struct {
	UnknownFaces []domain.UnknownFace `json:"unknown_faces"`
}

type UnknownHandler struct {
	service UnknownFaceService
	logger  *slog.Logger
}

func NewUnknownHandler(service UnknownFaceService, logger *slog.Logger) *UnknownHandler {
	return &UnknownHandler{
		service: service,
		logger:  logger,
	}
}

// List GET /unknown_faces
func (h *UnknownHandler) List(c *fiber.Ctx) error {
	faces, err := h.service.ListUnknown(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(UnknownFacesResponse{UnknownFaces: faces})
}

// Image GET /unknown_image/:filename
func (h *UnknownHandler) Image(c *fiber.Ctx) error {
	path, err := h.service.UnknownImagePath(c.Params("filename"))
	if err != nil {
		return err
	}
	return sendImage(c, path)
}

// Label POST /label_unknown_face
func (h *UnknownHandler) Label(c *fiber.Ctx) error {
	var req LabelRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	err := validateRequest(req, domain.ErrInvalidRequest, map[string]*domain.AppError{
		"Filename": domain.ErrNoSelectedFile,
		"Name":     domain.ErrNameRequired,
	})
	if err != nil {
		return err
	}

	face, err := h.service.LabelUnknown(c.UserContext(), req.Filename, req.Name)
	if err != nil {
		return err
	}

	h.logger.Info("unknown face labeled", "filename", req.Filename, "name", face.Name)

	return c.JSON(StoredFaceResponse{
		Status:    "success",
		Message:   "Face labeled successfully",
		ImagePath: face.ImagePath,
	})
}
