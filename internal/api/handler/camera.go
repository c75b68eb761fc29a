package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// CameraService controls the camera session.
type CameraService interface {
	StartCamera(ctx context.Context) error
	StopCamera(ctx context.Context) error
	ToggleRecognition(ctx context.Context) bool
	CameraActive() bool
	RecognitionEnabled() bool
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ToggleResponse struct {
	Status  string `json:"status"`
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

type CameraHandler struct {
	service CameraService
	logger  *slog.Logger
}

func NewCameraHandler(service CameraService, logger *slog.Logger) *CameraHandler {
	return &CameraHandler{
		service: service,
		logger:  logger,
	}
}

// Start POST /start_camera
func (h *CameraHandler) Start(c *fiber.Ctx) error {
	if err := h.service.StartCamera(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(StatusResponse{Status: "success", Message: "Camera started"})
}

// Stop POST /stop_camera
func (h *CameraHandler) Stop(c *fiber.Ctx) error {
	if err := h.service.StopCamera(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(StatusResponse{Status: "success", Message: "Camera stopped"})
}

// ToggleRecognition POST /toggle_recognition
func (h *CameraHandler) ToggleRecognition(c *fiber.Ctx) error {
	enabled := h.service.ToggleRecognition(c.UserContext())

	message := "Face recognition disabled"
	if enabled {
		message = "Face recognition enabled"
	}
	return c.JSON(ToggleResponse{Status: "success", Enabled: enabled, Message: message})
}
