package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
)

const pingTimeout = 3 * time.Second

// CameraStatus reports whether the camera is open.
type CameraStatus interface {
	CameraActive() bool
}

type HealthHandler struct {
	camera  CameraStatus
	pinger  provider.Pinger
	version string
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler. pinger may be nil for
// extractors that run in-process.
func NewHealthHandler(camera CameraStatus, pinger provider.Pinger, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		camera:  camera,
		pinger:  pinger,
		version: version,
		logger:  logger,
	}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Camera   string `json:"camera,omitempty"`
	Provider string `json:"provider,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	resp := HealthResponse{
		Status:   "ready",
		Camera:   "inactive",
		Provider: "local",
	}
	if h.camera.CameraActive() {
		resp.Camera = "active"
	}

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("extractor not ready", "error", err)
			resp.Status = "degraded"
			resp.Provider = "unavailable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		resp.Provider = "ok"
	}

	return c.JSON(resp)
}
