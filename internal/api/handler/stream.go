package handler

import (
	"bufio"
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facecam/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/facecam/internal/stream"
)

// FrameProcessor produces one annotated frame per call.
type FrameProcessor interface {
	Process(ctx context.Context) (pipeline.Frame, error)
}

type StreamHandler struct {
	ctx       context.Context
	processor FrameProcessor
	interval  time.Duration
	logger    *slog.Logger
}

// NewStreamHandler creates a handler whose streams end when ctx is cancelled.
func NewStreamHandler(ctx context.Context, processor FrameProcessor, interval time.Duration, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		ctx:       ctx,
		processor: processor,
		interval:  interval,
		logger:    logger,
	}
}

// VideoFeed GET /video_feed - MJPEG stream, one part per processed frame
func (h *StreamHandler) VideoFeed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, stream.ContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set("Pragma", "no-cache")

	remote := c.IP()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		h.logger.Debug("video feed opened", "remote", remote)

		err := stream.Pump(h.ctx, stream.NewWriter(w), h.next, h.interval)
		if err != nil {
			h.logger.Debug("video feed closed", "remote", remote, "error", err)
			return
		}
		h.logger.Debug("video feed closed", "remote", remote)
	})
	return nil
}

func (h *StreamHandler) next(ctx context.Context) ([]byte, error) {
	frame, err := h.processor.Process(ctx)
	if err != nil {
		return nil, err
	}
	return frame.JPEG, nil
}
