package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/facecam/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/facecam/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facecam/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/service"
	"github.com/saturnino-fabrica-de-software/facecam/internal/ws"
)

const Version = "0.1.0"

type Dependencies struct {
	Service   *service.FaceService
	Processor handler.FrameProcessor
	Hub       *ws.Hub
	// Pinger is nil when the extractor runs in-process
	Pinger provider.Pinger

	Host               string
	UploadMaxBytes     int
	RateLimitPerMinute int
	StreamInterval     time.Duration
}

type Router struct {
	app          *fiber.App
	logger       *slog.Logger
	deps         *Dependencies
	rateLimiter  *middleware.RateLimiter
	cancelHub    context.CancelFunc
	cancelStream context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "facecam",
		BodyLimit:    deps.UploadMaxBytes,
		UnescapePath: true,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger(r.deps.Host)
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints
	healthHandler := handler.NewHealthHandler(r.deps.Service, r.deps.Pinger, Version, r.logger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Event hub
	hubCtx, hubCancel := context.WithCancel(context.Background())
	r.cancelHub = hubCancel
	go r.deps.Hub.Run(hubCtx)

	// Streams end on shutdown, fiber waits for open connections
	streamCtx, streamCancel := context.WithCancel(context.Background())
	r.cancelStream = streamCancel

	cameraHandler := handler.NewCameraHandler(r.deps.Service, r.logger)
	faceHandler := handler.NewFaceHandler(r.deps.Service, r.logger)
	unknownHandler := handler.NewUnknownHandler(r.deps.Service, r.logger)
	streamHandler := handler.NewStreamHandler(streamCtx, r.deps.Processor, r.deps.StreamInterval, r.logger)

	// Rate limiting of mutating routes
	limiterConfig := middleware.DefaultRateLimiterConfig()
	if r.deps.RateLimitPerMinute > 0 {
		limiterConfig.Max = r.deps.RateLimitPerMinute
	}
	r.rateLimiter = middleware.NewRateLimiter(limiterConfig)
	limited := r.rateLimiter.Handler()

	// Page and stream
	r.app.Get("/", handler.Index)
	r.app.Get("/video_feed", streamHandler.VideoFeed)

	// Camera control
	r.app.Post("/start_camera", limited, cameraHandler.Start)
	r.app.Post("/stop_camera", limited, cameraHandler.Stop)
	r.app.Post("/toggle_recognition", limited, cameraHandler.ToggleRecognition)

	// Face database
	r.app.Post("/capture_face", limited, faceHandler.Capture)
	r.app.Post("/upload_face", limited, faceHandler.Upload)
	r.app.Post("/delete_face", limited, faceHandler.Delete)
	r.app.Get("/get_registered_faces", faceHandler.List)
	r.app.Get("/face_image/:name/:filename", faceHandler.Image)

	// Unknown faces
	r.app.Get("/unknown_faces", unknownHandler.List)
	r.app.Get("/unknown_image/:filename", unknownHandler.Image)
	r.app.Post("/label_unknown_face", limited, unknownHandler.Label)

	// WebSocket endpoint
	r.app.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// End open video feeds
	if r.cancelStream != nil {
		r.cancelStream()
	}

	// Stop WebSocket hub
	if r.cancelHub != nil {
		r.cancelHub()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
