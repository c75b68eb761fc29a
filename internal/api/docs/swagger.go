package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// StatusResponse is returned by the camera control endpoints
type StatusResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"Camera started"`
}

// ToggleResponse is returned by the recognition toggle
type ToggleResponse struct {
	Status  string `json:"status" example:"success"`
	Enabled bool   `json:"enabled" example:"true"`
	Message string `json:"message" example:"Face recognition enabled"`
}

// CaptureRequest registers the current camera frame under a name
type CaptureRequest struct {
	Name string `json:"name" example:"alice"`
}

// DeleteRequest removes one reference image
type DeleteRequest struct {
	Name     string `json:"name" example:"alice"`
	Filename string `json:"filename" example:"20240501_120000.jpg"`
}

// LabelRequest files an unknown face under a name
type LabelRequest struct {
	Filename string `json:"filename" example:"unknown_20240501_120000.jpg"`
	Name     string `json:"name" example:"carol"`
}

// StoredFaceResponse is returned after a face was stored
type StoredFaceResponse struct {
	Status    string `json:"status" example:"success"`
	Message   string `json:"message" example:"Face captured successfully"`
	ImagePath string `json:"image_path" example:"/face_image/alice/20240501_120000.jpg"`
}

// RegisteredFace is one reference image
type RegisteredFace struct {
	Name      string `json:"name" example:"alice"`
	ImagePath string `json:"image_path" example:"/face_image/alice/20240501_120000.jpg"`
	Filename  string `json:"filename" example:"20240501_120000.jpg"`
}

// FacesResponse lists every reference image
type FacesResponse struct {
	Faces []RegisteredFace `json:"faces"`
}

// UnknownFace is one stored unrecognised face
type UnknownFace struct {
	Filename   string `json:"filename" example:"unknown_20240501_120000.jpg"`
	ImagePath  string `json:"image_path" example:"/unknown_image/unknown_20240501_120000.jpg"`
	CapturedAt string `json:"captured_at" example:"2024-05-01T12:00:00Z"`
}

// UnknownFacesResponse lists stored unknown faces, newest first
type UnknownFacesResponse struct {
	UnknownFaces []UnknownFace `json:"unknown_faces"`
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status   string `json:"status" example:"ready"`
	Version  string `json:"version,omitempty" example:"0.1.0"`
	Camera   string `json:"camera,omitempty" example:"active"`
	Provider string `json:"provider,omitempty" example:"ok"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Code    string `json:"code" example:"INVALID_REQUEST"`
	Message string `json:"message" example:"Invalid request"`
}

func errorResponse(code, message, status, description string) response.Response {
	return response.New(ErrorResponse{Status: "error", Code: code, Message: message}, status, description)
}

var (
	errInternal  = errorResponse("INTERNAL_ERROR", "An unexpected error occurred", "500", "Internal Server Error")
	errRateLimit = errorResponse("RATE_LIMIT_EXCEEDED", "Rate limit exceeded, please try again later", "429", "Too Many Requests")
)

func NewSwagger(host string) *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "facecam",
		Version:     "v0.1.0",
		Description: "Webcam face registration and recognition: MJPEG stream, reference image database and unknown-face review",
		Host:        host,
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// Camera

		endpoint.New(
			endpoint.GET,
			"/video_feed",
			endpoint.WithTags("Camera"),
			endpoint.WithSummary("MJPEG stream"),
			endpoint.WithDescription("multipart/x-mixed-replace stream of annotated JPEG frames, boundary \"frame\". Shows a placeholder while the camera is off."),
			endpoint.WithProduce([]mime.MIME{mime.MIME("multipart/x-mixed-replace")}),
		),

		endpoint.New(
			endpoint.POST,
			"/start_camera",
			endpoint.WithTags("Camera"),
			endpoint.WithSummary("Open the camera"),
			endpoint.WithDescription("Idempotent. Fails with 500 when the device cannot be opened."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatusResponse{}, "200", "Camera started"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse("CAMERA_UNAVAILABLE", "Failed to open camera", "500", "Internal Server Error"),
				errRateLimit,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/stop_camera",
			endpoint.WithTags("Camera"),
			endpoint.WithSummary("Release the camera"),
			endpoint.WithDescription("Idempotent."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatusResponse{Status: "success", Message: "Camera stopped"}, "200", "Camera stopped"),
			}),
			endpoint.WithErrors([]response.Response{errRateLimit, errInternal}),
		),

		endpoint.New(
			endpoint.POST,
			"/toggle_recognition",
			endpoint.WithTags("Camera"),
			endpoint.WithSummary("Toggle face recognition on the stream"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ToggleResponse{}, "200", "New recognition state"),
			}),
			endpoint.WithErrors([]response.Response{errRateLimit}),
		),

		// Faces

		endpoint.New(
			endpoint.POST,
			"/capture_face",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Register the current camera frame"),
			endpoint.WithDescription("Body: {\"name\": \"alice\"}. The mirrored frame is stored under face_database/<name>/."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StoredFaceResponse{}, "200", "Face captured"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse("CAMERA_INACTIVE", "Camera is not active", "400", "Bad Request"),
				errorResponse("INVALID_REQUEST", "Person name is required", "400", "Bad Request"),
				errorResponse("CAMERA_UNAVAILABLE", "Failed to capture image", "500", "Internal Server Error"),
				errRateLimit,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/upload_face",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Register an uploaded image"),
			endpoint.WithDescription("multipart/form-data with fields name and file. Allowed extensions: png, jpg, jpeg, gif."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StoredFaceResponse{Status: "success", Message: "Face uploaded successfully"}, "200", "Face uploaded"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse("INVALID_REQUEST", "File type not allowed", "400", "Bad Request"),
				errorResponse("HTTP_ERROR", "Request Entity Too Large", "413", "Request Entity Too Large"),
				errRateLimit,
				errInternal,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/face_image/{name}/{filename}",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Fetch a reference image"),
			endpoint.WithParams(
				parameter.StrParam("name", parameter.Path, parameter.WithDescription("Identity label")),
				parameter.StrParam("filename", parameter.Path, parameter.WithDescription("Stored file name")),
			),
			endpoint.WithProduce([]mime.MIME{mime.MIME("image/jpeg"), mime.MIME("image/png"), mime.MIME("image/gif")}),
			endpoint.WithErrors([]response.Response{
				errorResponse("NOT_FOUND", "File not found", "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/get_registered_faces",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("List reference images"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FacesResponse{}, "200", "Reference images grouped by identity"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		endpoint.New(
			endpoint.POST,
			"/delete_face",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Delete a reference image"),
			endpoint.WithDescription("Body: {\"name\", \"filename\"}. The identity directory is removed with its last image."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatusResponse{Status: "success", Message: "Face deleted successfully"}, "200", "Deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse("INVALID_REQUEST", "Name and filename are required", "400", "Bad Request"),
				errorResponse("NOT_FOUND", "File not found", "404", "Not Found"),
				errorResponse("STORAGE_ERROR", "Error deleting file: permission denied", "500", "Internal Server Error"),
				errRateLimit,
			}),
		),

		// Unknown faces

		endpoint.New(
			endpoint.GET,
			"/unknown_faces",
			endpoint.WithTags("Unknown faces"),
			endpoint.WithSummary("List stored unknown faces"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UnknownFacesResponse{}, "200", "Unknown faces, newest first"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		endpoint.New(
			endpoint.GET,
			"/unknown_image/{filename}",
			endpoint.WithTags("Unknown faces"),
			endpoint.WithSummary("Fetch an unknown face"),
			endpoint.WithParams(
				parameter.StrParam("filename", parameter.Path, parameter.WithDescription("Stored file name")),
			),
			endpoint.WithProduce([]mime.MIME{mime.MIME("image/jpeg")}),
			endpoint.WithErrors([]response.Response{
				errorResponse("NOT_FOUND", "File not found", "404", "Not Found"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/label_unknown_face",
			endpoint.WithTags("Unknown faces"),
			endpoint.WithSummary("File an unknown face under a name"),
			endpoint.WithDescription("Body: {\"filename\", \"name\"}. The image moves into the face database."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StoredFaceResponse{Status: "success", Message: "Face labeled successfully"}, "200", "Labeled"),
			}),
			endpoint.WithErrors([]response.Response{
				errorResponse("INVALID_REQUEST", "Person name is required", "400", "Bad Request"),
				errorResponse("NOT_FOUND", "File not found", "404", "Not Found"),
				errRateLimit,
			}),
		),

		// Health

		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ok"}, "200", "Alive"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithDescription("Reports camera state and whether the feature extractor answers."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Ready"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "degraded", Provider: "unavailable"}, "503", "Extractor unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
