package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facecam/internal/camera"
	"github.com/saturnino-fabrica-de-software/facecam/internal/facedb"
	"github.com/saturnino-fabrica-de-software/facecam/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facecam/internal/recognizer"
	"github.com/saturnino-fabrica-de-software/facecam/internal/resolver"
	"github.com/saturnino-fabrica-de-software/facecam/internal/service"
	"github.com/saturnino-fabrica-de-software/facecam/internal/ws"
)

func newTestRouter(t *testing.T, rateLimit int) *Router {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := facedb.New(t.TempDir(), logger)
	require.NoError(t, err)
	unknown, err := facedb.NewUnknownStore(t.TempDir(), logger)
	require.NoError(t, err)

	opener, err := camera.NewOpener(camera.Config{Driver: camera.DriverStatic, Width: 64, Height: 48})
	require.NoError(t, err)
	session := camera.NewSession(opener, true, logger)

	provider := mock.New()
	policy, err := resolver.ParsePolicy(resolver.PolicyCosine)
	require.NoError(t, err)
	rec := recognizer.New(store, provider, policy, 0, logger)

	hub := ws.NewHub(logger)
	pipe := pipeline.New(session, provider, rec, pipeline.Config{Width: 64, Height: 48, Mirror: true}, logger,
		pipeline.WithPublisher(hub))
	svc := service.NewFaceService(store, unknown, session, pipe, hub, logger)

	router := NewRouter(logger, &Dependencies{
		Service:            svc,
		Processor:          pipe,
		Hub:                hub,
		Host:               "localhost:5001",
		UploadMaxBytes:     1 << 20,
		RateLimitPerMinute: rateLimit,
	})
	router.Setup()
	t.Cleanup(func() {
		_ = router.Shutdown()
		_ = session.Stop()
	})
	return router
}

func doJSON(t *testing.T, r *Router, method, target, body string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func registeredFaces(t *testing.T, r *Router) []interface{} {
	t.Helper()
	code, body := doJSON(t, r, http.MethodGet, "/get_registered_faces", "")
	require.Equal(t, http.StatusOK, code)
	faces, ok := body["faces"].([]interface{})
	require.True(t, ok, "faces must be an array: %v", body)
	return faces
}

func TestRouter_FaceLifecycle(t *testing.T) {
	r := newTestRouter(t, 0)

	code, body := doJSON(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = doJSON(t, r, http.MethodPost, "/capture_face", `{"name":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "CAMERA_INACTIVE", body["code"])

	code, body = doJSON(t, r, http.MethodPost, "/start_camera", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])

	code, body = doJSON(t, r, http.MethodPost, "/capture_face", `{"name":"alice"}`)
	require.Equal(t, http.StatusOK, code, body)
	imagePath, _ := body["image_path"].(string)
	require.True(t, strings.HasPrefix(imagePath, "/face_image/alice/"), imagePath)

	faces := registeredFaces(t, r)
	require.Len(t, faces, 1)
	face := faces[0].(map[string]interface{})
	assert.Equal(t, "alice", face["name"])
	assert.Equal(t, imagePath, face["image_path"])

	resp, err := r.App().Test(httptest.NewRequest(http.MethodGet, imagePath, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	code, _ = doJSON(t, r, http.MethodPost, "/delete_face",
		`{"name":"alice","filename":"`+face["filename"].(string)+`"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, registeredFaces(t, r))

	code, body = doJSON(t, r, http.MethodPost, "/delete_face", `{"name":"alice","filename":"gone.jpg"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "File not found", body["message"])

	code, _ = doJSON(t, r, http.MethodPost, "/stop_camera", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_UploadRejectsDisallowedExtension(t *testing.T) {
	r := newTestRouter(t, 0)

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(t, w.WriteField("name", "mallory"))
	part, err := w.CreateFormFile("file", "virus.exe")
	require.NoError(t, err)
	_, _ = part.Write([]byte("MZ\x90\x00"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_face", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := r.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, registeredFaces(t, r))
}

func TestRouter_ToggleRecognition(t *testing.T) {
	r := newTestRouter(t, 0)

	code, body := doJSON(t, r, http.MethodPost, "/toggle_recognition", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["enabled"])

	code, body = doJSON(t, r, http.MethodPost, "/toggle_recognition", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["enabled"])
}

func TestRouter_UnknownFacesStartEmpty(t *testing.T) {
	r := newTestRouter(t, 0)

	code, body := doJSON(t, r, http.MethodGet, "/unknown_faces", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{}, body["unknown_faces"])
}

func TestRouter_RateLimitsMutatingRoutes(t *testing.T) {
	r := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		code, _ := doJSON(t, r, http.MethodPost, "/stop_camera", "")
		require.Equal(t, http.StatusOK, code)
	}

	code, body := doJSON(t, r, http.MethodPost, "/stop_camera", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])

	// reads are not limited
	code, _ = doJSON(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
}
