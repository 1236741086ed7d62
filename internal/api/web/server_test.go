package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	app "fruit-vision/internal/application"
	"fruit-vision/internal/domain/entity"
	"fruit-vision/internal/domain/port"
)

type fakeDetector struct {
	imageResult *entity.ImageResult
	videoPath   string
	videoErr    error
}

func (f *fakeDetector) DetectImage(ctx context.Context, imagePath string, confidence float64) (*entity.ImageResult, error) {
	return f.imageResult, nil
}

func (f *fakeDetector) DetectVideo(ctx context.Context, videoPath, outDir string, confidence float64) (string, error) {
	if f.videoErr != nil {
		return "", f.videoErr
	}
	return f.videoPath, nil
}

type fakeRegistry struct {
	detector port.ObjectDetector
	err      error
}

func (f *fakeRegistry) Detector(modelPath string) (port.ObjectDetector, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detector, nil
}

type fakeStore struct{}

func (f *fakeStore) Save(data []byte, kind entity.MediaKind, originalName string) (string, func(), error) {
	return "/tmp/fake-upload", func() {}, nil
}

func newTestServer(detector port.ObjectDetector, registryErr error) *Server {
	registry := &fakeRegistry{detector: detector, err: registryErr}
	detection := app.NewDetectionService(registry, &fakeStore{}, "runs/detect")
	return NewServer(detection, "best.onnx", 0.4, zap.NewNop())
}

func uploadRequest(t *testing.T, path, fileName string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	require.NoError(t, writer.WriteField("confidence", "0.4"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleDetectImage(t *testing.T) {
	detector := &fakeDetector{
		imageResult: &entity.ImageResult{
			Detections: []entity.Detection{
				{Label: "apple", Confidence: 0.9},
				{Label: "apple", Confidence: 0.6},
				{Label: "banana", Confidence: 0.5},
			},
			Annotated: []byte("annotated jpeg"),
		},
	}
	server := newTestServer(detector, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, uploadRequest(t, "/api/detect/image", "fruits.jpg", []byte("image")))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp imageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, map[string]int{"apple": 2, "banana": 1}, resp.Counts)
	require.False(t, resp.NoDetections)
	require.Len(t, resp.Detections, 3)

	annotated, err := base64.StdEncoding.DecodeString(resp.Annotated)
	require.NoError(t, err)
	require.Equal(t, []byte("annotated jpeg"), annotated)
}

func TestHandleDetectImage_NoDetections(t *testing.T) {
	detector := &fakeDetector{imageResult: &entity.ImageResult{Annotated: []byte("annotated jpeg")}}
	server := newTestServer(detector, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, uploadRequest(t, "/api/detect/image", "fruits.jpg", []byte("image")))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp imageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.NoDetections)
	require.Empty(t, resp.Counts)
}

func TestHandleDetectImage_ModelError(t *testing.T) {
	server := newTestServer(nil, errors.New("load model missing.onnx: model is not readable"))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, uploadRequest(t, "/api/detect/image", "fruits.jpg", []byte("image")))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Error, "model is not readable")
}

func TestHandleDetectImage_MissingFile(t *testing.T) {
	server := newTestServer(&fakeDetector{}, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("confidence", "0.4"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/detect/image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDetectVideo_PlaybackAndDownload(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "detected.mp4")
	require.NoError(t, os.WriteFile(outPath, []byte("video bytes"), 0o644))

	server := newTestServer(&fakeDetector{videoPath: outPath}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, uploadRequest(t, "/api/detect/video", "clip.mp4", []byte("video")))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp videoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.VideoID)

	playback := httptest.NewRecorder()
	server.Handler().ServeHTTP(playback, httptest.NewRequest(http.MethodGet, resp.PlaybackURL, nil))
	require.Equal(t, http.StatusOK, playback.Code)

	download := httptest.NewRecorder()
	server.Handler().ServeHTTP(download, httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	require.Equal(t, http.StatusOK, download.Code)
	require.Equal(t, "video/mp4", download.Header().Get("Content-Type"))
	require.Contains(t, download.Header().Get("Content-Disposition"), "detected_fruit_video.mp4")
	require.Equal(t, []byte("video bytes"), download.Body.Bytes())
}

func TestHandleDetectVideo_NoOutput(t *testing.T) {
	server := newTestServer(&fakeDetector{videoErr: port.ErrNoVideoProduced}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, uploadRequest(t, "/api/detect/video", "clip.mp4", []byte("video")))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "processed video not found", resp.Error)
}

func TestHandleVideoDownload_UnknownID(t *testing.T) {
	server := newTestServer(&fakeDetector{}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/video/unknown/download", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIndex(t *testing.T) {
	server := newTestServer(&fakeDetector{}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "best.onnx")
}
