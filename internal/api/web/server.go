package web

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fruit-vision/config"
	app "fruit-vision/internal/application"
	"fruit-vision/internal/domain/port"
)

const (
	maxUploadSize    = 256 << 20 // байт на одну загрузку
	downloadFileName = "detected_fruit_video.mp4"
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// Server отдаёт страницу загрузки и обслуживает конвейер распознавания по HTTP.
type Server struct {
	router     *mux.Router
	detection  *app.DetectionService
	modelPath  string
	confidence float64
	log        *zap.Logger

	mu     sync.RWMutex
	videos map[string]string // ID обработанного видео -> путь к файлу
}

// NewServer создаёт сервер с маршрутами страницы, распознавания и выдачи видео.
func NewServer(detection *app.DetectionService, modelPath string, confidence float64, logger *zap.Logger) *Server {
	s := &Server{
		detection:  detection,
		modelPath:  modelPath,
		confidence: confidence,
		log:        logger,
		videos:     make(map[string]string),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/detect/image", s.handleDetectImage).Methods(http.MethodPost)
	r.HandleFunc("/api/detect/video", s.handleDetectVideo).Methods(http.MethodPost)
	r.HandleFunc("/video/{id}", s.handleVideo).Methods(http.MethodGet)
	r.HandleFunc("/video/{id}/download", s.handleVideoDownload).Methods(http.MethodGet)
	s.router = r

	return s
}

// Handler возвращает корневой обработчик сервера.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run запускает HTTP-сервер и блокируется до его остановки.
func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

type detectionDTO struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

type imageResponse struct {
	Detections   []detectionDTO `json:"detections"`
	Counts       map[string]int `json:"counts"`
	NoDetections bool           `json:"no_detections"`
	Annotated    string         `json:"annotated_image"` // JPEG в base64
}

type videoResponse struct {
	VideoID     string `json:"video_id"`
	PlaybackURL string `json:"playback_url"`
	DownloadURL string `json:"download_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type upload struct {
	data       []byte
	name       string
	confidence float64
	modelPath  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := indexTemplate.Execute(w, struct {
		ModelPath  string
		Confidence float64
	}{
		ModelPath:  s.modelPath,
		Confidence: s.confidence,
	})
	if err != nil {
		s.log.Error("render index page", zap.Error(err))
	}
}

func (s *Server) handleDetectImage(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	out, err := s.detection.ProcessImage(r.Context(), up.modelPath, up.confidence, up.data)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := imageResponse{
		Detections:   make([]detectionDTO, 0, len(out.Result.Detections)),
		Counts:       out.Counts,
		NoDetections: !out.Result.HasDetections(),
		Annotated:    base64.StdEncoding.EncodeToString(out.Result.Annotated),
	}
	for _, det := range out.Result.Detections {
		resp.Detections = append(resp.Detections, detectionDTO{
			Label:      det.Label,
			Confidence: det.Confidence,
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDetectVideo(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	out, err := s.detection.ProcessVideo(r.Context(), up.modelPath, up.confidence, up.data, up.name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	s.videos[out.RunID] = out.OutputPath
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, videoResponse{
		VideoID:     out.RunID,
		PlaybackURL: "/video/" + out.RunID,
		DownloadURL: "/video/" + out.RunID + "/download",
	})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	path, ok := s.videoPath(mux.Vars(r)["id"])
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "processed video not found"})
		return
	}

	http.ServeFile(w, r, path)
}

func (s *Server) handleVideoDownload(w http.ResponseWriter, r *http.Request) {
	path, ok := s.videoPath(mux.Vars(r)["id"])
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "processed video not found"})
		return
	}

	file, err := os.Open(path)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "processed video not found"})
		return
	}
	defer file.Close()

	// Скачивание всегда под фиксированным именем и видео-типом.
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadFileName+`"`)

	if _, err := io.Copy(w, file); err != nil {
		s.log.Error("stream video download", zap.Error(err))
	}
}

func (s *Server) videoPath(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, ok := s.videos[id]
	return path, ok
}

// readUpload разбирает multipart-форму: файл, порог уверенности и путь к модели.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file is required"})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read file"})
		return nil, false
	}

	up := &upload{
		data:       data,
		name:       header.Filename,
		confidence: s.confidence,
		modelPath:  s.modelPath,
	}

	if raw := r.FormValue("confidence"); raw != "" {
		conf, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid confidence"})
			return nil, false
		}
		up.confidence = config.ClampConfidence(conf)
	}

	if path := r.FormValue("model_path"); path != "" {
		up.modelPath = path
	}

	return up, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, port.ErrUnsupportedMedia):
		s.writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{Error: err.Error()})
	case errors.Is(err, port.ErrNoVideoProduced):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "processed video not found"})
	default:
		s.log.Error("detection failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}
