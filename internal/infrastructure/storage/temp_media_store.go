package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"fruit-vision/internal/domain/entity"
	"fruit-vision/internal/domain/port"
)

// maxImageSide — изображения крупнее приводятся к этой стороне перед детекцией.
const maxImageSide = 1920

var allowedVideoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
}

// TempMediaStore складывает загруженные файлы во временный каталог.
// Изображения нормализуются в JPEG, видео сохраняет исходное расширение.
type TempMediaStore struct {
	dir string // каталог для временных файлов; пустой — системный
}

// NewTempMediaStore создаёт хранилище поверх указанного каталога.
func NewTempMediaStore(dir string) *TempMediaStore {
	return &TempMediaStore{dir: dir}
}

// Save записывает медиа во временный файл и возвращает путь и функцию очистки.
// Содержимое сверяется с заявленным видом медиа до записи на диск.
func (st *TempMediaStore) Save(data []byte, kind entity.MediaKind, originalName string) (string, func(), error) {
	switch kind {
	case entity.MediaImage:
		return st.saveImage(data)
	case entity.MediaVideo:
		return st.saveVideo(data, originalName)
	default:
		return "", nil, port.ErrUnsupportedMedia
	}
}

func (st *TempMediaStore) saveImage(data []byte) (string, func(), error) {
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return "", nil, port.ErrUnsupportedMedia
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("decode image: %w", err)
	}

	// Приводим изображение к стандартному размеру для стабильной работы детектора.
	img = imaging.Fit(img, maxImageSide, maxImageSide, imaging.Lanczos)

	file, err := os.CreateTemp(st.dir, "upload-*.jpg")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	path := file.Name()
	cleanup := func() { _ = os.Remove(path) }

	if err := imaging.Encode(file, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		file.Close()
		cleanup()
		return "", nil, fmt.Errorf("encode image: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	return path, cleanup, nil
}

func (st *TempMediaStore) saveVideo(data []byte, originalName string) (string, func(), error) {
	if !strings.HasPrefix(mimetype.Detect(data).String(), "video/") {
		return "", nil, port.ErrUnsupportedMedia
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedVideoExtensions[ext] {
		return "", nil, port.ErrUnsupportedMedia
	}

	file, err := os.CreateTemp(st.dir, "upload-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	path := file.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := file.Write(data); err != nil {
		file.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	return path, cleanup, nil
}

// Проверка реализации интерфейса
var _ port.MediaStore = (*TempMediaStore)(nil)
