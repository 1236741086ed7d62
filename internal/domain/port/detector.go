package port

import (
	"context"
	"errors"

	"fruit-vision/internal/domain/entity"
)

// ErrNoVideoProduced возвращается, когда из видео не удалось получить ни одного кадра.
var ErrNoVideoProduced = errors.New("no output video produced")

// ObjectDetector интерфейс детектора объектов
type ObjectDetector interface {
	// DetectImage ищет объекты на изображении и возвращает результат с разметкой
	DetectImage(ctx context.Context, imagePath string, confidence float64) (*entity.ImageResult, error)

	// DetectVideo обрабатывает видео покадрово и возвращает путь к готовому файлу
	DetectVideo(ctx context.Context, videoPath, outDir string, confidence float64) (string, error)
}

// DetectorRegistry выдаёт детектор для указанной модели
type DetectorRegistry interface {
	// Detector возвращает детектор, создавая его при первом обращении к модели
	Detector(modelPath string) (ObjectDetector, error)
}
