package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/uuid"

	"fruit-vision/internal/domain/entity"
	"fruit-vision/internal/domain/port"
)

type DetectionService struct {
	detectors port.DetectorRegistry
	store     port.MediaStore
	runsDir   string
}

// ImageOutput содержит результат обработки изображения и сводку по классам.
type ImageOutput struct {
	Result *entity.ImageResult
	Counts entity.CountSummary
}

// VideoOutput содержит путь к обработанному видео.
type VideoOutput struct {
	RunID      string
	OutputPath string
}

// NewDetectionService создаёт сервис, который управляет конвейером распознавания.
func NewDetectionService(detectors port.DetectorRegistry, store port.MediaStore, runsDir string) *DetectionService {
	return &DetectionService{
		detectors: detectors,
		store:     store,
		runsDir:   runsDir,
	}
}

// ProcessImage прогоняет изображение через детектор и считает объекты по классам.
func (s *DetectionService) ProcessImage(ctx context.Context, modelPath string, confidence float64, data []byte) (*ImageOutput, error) {
	if s.store == nil {
		return nil, errors.New("media store is not configured")
	}

	// Детектор разрешаем до записи файла: ошибка модели должна
	// останавливать обработку раньше любой работы с медиа.
	detector, err := s.resolveDetector(modelPath)
	if err != nil {
		return nil, err
	}

	path, cleanup, err := s.store.Save(data, entity.MediaImage, "")
	if err != nil {
		return nil, err
	}
	// Временный файл удаляется на любом исходе.
	defer cleanup()

	result, err := detector.DetectImage(ctx, path, confidence)
	if err != nil {
		return nil, err
	}

	return &ImageOutput{
		Result: result,
		Counts: entity.CountByLabel(result.Detections),
	}, nil
}

// ProcessVideo прогоняет видео через детектор и возвращает путь к готовому файлу.
func (s *DetectionService) ProcessVideo(ctx context.Context, modelPath string, confidence float64, data []byte, originalName string) (*VideoOutput, error) {
	if s.store == nil {
		return nil, errors.New("media store is not configured")
	}

	detector, err := s.resolveDetector(modelPath)
	if err != nil {
		return nil, err
	}

	path, cleanup, err := s.store.Save(data, entity.MediaVideo, originalName)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	runID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	outDir := filepath.Join(s.runsDir, "fruit-"+runID.String())
	outPath, err := detector.DetectVideo(ctx, path, outDir, confidence)
	if err != nil {
		return nil, err
	}

	return &VideoOutput{
		RunID:      runID.String(),
		OutputPath: outPath,
	}, nil
}

func (s *DetectionService) resolveDetector(modelPath string) (port.ObjectDetector, error) {
	if s.detectors == nil {
		return nil, errors.New("detector is not configured")
	}
	return s.detectors.Detector(modelPath)
}
