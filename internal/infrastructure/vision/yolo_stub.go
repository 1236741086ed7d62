//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"fruit-vision/internal/domain/entity"
)

type YOLODetector struct {
	classNames []string
}

// NewYOLODetector создаёт детектор-заглушку (без OpenCV).
func NewYOLODetector(modelPath, classNamesPath string) (*YOLODetector, error) {
	_ = modelPath
	_ = classNamesPath
	return &YOLODetector{}, nil
}

// DetectImage возвращает ошибку, если сборка без тега gocv.
func (d *YOLODetector) DetectImage(ctx context.Context, imagePath string, confidence float64) (*entity.ImageResult, error) {
	_ = ctx
	_ = imagePath
	_ = confidence
	return nil, errors.New("gocv build tag is not enabled")
}

// DetectVideo возвращает ошибку, если сборка без тега gocv.
func (d *YOLODetector) DetectVideo(ctx context.Context, videoPath, outDir string, confidence float64) (string, error) {
	_ = ctx
	_ = videoPath
	_ = outDir
	_ = confidence
	return "", errors.New("gocv build tag is not enabled")
}
