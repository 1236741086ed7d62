package vision

import (
	"errors"
	"fmt"
	"sync"

	"fruit-vision/internal/domain/port"
)

// Registry кеширует детекторы по пути к модели: веса загружаются один раз
// на процесс и переиспользуются между запросами.
type Registry struct {
	mu             sync.Mutex
	classNamesPath string
	construct      func(modelPath, classNamesPath string) (*YOLODetector, error)
	detectors      map[string]*YOLODetector
}

// NewRegistry создаёт пустой кеш детекторов.
func NewRegistry(classNamesPath string) *Registry {
	return &Registry{
		classNamesPath: classNamesPath,
		construct:      NewYOLODetector,
		detectors:      make(map[string]*YOLODetector),
	}
}

// Detector возвращает детектор модели, создавая его при первом обращении.
// Ошибка создания не кешируется: путь можно исправить и повторить запрос.
func (r *Registry) Detector(modelPath string) (port.ObjectDetector, error) {
	if modelPath == "" {
		return nil, errors.New("model path is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if det, ok := r.detectors[modelPath]; ok {
		return det, nil
	}

	det, err := r.construct(modelPath, r.classNamesPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}

	r.detectors[modelPath] = det
	return det, nil
}

// Проверка реализации интерфейса
var _ port.DetectorRegistry = (*Registry)(nil)
