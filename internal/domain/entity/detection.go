package entity

import "image"

// Detection представляет один найденный объект на кадре
type Detection struct {
	Label      string          // имя класса объекта
	Confidence float32         // уверенность модели
	Box        image.Rectangle // ограничивающий прямоугольник в координатах кадра
}

// ImageResult хранит итог обработки одного изображения.
type ImageResult struct {
	ImageWidth  int         // ширина изображения
	ImageHeight int         // высота изображения
	Detections  []Detection // список найденных объектов
	Annotated   []byte      // JPEG с нарисованными рамками и подписями
}

// HasDetections сообщает, нашёлся ли хотя бы один объект.
func (r *ImageResult) HasDetections() bool {
	return len(r.Detections) > 0
}

// CountSummary — количество найденных объектов по каждому классу.
// Класс без находок в сводку не попадает.
type CountSummary map[string]int

// CountByLabel подсчитывает объекты по имени класса.
func CountByLabel(detections []Detection) CountSummary {
	counts := make(CountSummary, len(detections))
	for _, det := range detections {
		counts[det.Label]++
	}
	return counts
}
