package port

import (
	"errors"

	"fruit-vision/internal/domain/entity"
)

// ErrUnsupportedMedia возвращается, когда содержимое файла не совпадает с заявленным видом медиа.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// MediaStore интерфейс временного хранилища загруженных файлов
type MediaStore interface {
	// Save записывает медиа во временный файл и возвращает путь
	// и функцию очистки; очистку обязан вызвать получатель пути
	Save(data []byte, kind entity.MediaKind, originalName string) (path string, cleanup func(), err error)
}
