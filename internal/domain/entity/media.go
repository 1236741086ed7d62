package entity

// MediaKind вид загружаемого медиа
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)
