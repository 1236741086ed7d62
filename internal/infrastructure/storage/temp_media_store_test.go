package storage

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"fruit-vision/internal/domain/entity"
	"fruit-vision/internal/domain/port"
)

func jpegBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func mp4Bytes() []byte {
	return append([]byte{0, 0, 0, 0x18}, []byte("ftypisom\x00\x00\x02\x00isomiso2avc1mp41")...)
}

func TestTempMediaStore_SaveImage(t *testing.T) {
	store := NewTempMediaStore(t.TempDir())

	path, cleanup, err := store.Save(jpegBytes(t), entity.MediaImage, "photo.png")
	require.NoError(t, err)
	require.Equal(t, ".jpg", filepath.Ext(path))

	_, err = os.Stat(path)
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestTempMediaStore_SaveImage_RejectsNonImage(t *testing.T) {
	store := NewTempMediaStore(t.TempDir())

	_, _, err := store.Save([]byte("plain text"), entity.MediaImage, "photo.jpg")
	require.ErrorIs(t, err, port.ErrUnsupportedMedia)
}

func TestTempMediaStore_SaveVideo(t *testing.T) {
	store := NewTempMediaStore(t.TempDir())

	data := mp4Bytes()
	path, cleanup, err := store.Save(data, entity.MediaVideo, "clip.MP4")
	require.NoError(t, err)
	require.Equal(t, ".mp4", filepath.Ext(path))

	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, stored)

	cleanup()
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestTempMediaStore_SaveVideo_RejectsWrongContent(t *testing.T) {
	store := NewTempMediaStore(t.TempDir())

	_, _, err := store.Save(jpegBytes(t), entity.MediaVideo, "clip.mp4")
	require.ErrorIs(t, err, port.ErrUnsupportedMedia)
}

func TestTempMediaStore_SaveVideo_RejectsUnknownExtension(t *testing.T) {
	store := NewTempMediaStore(t.TempDir())

	_, _, err := store.Save(mp4Bytes(), entity.MediaVideo, "clip.webm")
	require.ErrorIs(t, err, port.ErrUnsupportedMedia)
}

func TestTempMediaStore_SaveUnknownKind(t *testing.T) {
	store := NewTempMediaStore(t.TempDir())

	_, _, err := store.Save([]byte("data"), entity.MediaKind("audio"), "sound.mp3")
	require.ErrorIs(t, err, port.ErrUnsupportedMedia)
}
