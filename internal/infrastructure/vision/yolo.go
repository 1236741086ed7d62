//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"fruit-vision/internal/domain/entity"
	"fruit-vision/internal/domain/port"
)

const (
	inputSize    = 640
	nmsThreshold = 0.45
	outputName   = "detected.mp4"
)

// YOLODetector запускает ONNX-модель YOLO через DNN-модуль OpenCV.
type YOLODetector struct {
	mu         sync.Mutex // Net не потокобезопасен, прогоны сериализуются
	net        gocv.Net
	classNames []string
}

// NewYOLODetector загружает модель и имена классов.
// Нечитаемая модель — фатальная ошибка конфигурации, обработка медиа не начинается.
func NewYOLODetector(modelPath, classNamesPath string) (*YOLODetector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model is not readable: %w", err)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", modelPath)
	}

	classNames, err := loadClassNames(classNamesPath)
	if err != nil {
		net.Close()
		return nil, err
	}

	return &YOLODetector{
		net:        net,
		classNames: classNames,
	}, nil
}

// DetectImage ищет объекты на изображении и возвращает кадр с разметкой.
func (d *YOLODetector) DetectImage(ctx context.Context, imagePath string, confidence float64) (*entity.ImageResult, error) {
	_ = ctx

	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		return nil, errors.New("failed to decode image")
	}
	defer img.Close()

	detections, err := d.detectMat(&img, float32(confidence))
	if err != nil {
		return nil, err
	}

	drawDetections(&img, detections)

	annotated, err := encodeAnnotated(img)
	if err != nil {
		return nil, err
	}

	return &entity.ImageResult{
		ImageWidth:  img.Cols(),
		ImageHeight: img.Rows(),
		Detections:  detections,
		Annotated:   annotated,
	}, nil
}

// DetectVideo обрабатывает видео покадрово и пишет результат в outDir.
// Путь к готовому файлу возвращается напрямую, без сканирования каталога.
func (d *YOLODetector) DetectVideo(ctx context.Context, videoPath, outDir string, confidence float64) (string, error) {
	_ = ctx

	capture, err := gocv.OpenVideoCapture(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer capture.Close()

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 25
	}
	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(capture.Get(gocv.VideoCaptureFrameHeight))

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	outPath := filepath.Join(outDir, outputName)
	writer, err := gocv.VideoWriterFile(outPath, "avc1", fps, width, height, true)
	if err != nil {
		return "", fmt.Errorf("create video writer: %w", err)
	}
	defer writer.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	frames := 0
	for {
		if ok := capture.Read(&frame); !ok {
			break
		}
		if frame.Empty() {
			continue
		}

		detections, err := d.detectMat(&frame, float32(confidence))
		if err != nil {
			return "", err
		}
		drawDetections(&frame, detections)

		if err := writer.Write(frame); err != nil {
			return "", fmt.Errorf("write frame: %w", err)
		}
		frames++
	}

	if frames == 0 {
		_ = os.Remove(outPath)
		return "", port.ErrNoVideoProduced
	}

	return outPath, nil
}

// detectMat прогоняет кадр через сеть и возвращает находки выше порога.
func (d *YOLODetector) detectMat(img *gocv.Mat, confThreshold float32) ([]entity.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(*img, 1.0/255.0, image.Pt(inputSize, inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	// Выход ультралитиксовских моделей транспонирован: [1, 4+классы, боксы].
	gocv.TransposeND(output, []int{0, 2, 1}, &output)

	out2d := output.Reshape(1, output.Size()[1])
	defer out2d.Close()

	scaleX := float32(img.Cols()) / float32(inputSize)
	scaleY := float32(img.Rows()) / float32(inputSize)

	var boxes []image.Rectangle
	var confidences []float32
	var classIDs []int

	cols := out2d.Cols()
	for i := 0; i < out2d.Rows(); i++ {
		row := out2d.RowRange(i, i+1)

		// Колонки 4:cols — уверенности по каждому классу.
		scores := row.ColRange(4, cols)
		_, confidence, _, classLoc := gocv.MinMaxLoc(scores)
		scores.Close()

		if confidence < confThreshold {
			row.Close()
			continue
		}

		// Колонки 0 и 1 — центр рамки, 2 и 3 — её размеры.
		cx := row.GetFloatAt(0, 0) * scaleX
		cy := row.GetFloatAt(0, 1) * scaleY
		halfW := row.GetFloatAt(0, 2) / 2 * scaleX
		halfH := row.GetFloatAt(0, 3) / 2 * scaleY
		row.Close()

		boxes = append(boxes, image.Rect(int(cx-halfW), int(cy-halfH), int(cx+halfW), int(cy+halfH)))
		confidences = append(confidences, confidence)
		classIDs = append(classIDs, classLoc.X)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, confThreshold, nmsThreshold)

	detections := make([]entity.Detection, 0, len(indices))
	for _, idx := range indices {
		detections = append(detections, entity.Detection{
			Label:      d.className(classIDs[idx]),
			Confidence: confidences[idx],
			Box:        boxes[idx],
		})
	}

	return detections, nil
}

func (d *YOLODetector) className(id int) string {
	if id >= 0 && id < len(d.classNames) {
		return d.classNames[id]
	}
	return fmt.Sprintf("class %d", id)
}

// drawDetections рисует рамки и подписи прямо на кадре.
func drawDetections(mat *gocv.Mat, detections []entity.Detection) {
	green := color.RGBA{G: 255, A: 255}
	for _, det := range detections {
		gocv.Rectangle(mat, det.Box, green, 2)

		label := fmt.Sprintf("%s %.2f", det.Label, det.Confidence)
		origin := image.Pt(det.Box.Min.X, det.Box.Min.Y-6)
		gocv.PutText(mat, label, origin, gocv.FontHersheySimplex, 0.6, green, 2)
	}
}

// encodeAnnotated переводит кадр из BGR-порядка OpenCV в RGB и кодирует JPEG.
func encodeAnnotated(mat gocv.Mat) ([]byte, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// loadClassNames читает имена классов, по одному на строку.
// Пустой путь допустим: классы получат имена по индексу.
func loadClassNames(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}

	return names, nil
}
