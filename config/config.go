package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr   = ":8080"
	defaultRunsDir    = "runs/detect"
	defaultConfidence = 0.4
)

type Config struct {
	ModelPath      string  // путь к ONNX-модели YOLO
	ClassNamesPath string  // путь к файлу с именами классов (по строке на класс)
	HTTPAddr       string  // адрес HTTP-сервера
	TelegramToken  string  // токен бота; пустой — бот не запускается
	RunsDir        string  // каталог для результатов обработки видео
	Confidence     float64 // порог уверенности по умолчанию
	Debug          bool
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		ModelPath:      os.Getenv("MODEL_PATH"),
		ClassNamesPath: os.Getenv("CLASS_NAMES_PATH"),
		HTTPAddr:       envOrDefault("HTTP_ADDR", defaultHTTPAddr),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		RunsDir:        envOrDefault("RUNS_DIR", defaultRunsDir),
		Confidence:     defaultConfidence,
		Debug:          os.Getenv("DEBUG") == "true",
	}

	if raw := os.Getenv("DEFAULT_CONFIDENCE"); raw != "" {
		conf, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse DEFAULT_CONFIDENCE: %w", err)
		}
		cfg.Confidence = ClampConfidence(conf)
	}

	return cfg, nil
}

// ClampConfidence приводит порог уверенности к допустимому диапазону [0.1, 1.0].
func ClampConfidence(conf float64) float64 {
	if conf < 0.1 {
		return 0.1
	}
	if conf > 1.0 {
		return 1.0
	}
	return conf
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
