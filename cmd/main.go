package main

import (
	"log"

	"go.uber.org/zap"

	"fruit-vision/config"
	"fruit-vision/internal/api/telegram"
	"fruit-vision/internal/api/web"
	"fruit-vision/internal/container"
	"fruit-vision/internal/infrastructure/storage"
	"fruit-vision/internal/infrastructure/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ModelPath == "" {
		log.Fatal("MODEL_PATH is required")
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Кеш детекторов: веса модели загружаются один раз на процесс
	registry := vision.NewRegistry(cfg.ClassNamesPath)

	// Прогреваем модель по умолчанию, чтобы ошибка конфигурации была видна сразу.
	// Процесс не останавливаем: путь можно исправить прямо на странице.
	if _, err := registry.Detector(cfg.ModelPath); err != nil {
		logger.Warn("default model is not loadable", zap.Error(err))
	}

	store := storage.NewTempMediaStore("")
	sessionRepo := storage.NewMemorySessionRepository(cfg.Confidence)

	appContainer := container.New(sessionRepo, registry, store, cfg.RunsDir)

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.SessionService, appContainer.DetectionService, cfg.ModelPath, logger)
		if err != nil {
			logger.Fatal("failed to create bot", zap.Error(err))
		}

		go func() {
			if err := bot.Run(); err != nil {
				logger.Error("bot stopped", zap.Error(err))
			}
		}()
		logger.Info("bot is running")
	}

	server := web.NewServer(appContainer.DetectionService, cfg.ModelPath, cfg.Confidence, logger)

	logger.Info("http server is running", zap.String("addr", cfg.HTTPAddr))
	if err := server.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal("http server error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
