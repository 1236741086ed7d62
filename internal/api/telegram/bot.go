package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"fruit-vision/config"
	app "fruit-vision/internal/application"
	"fruit-vision/internal/domain/entity"
	"fruit-vision/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я бот для распознавания фруктов на фото и видео.

📸 Отправьте мне фото или видео, и я найду фрукты и посчитаю их по классам.

📋 Команды:
/check — начать распознавание
/threshold — задать порог уверенности
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте фото или видео с фруктами
2️⃣ Бот прогонит файл через детектор
3️⃣ Вы получите файл с разметкой и количество фруктов по классам

💡 Рекомендации:
• Чем ниже порог — тем больше находок
• Чем выше порог — тем точнее находки

📋 Команды:
/check — начать распознавание
/threshold — задать порог уверенности
/cancel — отменить операцию`

	msgAwaitingMedia   = "📸 Отправьте фото или видео с фруктами."
	msgCancelled       = "❌ Операция отменена. Отправьте /check для нового распознавания."
	msgSendMedia       = "📸 Пожалуйста, отправьте фото или видео для распознавания."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessingImage = "🔍 Ищу фрукты..."
	msgProcessingVideo = "⏳ Обрабатываю видео..."
	msgNoFruits        = "❌ Фрукты не обнаружены."
	msgProcessingError = "⚠️ Не удалось обработать файл. Попробуйте отправить другой."
	msgVideoNotFound   = "⚠️ Обработанное видео не найдено."
	msgAskThreshold    = "🎯 Отправьте новый порог уверенности — число от 0.1 до 1.0."
	msgBadThreshold    = "⚠️ Не получилось разобрать число. Отправьте порог от 0.1 до 1.0."
)

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	sessions  *app.SessionService
	detection *app.DetectionService
	modelPath string
	log       *zap.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, sessions *app.SessionService, detection *app.DetectionService, modelPath string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Info("authorized on account", zap.String("username", api.Self.UserName))

	return &Bot{
		api:       api,
		sessions:  sessions,
		detection: detection,
		modelPath: modelPath,
		log:       logger,
	}, nil
}

// Run запускает основной цикл обработки сообщений
func (b *Bot) Run() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	ctx := context.Background()

	for update := range updates {
		if update.Message == nil {
			continue
		}

		b.handleMessage(ctx, update.Message)
	}

	return nil
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	session, err := b.sessions.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.log.Error("get session", zap.Error(err))
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, session)
		return
	}

	// Обработка медиа
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg, session)
		return
	}
	if msg.Video != nil {
		b.handleVideo(ctx, msg, session)
		return
	}

	// Текстовое сообщение (не команда)
	if session.State == entity.StateAwaitingThreshold {
		b.handleThreshold(ctx, msg)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendMedia)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, session *entity.Session) {
	switch msg.Command() {
	case "start":
		b.sessions.Cancel(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "check":
		b.sessions.BeginDetection(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgAwaitingMedia)

	case "threshold":
		b.sessions.AwaitThreshold(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("%s\nТекущий порог: %.2f", msgAskThreshold, session.Confidence))

	case "cancel":
		b.sessions.Cancel(ctx, msg.From.ID, msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handleThreshold разбирает новый порог уверенности из текста
func (b *Bot) handleThreshold(ctx context.Context, msg *tgbotapi.Message) {
	value, err := strconv.ParseFloat(strings.TrimSpace(msg.Text), 64)
	if err != nil {
		b.sendMessage(msg.Chat.ID, msgBadThreshold)
		return
	}

	session, err := b.sessions.SetConfidence(ctx, msg.From.ID, msg.Chat.ID, config.ClampConfidence(value))
	if err != nil {
		b.log.Error("set confidence", zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	b.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Порог уверенности: %.2f", session.Confidence))
}

// handlePhoto обрабатывает входящее фото
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, session *entity.Session) {
	b.sessions.SetState(ctx, msg.From.ID, msg.Chat.ID, entity.StateProcessing)
	defer b.sessions.Cancel(ctx, msg.From.ID, msg.Chat.ID)

	b.sendMessage(msg.Chat.ID, msgProcessingImage)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	data, err := b.downloadFile(photo.FileID)
	if err != nil {
		b.log.Error("download photo", zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	out, err := b.detection.ProcessImage(ctx, b.modelPath, session.Confidence, data)
	if err != nil {
		b.log.Error("process image", zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	reply := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  "detected.jpg",
		Bytes: out.Result.Annotated,
	})
	if out.Result.HasDetections() {
		reply.Caption = formatCounts(out.Counts)
	} else {
		reply.Caption = msgNoFruits
	}

	if _, err := b.api.Send(reply); err != nil {
		b.log.Error("send photo", zap.Error(err))
	}
}

// handleVideo обрабатывает входящее видео
func (b *Bot) handleVideo(ctx context.Context, msg *tgbotapi.Message, session *entity.Session) {
	b.sessions.SetState(ctx, msg.From.ID, msg.Chat.ID, entity.StateProcessing)
	defer b.sessions.Cancel(ctx, msg.From.ID, msg.Chat.ID)

	b.sendMessage(msg.Chat.ID, msgProcessingVideo)

	data, err := b.downloadFile(msg.Video.FileID)
	if err != nil {
		b.log.Error("download video", zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	name := msg.Video.FileName
	if name == "" {
		name = "video.mp4"
	}

	out, err := b.detection.ProcessVideo(ctx, b.modelPath, session.Confidence, data, name)
	if errors.Is(err, port.ErrNoVideoProduced) {
		b.sendMessage(msg.Chat.ID, msgVideoNotFound)
		return
	}
	if err != nil {
		b.log.Error("process video", zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	reply := tgbotapi.NewVideo(msg.Chat.ID, tgbotapi.FilePath(out.OutputPath))
	reply.Caption = "✅ Готово. Видео с разметкой во вложении."

	if _, err := b.api.Send(reply); err != nil {
		b.log.Error("send video", zap.Error(err))
	}
}

// formatCounts собирает сводку по классам в подпись к фото
func formatCounts(counts entity.CountSummary) string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var sb strings.Builder
	sb.WriteString("🍎 Найдено:\n")
	for _, label := range labels {
		fmt.Fprintf(&sb, "• %s — %d\n", label, counts[label])
	}

	return strings.TrimRight(sb.String(), "\n")
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(b.api.Token)

	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", zap.Error(err))
	}
}
