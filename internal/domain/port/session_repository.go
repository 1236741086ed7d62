package port

import (
	"context"

	"fruit-vision/internal/domain/entity"
)

// SessionRepository интерфейс хранилища диалогов
type SessionRepository interface {
	// Get возвращает диалог по ID пользователя, создаёт новый если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.Session, error)

	// Save сохраняет состояние диалога
	Save(ctx context.Context, session *entity.Session) error
}
