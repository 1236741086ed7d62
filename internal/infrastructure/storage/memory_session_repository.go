package storage

import (
	"context"
	"sync"

	"fruit-vision/internal/domain/entity"
	"fruit-vision/internal/domain/port"
)

// MemorySessionRepository in-memory хранилище диалогов
type MemorySessionRepository struct {
	mu                sync.RWMutex
	sessions          map[int64]*entity.Session
	defaultConfidence float64
}

// NewMemorySessionRepository создаёт новое in-memory хранилище
func NewMemorySessionRepository(defaultConfidence float64) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions:          make(map[int64]*entity.Session),
		defaultConfidence: defaultConfidence,
	}
}

// Get возвращает диалог по ID пользователя, создаёт новый если не найден
func (r *MemorySessionRepository) Get(ctx context.Context, userID, chatID int64) (*entity.Session, error) {
	r.mu.RLock()
	session, exists := r.sessions[userID]
	r.mu.RUnlock()

	if exists {
		return session, nil
	}

	// Создаём новый диалог с порогом по умолчанию
	newSession := entity.NewSession(userID, chatID, r.defaultConfidence)

	r.mu.Lock()
	r.sessions[userID] = newSession
	r.mu.Unlock()

	return newSession, nil
}

// Save сохраняет состояние диалога
func (r *MemorySessionRepository) Save(ctx context.Context, session *entity.Session) error {
	r.mu.Lock()
	r.sessions[session.UserID] = session
	r.mu.Unlock()

	return nil
}

// Проверка реализации интерфейса
var _ port.SessionRepository = (*MemorySessionRepository)(nil)
