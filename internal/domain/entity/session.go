package entity

// SessionState состояние диалога с пользователем
type SessionState string

const (
	StateMainMenu          SessionState = "main_menu"          // В главном меню
	StateAwaitingMedia     SessionState = "awaiting_media"     // Ожидание фото или видео
	StateAwaitingThreshold SessionState = "awaiting_threshold" // Ожидание нового порога уверенности
	StateProcessing        SessionState = "processing"         // Обработка медиа
)

// Session представляет диалог с пользователем бота
type Session struct {
	UserID     int64        // Telegram User ID
	ChatID     int64        // Telegram Chat ID
	State      SessionState // Текущее состояние диалога
	Confidence float64      // Персональный порог уверенности
}

// NewSession создаёт новый диалог с начальным состоянием
func NewSession(userID, chatID int64, confidence float64) *Session {
	return &Session{
		UserID:     userID,
		ChatID:     chatID,
		State:      StateMainMenu,
		Confidence: confidence,
	}
}

// SetState обновляет состояние диалога
func (s *Session) SetState(state SessionState) {
	s.State = state
}

// SetConfidence обновляет порог уверенности
func (s *Session) SetConfidence(confidence float64) {
	s.Confidence = confidence
}
