// Package journal реализует надежную каскадную доставку: каскадируемые
// сообщения записываются в персистентное хранилище, а фоновый
// ретранслятор повторно доставляет незавершенные записи. Журнал
// используется вместе со стратегией FireAndForget, где ошибки фоновых
// вызовов не наблюдаются вызывающим.
package journal

import (
	"time"

	"github.com/google/uuid"
)

const (
	// StatusPending означает, что запись ожидает доставки.
	StatusPending = "PENDING"
	// StatusProcessed означает, что запись была успешно доставлена.
	StatusProcessed = "PROCESSED"
)

// Message представляет каскадируемое сообщение, сохраненное в журнале.
type Message struct {
	ID          uuid.UUID         // Уникальный идентификатор записи
	MessageType string            // Полное имя типа сообщения
	Payload     []byte            // Сериализованное тело сообщения
	Metadata    map[string]string // Метаданные (для трассировки и т.д.)
	Status      string            // Статус (PENDING, PROCESSED)
	CreatedAt   time.Time         // Время записи
	ProcessedAt *time.Time        // Время доставки
}

// NewMessage создает запись журнала в статусе ожидания доставки.
func NewMessage(messageType string, payload []byte, metadata map[string]string) *Message {
	return &Message{
		ID:          uuid.New(),
		MessageType: messageType,
		Payload:     payload,
		Metadata:    metadata,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}
