package journal

import (
	"context"

	"github.com/google/uuid"
)

// Storage определяет контракт персистентного хранения записей журнала.
// Все операции должны быть потокобезопасными.
type Storage interface {
	// Save сохраняет запись в хранилище. Реализация ОБЯЗАНА извлечь объект
	// транзакции из контекста, если запись должна быть атомарной с
	// эффектами основного обработчика.
	Save(ctx context.Context, msg *Message) error

	// Fetch извлекает недоставленные записи из хранилища.
	Fetch(ctx context.Context, limit int) ([]*Message, error)

	// MarkProcessed помечает записи как доставленные.
	MarkProcessed(ctx context.Context, ids ...uuid.UUID) error
}
