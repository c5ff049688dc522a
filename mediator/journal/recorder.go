package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/x-research-team/mdx-framework/mediator/facts"
)

// Recorder записывает каскадируемые элементы кортежа в журнал до их
// диспетчеризации. nil-элементы пропускаются так же, как при публикации.
type Recorder struct {
	storage Storage
}

// NewRecorder создает регистратор поверх хранилища журнала.
func NewRecorder(storage Storage) *Recorder {
	return &Recorder{storage: storage}
}

// Record сериализует и сохраняет каждый непустой каскадируемый элемент.
// Запись прекращается на первой ошибке: частично записанный каскад
// доставится ретранслятором, недописанный — нет, и вызывающий узнает об этом.
func (r *Recorder) Record(ctx context.Context, items []any, metadata map[string]string) error {
	for _, item := range items {
		if facts.IsNilValue(item) {
			continue
		}

		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("не удалось сериализовать каскадируемое сообщение '%s': %w",
				facts.RuntimeName(item), err)
		}

		msg := NewMessage(facts.RuntimeName(item), payload, metadata)
		if err := r.storage.Save(ctx, msg); err != nil {
			return fmt.Errorf("не удалось записать каскадируемое сообщение '%s' в журнал: %w",
				msg.MessageType, err)
		}
	}
	return nil
}
