package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Dispatch доставляет одну запись журнала ее обработчикам. Вызывающий
// отвечает за десериализацию тела в конкретный тип сообщения и за выбор
// поверхности диспетчеризации (обычно PublishAsync реестра).
type Dispatch func(ctx context.Context, messageType string, payload []byte, metadata map[string]string) error

// Option определяет функцию для конфигурации Retransmitter.
type Option func(*Retransmitter)

// WithInterval устанавливает интервал опроса хранилища.
func WithInterval(interval time.Duration) Option {
	return func(r *Retransmitter) {
		r.interval = interval
	}
}

// WithLimit устанавливает максимальное количество записей, извлекаемых за один раз.
func WithLimit(limit int) Option {
	return func(r *Retransmitter) {
		r.limit = limit
	}
}

// WithLogger устанавливает логгер.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retransmitter) {
		r.logger = logger
	}
}

// Retransmitter - это фоновый процесс для надежной доставки записей
// журнала. Недоставленные записи периодически извлекаются из хранилища
// и передаются в Dispatch; успешно доставленные помечаются.
type Retransmitter struct {
	storage  Storage
	dispatch Dispatch
	ticker   *time.Ticker
	done     chan struct{}
	interval time.Duration
	limit    int
	logger   *slog.Logger
}

// NewRetransmitter создает новый экземпляр Retransmitter.
func NewRetransmitter(storage Storage, dispatch Dispatch, opts ...Option) *Retransmitter {
	r := &Retransmitter{
		storage:  storage,
		dispatch: dispatch,
		done:     make(chan struct{}),
		interval: 5 * time.Second, // Значение по умолчанию
		limit:    100,             // Значение по умолчанию
		logger:   slog.Default(),  // Логгер по умолчанию
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start запускает фоновый процесс.
func (r *Retransmitter) Start() {
	r.ticker = time.NewTicker(r.interval)
	go func() {
		r.logger.Info("Ретранслятор журнала запущен")
		for {
			select {
			case <-r.ticker.C:
				if err := r.ProcessBatch(context.Background()); err != nil {
					r.logger.Error("Ошибка при обработке пакета", "error", err)
				}
			case <-r.done:
				r.logger.Info("Ретранслятор журнала остановлен")
				return
			}
		}
	}()
}

// ProcessBatch выполняет один цикл выборки и доставки записей.
func (r *Retransmitter) ProcessBatch(ctx context.Context) error {
	messages, err := r.storage.Fetch(ctx, r.limit)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		return nil
	}

	r.logger.Info("Извлечено записей для повторной доставки", "count", len(messages))

	processedIDs := make([]uuid.UUID, 0, len(messages))
	for _, msg := range messages {
		if err := r.dispatch(ctx, msg.MessageType, msg.Payload, msg.Metadata); err != nil {
			r.logger.Error("Ошибка доставки записи журнала",
				"message_id", msg.ID,
				"message_type", msg.MessageType,
				"error", err,
			)
			continue
		}
		processedIDs = append(processedIDs, msg.ID)
	}

	if len(processedIDs) > 0 {
		if err := r.storage.MarkProcessed(ctx, processedIDs...); err != nil {
			return err
		}
		r.logger.Info("Успешно доставлено и помечено записей", "count", len(processedIDs))
	}

	return nil
}

// Stop останавливает фоновый процесс.
func (r *Retransmitter) Stop() {
	if r.ticker != nil {
		r.ticker.Stop()
	}
	close(r.done)
}
