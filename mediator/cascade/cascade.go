// Package cascade реализует каскадную публикацию: доставку неосновных
// элементов кортежа, возвращенного обработчиком, их собственным наборам
// обработчиков. Поддерживаются три настраиваемые стратегии доставки с
// разными компромиссами между пропускной способностью и наблюдаемостью
// ошибок.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/x-research-team/mdx-framework/mediator/facts"
	"github.com/x-research-team/mdx-framework/mediator/pipeline"
)

// Resolver находит обработчиков для каскадируемого сообщения в момент
// необходимости. Порядок возвращаемых инвокеров — порядок доставки при
// последовательной стратегии.
type Resolver func(msg any) []pipeline.Invoker

// Publisher выполняет каскадную публикацию согласно выбранной стратегии.
type Publisher struct {
	strategy facts.CascadeStrategy
	logger   *slog.Logger
	pool     *workerPool
}

// config содержит неэкспортируемую конфигурацию публикатора.
type config struct {
	logger    *slog.Logger
	workerMin int
	workerMax int
	queueSize int
}

// Option определяет тип для функциональных опций публикатора.
type Option func(*config)

// WithLogger возвращает опцию, которая устанавливает логгер публикатора.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithWorkerPoolConfig настраивает пул горутин для стратегии FireAndForget.
func WithWorkerPoolConfig(minWorkers, maxWorkers, queueSize int) Option {
	return func(c *config) {
		c.workerMin = minWorkers
		c.workerMax = maxWorkers
		c.queueSize = queueSize
	}
}

// NewPublisher создает публикатор с указанной стратегией доставки.
func NewPublisher(strategy facts.CascadeStrategy, opts ...Option) *Publisher {
	cfg := &config{
		logger:    slog.Default(),
		workerMin: 1,
		workerMax: 10,
		queueSize: 100,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Publisher{
		strategy: strategy,
		logger:   cfg.logger,
	}
	if strategy == facts.CascadeFireAndForget {
		p.pool = newWorkerPool(cfg.workerMin, cfg.workerMax, cfg.queueSize, cfg.logger)
		p.pool.run()
	}
	return p
}

// Publish доставляет каскадируемые элементы их обработчикам. nil-элементы
// (включая типизированные nil-указатели) пропускаются без диспетчеризации.
func (p *Publisher) Publish(ctx context.Context, items []any, resolve Resolver) error {
	switch p.strategy {
	case facts.CascadeTaskWhenAll:
		return p.publishConcurrent(ctx, items, resolve)
	case facts.CascadeFireAndForget:
		return p.publishDetached(ctx, items, resolve)
	default:
		return p.publishSequential(ctx, items, resolve)
	}
}

// publishSequential доставляет элементы по одному, с ожиданием каждого
// обработчика. Ошибки отдельных вызовов собираются, а не бросаются сразу:
// каждый элемент и каждый обработчик получает попытку доставки.
func (p *Publisher) publishSequential(ctx context.Context, items []any, resolve Resolver) error {
	var errs []error
	for _, item := range items {
		if facts.IsNilValue(item) {
			continue
		}
		for _, invoke := range resolve(item) {
			if _, err := invoke(ctx, item); err != nil {
				errs = append(errs, fmt.Errorf("каскадная доставка '%s': %w", facts.RuntimeName(item), err))
			}
		}
	}
	return errors.Join(errs...)
}

// publishConcurrent запускает все вызовы всех элементов без ожидания,
// затем дожидается завершения всех. Выше пропускная способность, позже
// обнаружение отказа; ошибки так же агрегируются.
func (p *Publisher) publishConcurrent(ctx context.Context, items []any, resolve Resolver) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, item := range items {
		if facts.IsNilValue(item) {
			continue
		}
		for _, invoke := range resolve(item) {
			wg.Add(1)
			go func(invoke pipeline.Invoker, item any) {
				defer wg.Done()
				if _, err := invoke(ctx, item); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("каскадная доставка '%s': %w", facts.RuntimeName(item), err))
					mu.Unlock()
				}
			}(invoke, item)
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}

// publishDetached отправляет каждый вызов в фоновый пул и возвращается
// немедленно. Отсоединенная работа получает неотменяемый сигнал: время
// жизни токена исходного запроса заканчивается раньше, чем фоновая работа.
// Ошибки внутри фоновых вызовов намеренно не наблюдаются.
func (p *Publisher) publishDetached(ctx context.Context, items []any, resolve Resolver) error {
	detached := context.WithoutCancel(ctx)
	for _, item := range items {
		if facts.IsNilValue(item) {
			continue
		}
		for _, invoke := range resolve(item) {
			if ok := p.pool.enqueue(&task{ctx: detached, msg: item, invoke: invoke}); !ok {
				p.logger.Warn("не удалось отправить каскадную задачу в пул",
					slog.String("message_type", facts.RuntimeName(item)))
			}
		}
	}
	return nil
}

// Shutdown корректно завершает работу публикатора, дожидаясь фонового пула.
func (p *Publisher) Shutdown(ctx context.Context) error {
	if p.pool != nil {
		p.pool.stop()
	}
	return nil
}
