package cascade

import (
	"context"
	"log/slog"
	"sync"

	"github.com/x-research-team/mdx-framework/mediator/facts"
	"github.com/x-research-team/mdx-framework/mediator/pipeline"
)

// task - это единица отсоединенной каскадной доставки.
type task struct {
	ctx    context.Context
	msg    any
	invoke pipeline.Invoker
}

// workerPool - это пул горутин для фоновой доставки каскадных сообщений.
type workerPool struct {
	minWorkers int
	maxWorkers int
	tasks      chan *task
	wg         sync.WaitGroup
	stopCh     chan struct{}
	logger     *slog.Logger
}

// newWorkerPool создает новый пул воркеров.
func newWorkerPool(min, max, queueSize int, logger *slog.Logger) *workerPool {
	return &workerPool{
		minWorkers: min,
		maxWorkers: max,
		tasks:      make(chan *task, queueSize),
		stopCh:     make(chan struct{}),
		logger:     logger,
	}
}

// run запускает воркеров пула.
func (p *workerPool) run() {
	for i := 0; i < p.minWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop останавливает всех воркеров и дожидается их завершения.
func (p *workerPool) stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// enqueue добавляет задачу в очередь на выполнение. Возвращает false,
// если очередь заполнена или пул остановлен: отправитель не блокируется.
func (p *workerPool) enqueue(t *task) bool {
	select {
	case <-p.stopCh:
		return false
	case p.tasks <- t:
		return true
	default:
		return false
	}
}

// worker - это основная функция горутины-воркера. Ошибки доставки
// логируются и проглатываются: у отсоединенной работы нет наблюдателя.
func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			if _, err := t.invoke(t.ctx, t.msg); err != nil {
				p.logger.Error("ошибка фоновой каскадной доставки",
					slog.String("message_type", facts.RuntimeName(t.msg)),
					slog.Any("error", err),
				)
			}
		case <-p.stopCh:
			return
		}
	}
}
