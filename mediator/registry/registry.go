// Package registry реализует резервный путь диспетчеризации во время
// выполнения: отображение идентичности типа сообщения на непрозрачные
// вызываемые обертки обработчиков. Точки вызова, для которых построено
// статическое перенаправление, сюда не попадают; реестр обслуживает
// динамические сценарии и вызовы без известного на этапе анализа
// обработчика.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/x-research-team/mdx-framework/mediator/facts"
	"github.com/x-research-team/mdx-framework/mediator/pipeline"
)

// Invocation — одна зарегистрированная обертка обработчика.
type Invocation struct {
	// id — уникальный идентификатор регистрации (UUID), используемый для
	// ее безопасного удаления.
	id string
	// HandlerID — стабильный идентификатор обработчика для диагностики.
	HandlerID string
	// Invoke запускает скомпилированный конвейер обработчика.
	Invoke pipeline.Invoker
	// AsyncOnly помечает обертки, которые нельзя вызывать синхронно:
	// асинхронный метод, асинхронное middleware или каскадирующий кортеж.
	AsyncOnly bool
}

// Registry — потокобезопасный реестр оберток обработчиков. Снимки списков
// по типу сообщения кешируются и инвалидируются при каждой регистрации
// и отмене регистрации.
type Registry struct {
	handlers map[string][]*Invocation
	mu       sync.RWMutex
	cache    sync.Map
}

// New создает пустой реестр.
func New() *Registry {
	return &Registry{
		handlers: make(map[string][]*Invocation),
	}
}

// Register регистрирует обертку обработчика для типа сообщения и
// возвращает функцию отмены регистрации.
func (r *Registry) Register(messageName string, inv Invocation) (unregister func(), err error) {
	if inv.Invoke == nil {
		return nil, fmt.Errorf("регистрация для '%s': обертка обработчика не задана", messageName)
	}

	reg := &Invocation{
		id:        uuid.NewString(),
		HandlerID: inv.HandlerID,
		Invoke:    inv.Invoke,
		AsyncOnly: inv.AsyncOnly,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[messageName] = append(r.handlers[messageName], reg)
	r.cache.Delete(messageName)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		invs := r.handlers[messageName]
		for i, h := range invs {
			if h.id == reg.id {
				r.handlers[messageName] = append(invs[:i], invs[i+1:]...)
				r.cache.Delete(messageName)
				break
			}
		}
	}, nil
}

// snapshot возвращает кешируемый снимок оберток для типа сообщения.
// Снимок кладется в кеш под блокировкой чтения: иначе регистрация между
// копированием и записью могла бы закрепить устаревший снимок до
// следующей инвалидации.
func (r *Registry) snapshot(messageName string) []*Invocation {
	if cached, ok := r.cache.Load(messageName); ok {
		return cached.([]*Invocation)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if cached, ok := r.cache.Load(messageName); ok {
		return cached.([]*Invocation)
	}

	invs := make([]*Invocation, len(r.handlers[messageName]))
	copy(invs, r.handlers[messageName])
	r.cache.Store(messageName, invs)
	return invs
}

// Invoke синхронно вызывает единственный обработчик сообщения. Ноль или
// больше одного обработчика, как и асинхронная обертка, являются ошибкой.
func (r *Registry) Invoke(ctx context.Context, msg any) (pipeline.Result, error) {
	name := facts.RuntimeName(msg)
	inv, err := r.exactlyOne(name)
	if err != nil {
		return pipeline.Result{}, err
	}
	if inv.AsyncOnly {
		return pipeline.Result{}, fmt.Errorf(
			"синхронный Invoke для '%s': обработчик %s допускает только асинхронный вызов", name, inv.HandlerID)
	}
	return inv.Invoke(ctx, msg)
}

// InvokeAsync вызывает единственный обработчик сообщения. Ноль или больше
// одного обработчика являются ошибкой: для веерной доставки используется
// PublishAsync.
func (r *Registry) InvokeAsync(ctx context.Context, msg any) (pipeline.Result, error) {
	inv, err := r.exactlyOne(facts.RuntimeName(msg))
	if err != nil {
		return pipeline.Result{}, err
	}
	return inv.Invoke(ctx, msg)
}

// PublishAsync доставляет сообщение всем обработчикам. Ноль обработчиков
// не является ошибкой. Ошибки отдельных обработчиков агрегируются: каждый
// обработчик получает попытку доставки.
func (r *Registry) PublishAsync(ctx context.Context, msg any) error {
	name := facts.RuntimeName(msg)

	var errs []error
	for _, inv := range r.snapshot(name) {
		if _, err := inv.Invoke(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("публикация '%s' обработчику %s: %w", name, inv.HandlerID, err))
		}
	}
	return errors.Join(errs...)
}

// exactlyOne возвращает единственную обертку для типа сообщения.
func (r *Registry) exactlyOne(messageName string) (*Invocation, error) {
	invs := r.snapshot(messageName)
	switch len(invs) {
	case 1:
		return invs[0], nil
	case 0:
		return nil, fmt.Errorf("для '%s' не зарегистрирован обработчик", messageName)
	default:
		return nil, fmt.Errorf(
			"для '%s' зарегистрировано %d обработчиков: используйте PublishAsync для веерной доставки",
			messageName, len(invs))
	}
}
