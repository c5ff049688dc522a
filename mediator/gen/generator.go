package gen

import (
	"fmt"

	"github.com/x-research-team/mdx-framework/mediator/callsite"
	"github.com/x-research-team/mdx-framework/mediator/facts"
	"github.com/x-research-team/mdx-framework/mediator/lifetime"
	"github.com/x-research-team/mdx-framework/mediator/pipeline"
)

// Generator рендерит точки входа и регистрации контейнера.
type Generator struct {
	cfg facts.Config
}

// NewGenerator создает генератор с конфигурацией проекта.
func NewGenerator(cfg facts.Config) *Generator {
	return &Generator{cfg: cfg}
}

// EntryPoint рендерит одну точку входа прямой диспетчеризации. Структура
// тела в точности следует форме конвейера: каждая ветка обусловлена одним
// полем Shape, поэтому форма и текст не могут разойтись.
func (g *Generator) EntryPoint(
	sink Sink,
	ep *callsite.EntryPoint,
	h *facts.HandlerDescriptor,
	shape pipeline.Shape,
	strategy lifetime.Strategy,
) {
	// Именованные возвращаемые значения обязательны, как только тело
	// ссылается на result и err: defer-блоки Finally и телеметрии пишут в
	// них по указателю, а void-путь с Finally иначе не объявил бы их вовсе.
	if !shape.CanSkipAsyncWrapper && (shape.RequiresTryCatch || shape.RequiresResultVariable) {
		sink.Line("func %s(ctx context.Context, msg %s) (result %s, err error) {", ep.Name, ep.MessageName, responseType(ep))
	} else {
		sink.Line("func %s(ctx context.Context, msg %s) (%s, error) {", ep.Name, ep.MessageName, responseType(ep))
	}
	sink.Indent()

	if shape.CanSkipAsyncWrapper {
		// Критичный путь: прямой сквозной вызов без переменных состояния.
		sink.Line("return %s(ctx, msg)", handlerCall(h, strategy))
		sink.Dedent()
		sink.Line("}")
		return
	}

	g.instance(sink, h, strategy)

	if shape.RequiresTryCatch {
		// defer выполняется в порядке LIFO: чтобы Finally-фазы сработали в
		// реверсе Before-порядка, defer записываются в прямом порядке.
		for i := len(shape.Finally) - 1; i >= 0; i-- {
			sink.Line("defer runFinally(ctx, %q, msg, &result, &err)", shape.Finally[i])
		}
		if g.cfg.TelemetryEnabled {
			sink.Line("ctx, span := tracer.Start(ctx, %q)", ep.MessageName+" process")
			sink.Line("defer endSpan(span, &err)")
		}
	}

	for _, id := range shape.Before {
		sink.Line("if short, ok := runBefore(ctx, %q, msg); ok {", id)
		sink.Indent()
		sink.Line("return short, nil")
		sink.Dedent()
		sink.Line("}")
	}

	if shape.RequiresResultVariable {
		sink.Line("result, err = %s(ctx, msg)", handlerCall(h, strategy))
		sink.Line("if err != nil {")
		sink.Indent()
		sink.Line("return result, err")
		sink.Dedent()
		sink.Line("}")
	} else {
		sink.Line("return %s(ctx, msg)", handlerCall(h, strategy))
		sink.Dedent()
		sink.Line("}")
		return
	}

	// Ошибка After-фазы прерывает конвейер: Finally-фазы все равно
	// сработают через defer.
	for _, id := range shape.After {
		sink.Line("if err = runAfter(ctx, %q, msg, result); err != nil {", id)
		sink.Indent()
		sink.Line("return result, err")
		sink.Dedent()
		sink.Line("}")
	}

	if shape.HasCascadingMessages {
		sink.Line("response, cascades := callsite.AddressSlot(tupleItems(result), %d)", ep.Slot)
		sink.Line("err = publisher.Publish(ctx, cascades, resolveCascade)")
		sink.Line("return response.(%s), err", responseType(ep))
	} else {
		sink.Line("return result, nil")
	}

	sink.Dedent()
	sink.Line("}")
}

// PublishEntryPoint рендерит веерную точку входа публикации: сообщение
// доставляется всем обработчикам с агрегацией ошибок, каждый обработчик
// получает попытку доставки. Ноль обработчиков допустим и дает пустую
// доставку без ошибки.
func (g *Generator) PublishEntryPoint(sink Sink, ep *callsite.EntryPoint, handlers []*facts.HandlerDescriptor) {
	sink.Line("func %s(ctx context.Context, msg %s) error {", ep.Name, ep.MessageName)
	sink.Indent()

	if len(handlers) == 0 {
		sink.Line("return nil")
		sink.Dedent()
		sink.Line("}")
		return
	}

	sink.Line("var errs []error")
	for _, h := range handlers {
		strategy := lifetime.DecideHandler(h, g.cfg)
		sink.Line("{")
		sink.Indent()
		g.instance(sink, h, strategy)
		sink.Line("if _, err := %s(ctx, msg); err != nil {", handlerCall(h, strategy))
		sink.Indent()
		sink.Line("errs = append(errs, err)")
		sink.Dedent()
		sink.Line("}")
		sink.Dedent()
		sink.Line("}")
	}
	sink.Line("return errors.Join(errs...)")
	sink.Dedent()
	sink.Line("}")
}

// Registration рендерит регистрацию типа в контейнере. Для времени жизни
// None регистрация не нужна: экземпляром управляет сам движок.
func (g *Generator) Registration(sink Sink, typeName string, lt facts.Lifetime) bool {
	if lt == facts.LifetimeNone {
		return false
	}
	sink.Line("container.Register(%q, lifetime.%s)", typeName, lt)
	return true
}

// instance рендерит получение экземпляра обработчика согласно стратегии.
func (g *Generator) instance(sink Sink, h *facts.HandlerDescriptor, strategy lifetime.Strategy) {
	switch strategy {
	case lifetime.StrategyStaticDirect:
		// Экземпляр не нужен.
	case lifetime.StrategyDIPerInvocation:
		sink.Line("handler := resolve[%s](ctx)", h.OwnerType)
	case lifetime.StrategyCachedNew:
		sink.Line("handler := cachedNew[%s]()", h.OwnerType)
	case lifetime.StrategyCachedActivatorCreate:
		sink.Line("handler := cachedCreate[%s](ctx)", h.OwnerType)
	}
}

// handlerCall возвращает выражение вызова метода обработчика.
func handlerCall(h *facts.HandlerDescriptor, strategy lifetime.Strategy) string {
	if strategy == lifetime.StrategyStaticDirect {
		return fmt.Sprintf("%s.%s", h.OwnerType, h.Method)
	}
	return fmt.Sprintf("handler.%s", h.Method)
}

// responseType возвращает тип ответа точки входа.
func responseType(ep *callsite.EntryPoint) string {
	if ep.Key.ResponseType != "" {
		return ep.Key.ResponseType
	}
	return "any"
}
