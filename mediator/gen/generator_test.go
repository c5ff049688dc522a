package gen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/mdx-framework/mediator/callsite"
	"github.com/x-research-team/mdx-framework/mediator/facts"
	"github.com/x-research-team/mdx-framework/mediator/gen"
	"github.com/x-research-team/mdx-framework/mediator/lifetime"
	"github.com/x-research-team/mdx-framework/mediator/match"
	"github.com/x-research-team/mdx-framework/mediator/pipeline"
)

func entryPoint(responseType string) *callsite.EntryPoint {
	return &callsite.EntryPoint{
		Name:        "InvokeAsync_app_CreateOrder_0a1b2c3d",
		MessageName: "app.CreateOrder",
		Key: callsite.GroupKey{
			Method:       facts.MethodInvokeAsync,
			ResponseType: responseType,
		},
	}
}

func handler() *facts.HandlerDescriptor {
	return &facts.HandlerDescriptor{
		OwnerType: "app.OrderHandler",
		Method:    "Handle",
		Message:   &facts.MessageType{Name: "app.CreateOrder"},
		Returns:   facts.ReturnShape{Kind: facts.ReturnValue},
	}
}

func render(t *testing.T, h *facts.HandlerDescriptor, applicable []match.Applicable, cfg facts.Config, strategy lifetime.Strategy) string {
	t.Helper()

	shape := pipeline.Synthesize(h, applicable, cfg)
	sink := gen.NewBufferSink()
	gen.NewGenerator(cfg).EntryPoint(sink, entryPoint("app.OrderView"), h, shape, strategy)
	return sink.String()
}

func TestGenerator_Passthrough(t *testing.T) {
	t.Parallel()

	out := render(t, handler(), nil, facts.DefaultConfig(), lifetime.StrategyCachedNew)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, "сквозной вызов — это сигнатура, один return и закрывающая скобка")
	assert.Contains(t, lines[1], "return")
	assert.NotContains(t, out, "defer", "без Finally и телеметрии нет try/catch")
	assert.NotContains(t, out, "result, err =", "переменная результата не нужна")
}

func TestGenerator_FinallyBlocks(t *testing.T) {
	t.Parallel()

	h := handler()
	applicable := match.Resolve(h, []*facts.MiddlewareDescriptor{
		{
			OwnerType: "app.AlphaMiddleware",
			Message:   &facts.MessageType{Name: "app.CreateOrder"},
			Order:     1,
			Finally:   &facts.PhaseMethod{Name: "Finally"},
		},
		{
			OwnerType: "app.BetaMiddleware",
			Message:   &facts.MessageType{Name: "app.CreateOrder"},
			Order:     2,
			Finally:   &facts.PhaseMethod{Name: "Finally"},
		},
	})

	out := render(t, h, applicable, facts.DefaultConfig(), lifetime.StrategyCachedNew)

	alphaIdx := strings.Index(out, `defer runFinally(ctx, "app.AlphaMiddleware"`)
	betaIdx := strings.Index(out, `defer runFinally(ctx, "app.BetaMiddleware"`)
	require.NotEqual(t, -1, alphaIdx)
	require.NotEqual(t, -1, betaIdx)
	assert.Less(t, alphaIdx, betaIdx,
		"defer выполняется в порядке LIFO: запись в прямом порядке дает реверсное выполнение Finally-фаз")

	assert.Contains(t, out, "(result app.OrderView, err error) {",
		"defer-блоки пишут в именованные возвращаемые значения")
}

func TestGenerator_NamedReturnsForVoidWithFinally(t *testing.T) {
	t.Parallel()

	// Void-обработчик с Finally: переменной результата нет, но defer-блок
	// все равно ссылается на result и err — их объявляет сигнатура.
	h := handler()
	h.Returns = facts.ReturnShape{Kind: facts.ReturnVoid}
	applicable := match.Resolve(h, []*facts.MiddlewareDescriptor{
		{
			OwnerType: "app.CleanupMiddleware",
			Message:   &facts.MessageType{Name: "app.CreateOrder"},
			Finally:   &facts.PhaseMethod{Name: "Finally"},
		},
	})

	out := render(t, h, applicable, facts.DefaultConfig(), lifetime.StrategyCachedNew)
	assert.Contains(t, out, "(result app.OrderView, err error) {")
	assert.Contains(t, out, `defer runFinally(ctx, "app.CleanupMiddleware", msg, &result, &err)`)
}

func TestGenerator_AfterAbortsOnError(t *testing.T) {
	t.Parallel()

	h := handler()
	applicable := match.Resolve(h, []*facts.MiddlewareDescriptor{
		{
			OwnerType: "app.AuditMiddleware",
			Message:   &facts.MessageType{Name: "app.CreateOrder"},
			After:     &facts.PhaseMethod{Name: "After"},
		},
	})

	out := render(t, h, applicable, facts.DefaultConfig(), lifetime.StrategyCachedNew)
	assert.Contains(t, out, `if err = runAfter(ctx, "app.AuditMiddleware", msg, result); err != nil {`,
		"ошибка After-фазы прерывает конвейер, как и в скомпилированном инвокере")
}

func TestGenerator_PublishFanOut(t *testing.T) {
	t.Parallel()

	publishEntry := &callsite.EntryPoint{
		Name:        "PublishAsync_app_CreateOrder_1f2e3d4c",
		MessageName: "app.CreateOrder",
		Key:         callsite.GroupKey{Method: facts.MethodPublishAsync},
	}

	t.Run("ноль обработчиков — пустая доставка", func(t *testing.T) {
		t.Parallel()

		sink := gen.NewBufferSink()
		gen.NewGenerator(facts.DefaultConfig()).PublishEntryPoint(sink, publishEntry, nil)

		out := sink.String()
		assert.Contains(t, out, "func PublishAsync_app_CreateOrder_1f2e3d4c(ctx context.Context, msg app.CreateOrder) error {")
		assert.Contains(t, out, "return nil")
		assert.NotContains(t, out, "errs")
	})

	t.Run("веер по всем обработчикам с агрегацией ошибок", func(t *testing.T) {
		t.Parallel()

		second := handler()
		second.OwnerType = "app.AuditHandler"

		sink := gen.NewBufferSink()
		gen.NewGenerator(facts.DefaultConfig()).PublishEntryPoint(sink, publishEntry,
			[]*facts.HandlerDescriptor{handler(), second})

		out := sink.String()
		assert.Contains(t, out, "handler := cachedNew[app.OrderHandler]()")
		assert.Contains(t, out, "handler := cachedNew[app.AuditHandler]()")
		assert.Contains(t, out, "errs = append(errs, err)")
		assert.Contains(t, out, "return errors.Join(errs...)")
	})
}

func TestGenerator_ShortCircuitChecks(t *testing.T) {
	t.Parallel()

	h := handler()
	applicable := match.Resolve(h, []*facts.MiddlewareDescriptor{
		{
			OwnerType: "app.GuardMiddleware",
			Message:   &facts.MessageType{Name: "app.CreateOrder"},
			Before:    &facts.PhaseMethod{Name: "Before"},
		},
	})

	out := render(t, h, applicable, facts.DefaultConfig(), lifetime.StrategyCachedNew)
	assert.Contains(t, out, `runBefore(ctx, "app.GuardMiddleware", msg)`)
	assert.Contains(t, out, "return short, nil", "Before-фаза может закоротить конвейер")
}

func TestGenerator_CascadePublish(t *testing.T) {
	t.Parallel()

	h := handler()
	h.Returns = facts.ReturnShape{
		Kind:       facts.ReturnTuple,
		TupleSlots: []string{"app.OrderConfirmed", "app.OrderShipped"},
	}

	out := render(t, h, nil, facts.DefaultConfig(), lifetime.StrategyCachedNew)
	assert.Contains(t, out, "callsite.AddressSlot(tupleItems(result), 0)")
	assert.Contains(t, out, "publisher.Publish(ctx, cascades, resolveCascade)")
}

func TestGenerator_InstanceAcquisition(t *testing.T) {
	t.Parallel()

	// Любое middleware выключает сквозной вызов, чтобы тело рендерилось целиком.
	applicable := func() []match.Applicable {
		return match.Resolve(handler(), []*facts.MiddlewareDescriptor{
			{
				OwnerType: "app.AuditMiddleware",
				Message:   &facts.MessageType{Name: "app.CreateOrder"},
				After:     &facts.PhaseMethod{Name: "After"},
			},
		})
	}

	t.Run("StaticDirect вызывает метод типа напрямую", func(t *testing.T) {
		t.Parallel()

		h := handler()
		h.IsStatic = true
		out := render(t, h, applicable(), facts.DefaultConfig(), lifetime.StrategyStaticDirect)
		assert.Contains(t, out, "app.OrderHandler.Handle(ctx, msg)")
		assert.NotContains(t, out, "handler :=")
	})

	t.Run("DIPerInvocation разрешает из контейнера", func(t *testing.T) {
		t.Parallel()

		out := render(t, handler(), applicable(), facts.DefaultConfig(), lifetime.StrategyDIPerInvocation)
		assert.Contains(t, out, "handler := resolve[app.OrderHandler](ctx)")
	})

	t.Run("CachedNew использует статический кеш", func(t *testing.T) {
		t.Parallel()

		out := render(t, handler(), applicable(), facts.DefaultConfig(), lifetime.StrategyCachedNew)
		assert.Contains(t, out, "handler := cachedNew[app.OrderHandler]()")
	})

	t.Run("CachedActivatorCreate создает через контейнер", func(t *testing.T) {
		t.Parallel()

		out := render(t, handler(), applicable(), facts.DefaultConfig(), lifetime.StrategyCachedActivatorCreate)
		assert.Contains(t, out, "handler := cachedCreate[app.OrderHandler](ctx)")
	})
}

func TestGenerator_Telemetry(t *testing.T) {
	t.Parallel()

	cfg := facts.DefaultConfig()
	cfg.TelemetryEnabled = true

	out := render(t, handler(), nil, cfg, lifetime.StrategyCachedNew)
	assert.Contains(t, out, `tracer.Start(ctx, "app.CreateOrder process")`)
	assert.Contains(t, out, "defer endSpan(span, &err)")
}

func TestGenerator_Registration(t *testing.T) {
	t.Parallel()

	sink := gen.NewBufferSink()
	g := gen.NewGenerator(facts.DefaultConfig())

	assert.False(t, g.Registration(sink, "app.OrderHandler", facts.LifetimeNone),
		"None не регистрируется в контейнере")
	assert.Empty(t, sink.String())

	assert.True(t, g.Registration(sink, "app.OrderHandler", facts.LifetimeScoped))
	assert.Contains(t, sink.String(), `container.Register("app.OrderHandler", lifetime.Scoped)`)
}

func TestBufferSink_Indentation(t *testing.T) {
	t.Parallel()

	sink := gen.NewBufferSink()
	sink.Line("a {")
	sink.Indent()
	sink.Line("b")
	sink.Dedent()
	sink.Line("}")
	sink.Dedent() // лишний Dedent не уводит отступ в минус
	sink.Line("c")

	assert.Equal(t, "a {\n\tb\n}\nc\n", sink.String())
}
