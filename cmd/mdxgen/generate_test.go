package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/mdx-framework/mediator/facts"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleManifest() *facts.Manifest {
	return &facts.Manifest{
		Handlers: []*facts.HandlerDescriptor{
			{
				OwnerType: "app.OrderHandler",
				Method:    "HandleAsync",
				IsAsync:   true,
				Message:   &facts.MessageType{Name: "app.CreateOrder"},
				Returns:   facts.ReturnShape{Kind: facts.ReturnValue},
			},
		},
		Middleware: []facts.RawMiddleware{
			{
				OwnerType: "app.AuditMiddleware",
				Methods: []facts.MiddlewareMethod{
					{Phase: facts.PhaseBefore, Name: "Before", Message: &facts.MessageType{Name: facts.UniversalMessage}},
				},
			},
		},
		CallSites: []*facts.CallSite{
			{
				Method:      facts.MethodInvokeAsync,
				MessageName: "app.CreateOrder",
				Fingerprint: "orders.go:10",
			},
		},
	}
}

func TestRunGenerate(t *testing.T) {
	t.Parallel()

	t.Run("полный проход рендерит точку входа", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		err := runGenerate(sampleManifest(), facts.DefaultConfig(), &out, discardLogger())
		require.NoError(t, err)

		assert.Contains(t, out.String(), "InvokeAsync_app_CreateOrder_")
		assert.Contains(t, out.String(), `runBefore(ctx, "app.AuditMiddleware", msg)`,
			"универсальное middleware применяется к обработчику")
	})

	t.Run("ошибка контракта прерывает генерацию", func(t *testing.T) {
		t.Parallel()

		m := sampleManifest()
		m.CallSites[0].Method = facts.MethodInvoke // синхронный вызов асинхронного обработчика

		var out bytes.Buffer
		err := runGenerate(m, facts.DefaultConfig(), &out, discardLogger())
		require.Error(t, err)
		assert.Empty(t, out.String(), "при ошибке результат не записывается")
	})

	t.Run("некорректное middleware прерывает генерацию", func(t *testing.T) {
		t.Parallel()

		m := sampleManifest()
		m.Middleware[0].Methods = append(m.Middleware[0].Methods, facts.MiddlewareMethod{
			Phase:   facts.PhaseBefore,
			Name:    "BeforeDuplicate",
			Message: &facts.MessageType{Name: facts.UniversalMessage},
		})

		err := runGenerate(m, facts.DefaultConfig(), io.Discard, discardLogger())
		assert.Error(t, err)
	})

	t.Run("публикация рендерится веером по всем обработчикам", func(t *testing.T) {
		t.Parallel()

		m := sampleManifest()
		second := *m.Handlers[0]
		second.OwnerType = "app.AuditHandler"
		m.Handlers = append(m.Handlers, &second)
		m.CallSites = []*facts.CallSite{
			{
				Method:      facts.MethodPublishAsync,
				MessageName: "app.CreateOrder",
				Fingerprint: "orders.go:10",
			},
		}

		var out bytes.Buffer
		err := runGenerate(m, facts.DefaultConfig(), &out, discardLogger())
		require.NoError(t, err, "несколько обработчиков допустимы для публикации")

		assert.Contains(t, out.String(), "PublishAsync_app_CreateOrder_")
		assert.Contains(t, out.String(), "errors.Join(errs...)")
	})

	t.Run("публикация без обработчиков дает пустую доставку", func(t *testing.T) {
		t.Parallel()

		m := sampleManifest()
		m.Handlers = nil
		m.CallSites[0].Method = facts.MethodPublishAsync

		var out bytes.Buffer
		err := runGenerate(m, facts.DefaultConfig(), &out, discardLogger())
		require.NoError(t, err)
		assert.Contains(t, out.String(), "PublishAsync_app_CreateOrder_")
		assert.Contains(t, out.String(), "return nil")
	})

	t.Run("отсутствие обработчика не фатально", func(t *testing.T) {
		t.Parallel()

		m := sampleManifest()
		m.Handlers = nil

		var out bytes.Buffer
		err := runGenerate(m, facts.DefaultConfig(), &out, discardLogger())
		require.NoError(t, err)
		assert.Empty(t, out.String(), "без обработчика точки входа не генерируются")
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("пустой путь дает умолчания", func(t *testing.T) {
		t.Parallel()

		cfg, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, facts.DefaultConfig(), cfg)
	})

	t.Run("файл конфигурации накладывается на умолчания", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "mdx.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"default_handler_lifetime: Scoped\n"+
				"telemetry_enabled: true\n"+
				"cascade_strategy: TaskWhenAll\n"), 0o644))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, facts.LifetimeScoped, cfg.DefaultHandlerLifetime)
		assert.True(t, cfg.TelemetryEnabled)
		assert.Equal(t, facts.CascadeTaskWhenAll, cfg.CascadeStrategy)
		assert.True(t, cfg.RedirectEnabled, "незатронутые поля сохраняют умолчания")
	})

	t.Run("неизвестное время жизни отвергается", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "mdx.yaml")
		require.NoError(t, os.WriteFile(path, []byte("default_handler_lifetime: Forever\n"), 0o644))

		_, err := loadConfig(path)
		assert.Error(t, err)
	})
}
