package pipeline

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// config содержит неэкспортируемую конфигурацию компиляции конвейера.
type config struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	messageName    string
}

// Option определяет тип для функциональных опций компиляции конвейера.
type Option func(*config)

func newConfig(opts ...Option) *config {
	cfg := &config{messageName: "unknown"}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger возвращает опцию, которая включает логирование вызовов конвейера.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracerProvider возвращает опцию, которая устанавливает провайдер трассировки.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = provider
	}
}

// WithMeterProvider возвращает опцию, которая устанавливает провайдер метрик.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = provider
	}
}

// WithMessageName возвращает опцию, которая задает имя типа сообщения для
// логов, спанов и меток метрик.
func WithMessageName(name string) Option {
	return func(c *config) {
		c.messageName = name
	}
}
