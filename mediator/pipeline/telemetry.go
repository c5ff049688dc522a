package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/x-research-team/mdx-framework/mediator/pipeline"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "mediator."
)

// wrapLogging оборачивает инвокер логированием вызовов.
func wrapLogging(next Invoker, logger *slog.Logger, messageName string) Invoker {
	return func(ctx context.Context, msg any) (result Result, err error) {
		logger.Info("запуск конвейера", slog.String("message_type", messageName))

		startTime := time.Now()
		defer func() {
			duration := time.Since(startTime)
			if err != nil {
				logger.Error("ошибка выполнения конвейера",
					slog.String("message_type", messageName),
					slog.Any("error", err),
					slog.Duration("duration", duration),
				)
			}
		}()

		return next(ctx, msg)
	}
}

// wrapTelemetry оборачивает инвокер трассировкой и метриками OpenTelemetry.
func wrapTelemetry(next Invoker, cfg *config) Invoker {
	var tracer trace.Tracer
	if cfg.tracerProvider != nil {
		tracer = cfg.tracerProvider.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		)
	}

	var dispatchCounter metric.Int64Counter
	var processDurationHist metric.Float64Histogram
	if cfg.meterProvider != nil {
		meter := cfg.meterProvider.Meter(instrumentationName)

		var err error
		dispatchCounter, err = meter.Int64Counter(
			metricKeyPrefix+"dispatch.count",
			metric.WithDescription("Количество выполненных конвейеров"),
			metric.WithUnit("{dispatches}"),
		)
		if err != nil {
			panic(fmt.Sprintf("не удалось создать счетчик dispatch.count: %v", err))
		}

		processDurationHist, err = meter.Float64Histogram(
			metricKeyPrefix+"process.duration",
			metric.WithDescription("Длительность выполнения конвейера"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			panic(fmt.Sprintf("не удалось создать гистограмму process.duration: %v", err))
		}
	}

	messageName := cfg.messageName

	return func(ctx context.Context, msg any) (result Result, err error) {
		if tracer != nil {
			var span trace.Span
			ctx, span = tracer.Start(ctx,
				fmt.Sprintf("%s process", messageName),
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer func() {
				if err != nil {
					span.RecordError(err)
				}
				span.End()
			}()
		}

		startTime := time.Now()
		result, err = next(ctx, msg)
		duration := float64(time.Since(startTime).Milliseconds())

		if dispatchCounter != nil {
			status := "success"
			if err != nil {
				status = "error"
			}
			attrs := metric.WithAttributes(
				attribute.String("message.type", messageName),
				attribute.String("status", status),
			)
			dispatchCounter.Add(ctx, 1, attrs)
			processDurationHist.Record(ctx, duration, attrs)
		}

		return result, err
	}
}
