package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/x-research-team/mdx-framework/mediator/callsite"
	"github.com/x-research-team/mdx-framework/mediator/facts"
	"github.com/x-research-team/mdx-framework/mediator/gen"
	"github.com/x-research-team/mdx-framework/mediator/lifetime"
	"github.com/x-research-team/mdx-framework/mediator/match"
	"github.com/x-research-team/mdx-framework/mediator/pipeline"
)

func newGenerateCmd(logger *slog.Logger) *cobra.Command {
	var manifestPath string
	var configPath string
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Синтезировать точки входа диспетчеризации по манифесту фактов",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifestFile, err := os.Open(manifestPath)
			if err != nil {
				return fmt.Errorf("не удалось открыть манифест: %w", err)
			}
			defer manifestFile.Close()

			manifest, err := facts.LoadManifest(manifestFile)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("не удалось создать файл результата: %w", err)
				}
				defer f.Close()
				out = f
			}

			return runGenerate(manifest, cfg, out, logger)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "facts.json", "Путь к манифесту структурных фактов")
	cmd.Flags().StringVar(&configPath, "config", "", "Путь к файлу конфигурации проекта")
	cmd.Flags().StringVar(&outPath, "out", "", "Файл результата (по умолчанию stdout)")

	return cmd
}

// runGenerate выполняет полный проход синтеза: валидация middleware,
// разрешение применимости, выбор стратегий, синтез форм, перенаправление
// точек вызова и рендеринг. Любая диагностика уровня ошибки прерывает
// генерацию с ненулевым кодом выхода.
func runGenerate(manifest *facts.Manifest, cfg facts.Config, out io.Writer, logger *slog.Logger) error {
	middleware, diags := facts.ValidateMiddleware(manifest.Middleware)

	sink := gen.NewBufferSink()
	generator := gen.NewGenerator(cfg)

	for _, messageName := range manifest.MessageNames() {
		handlers := manifest.HandlersFor(messageName)
		sites := manifest.CallSitesFor(messageName)

		var applicable []match.Applicable
		if len(handlers) == 1 {
			applicable = match.Resolve(handlers[0], middleware)
		}

		table, siteDiags := callsite.Rewrite(messageName, sites, handlers, applicable, cfg)
		diags = append(diags, siteDiags...)
		if facts.HasErrors(siteDiags) {
			continue
		}

		var shape pipeline.Shape
		var strategy lifetime.Strategy
		if len(handlers) == 1 {
			shape = pipeline.Synthesize(handlers[0], applicable, cfg)
			strategy = lifetime.DecideHandler(handlers[0], cfg)
		}

		for _, ep := range table.EntryPoints() {
			// Публикация допускает любое число обработчиков и рендерится
			// веером. Invoke-группа попадает в таблицу только при ровно
			// одном обработчике: ноль отсекается в Rewrite, больше одного
			// дает ошибочную диагностику выше.
			if ep.Key.Method == facts.MethodPublishAsync {
				generator.PublishEntryPoint(sink, ep, handlers)
				logger.Debug("сгенерирована веерная точка входа",
					"entry_point", ep.Name,
					"message_type", messageName,
					"handlers", len(handlers),
				)
				continue
			}

			generator.EntryPoint(sink, ep, handlers[0], shape, strategy)
			logger.Debug("сгенерирована точка входа",
				"entry_point", ep.Name,
				"message_type", messageName,
				"strategy", strategy.String(),
			)
		}
	}

	// Регистрации контейнера для всех участников с явным временем жизни.
	for _, h := range manifest.Handlers {
		generator.Registration(sink, h.OwnerType, h.Lifetime)
	}
	for _, m := range middleware {
		generator.Registration(sink, m.OwnerType, m.Lifetime)
	}

	report(diags, logger)
	if facts.HasErrors(diags) {
		return fmt.Errorf("генерация прервана: найдено диагностик уровня ошибки: %d", countErrors(diags))
	}

	if _, err := io.WriteString(out, sink.String()); err != nil {
		return fmt.Errorf("не удалось записать результат: %w", err)
	}

	logger.Info("генерация завершена",
		"message_types", len(manifest.MessageNames()),
		"handlers", len(manifest.Handlers),
		"middleware", len(middleware),
	)
	return nil
}

func report(diags []facts.Diagnostic, logger *slog.Logger) {
	for _, d := range diags {
		attrs := []any{"code", d.Code}
		if d.Fingerprint != "" {
			attrs = append(attrs, "call_site", d.Fingerprint)
		}
		if d.Subject != "" {
			attrs = append(attrs, "subject", d.Subject)
		}
		switch d.Severity {
		case facts.SeverityError:
			logger.Error(d.Message, attrs...)
		default:
			logger.Info(d.Message, attrs...)
		}
	}
}

func countErrors(diags []facts.Diagnostic) int {
	var n int
	for _, d := range diags {
		if d.Severity == facts.SeverityError {
			n++
		}
	}
	return n
}
