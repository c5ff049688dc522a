package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/x-research-team/mdx-framework/mediator/facts"
)

// loadConfig читает конфигурацию проекта, накладывая файл конфигурации
// поверх значений по умолчанию. Пустой путь означает «только умолчания».
func loadConfig(path string) (facts.Config, error) {
	defaults := facts.DefaultConfig()

	v := viper.New()
	v.SetDefault("default_handler_lifetime", defaults.DefaultHandlerLifetime.String())
	v.SetDefault("default_middleware_lifetime", defaults.DefaultMiddlewareLifetime.String())
	v.SetDefault("telemetry_enabled", defaults.TelemetryEnabled)
	v.SetDefault("cascade_strategy", string(defaults.CascadeStrategy))
	v.SetDefault("redirect_enabled", defaults.RedirectEnabled)
	v.SetDefault("convention_discovery", defaults.ConventionDiscovery)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return defaults, fmt.Errorf("не удалось прочитать файл конфигурации: %w", err)
			}
		}
	}

	cfg := defaults

	handlerLifetime, err := facts.ParseLifetime(v.GetString("default_handler_lifetime"))
	if err != nil {
		return defaults, fmt.Errorf("default_handler_lifetime: %w", err)
	}
	cfg.DefaultHandlerLifetime = handlerLifetime

	middlewareLifetime, err := facts.ParseLifetime(v.GetString("default_middleware_lifetime"))
	if err != nil {
		return defaults, fmt.Errorf("default_middleware_lifetime: %w", err)
	}
	cfg.DefaultMiddlewareLifetime = middlewareLifetime

	strategy, err := facts.ParseCascadeStrategy(v.GetString("cascade_strategy"))
	if err != nil {
		return defaults, fmt.Errorf("cascade_strategy: %w", err)
	}
	cfg.CascadeStrategy = strategy

	cfg.TelemetryEnabled = v.GetBool("telemetry_enabled")
	cfg.RedirectEnabled = v.GetBool("redirect_enabled")
	cfg.ConventionDiscovery = v.GetBool("convention_discovery")

	return cfg, nil
}
