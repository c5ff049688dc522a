package facts

import (
	"fmt"
	"strings"
)

// CascadeStrategy определяет способ доставки каскадируемых сообщений.
type CascadeStrategy string

const (
	// CascadeForeachAwait — последовательная доставка с ожиданием каждого
	// обработчика; ошибки собираются и возвращаются одной составной ошибкой.
	CascadeForeachAwait CascadeStrategy = "ForeachAwait"
	// CascadeTaskWhenAll — параллельный запуск всех обработчиков с ожиданием
	// завершения всех; ошибки агрегируются.
	CascadeTaskWhenAll CascadeStrategy = "TaskWhenAll"
	// CascadeFireAndForget — отправка в фоновый пул без ожидания; ошибки
	// намеренно не наблюдаются.
	CascadeFireAndForget CascadeStrategy = "FireAndForget"
)

// ParseCascadeStrategy разбирает строковое представление стратегии каскада.
func ParseCascadeStrategy(s string) (CascadeStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "foreachawait":
		return CascadeForeachAwait, nil
	case "taskwhenall":
		return CascadeTaskWhenAll, nil
	case "fireandforget":
		return CascadeFireAndForget, nil
	default:
		return CascadeForeachAwait, fmt.Errorf("неизвестная стратегия каскада '%s'", s)
	}
}

// Config содержит конфигурацию уровня проекта, влияющую на синтез конвейеров.
// Заполняется один раз из декларативного источника (файл конфигурации или
// CLI); синтезатор читает только уже нормализованные поля.
type Config struct {
	// DefaultHandlerLifetime — время жизни обработчиков, не задавших его явно.
	DefaultHandlerLifetime Lifetime `json:"default_handler_lifetime" mapstructure:"default_handler_lifetime"`

	// DefaultMiddlewareLifetime — время жизни middleware, не задавших его явно.
	DefaultMiddlewareLifetime Lifetime `json:"default_middleware_lifetime" mapstructure:"default_middleware_lifetime"`

	// TelemetryEnabled включает инструментирование конвейеров трассировкой
	// и метриками. Влияет на форму конвейера: включенная телеметрия требует
	// блока try/finally и запрещает прямой сквозной вызов.
	TelemetryEnabled bool `json:"telemetry_enabled" mapstructure:"telemetry_enabled"`

	// CascadeStrategy — стратегия доставки каскадируемых сообщений.
	CascadeStrategy CascadeStrategy `json:"cascade_strategy" mapstructure:"cascade_strategy"`

	// RedirectEnabled включает перенаправление точек вызова на
	// сгенерированные точки входа.
	RedirectEnabled bool `json:"redirect_enabled" mapstructure:"redirect_enabled"`

	// ConventionDiscovery включает обнаружение обработчиков по соглашению
	// об именовании. Явные объявления и маркерные интерфейсы работают всегда.
	ConventionDiscovery bool `json:"convention_discovery" mapstructure:"convention_discovery"`
}

// DefaultConfig возвращает конфигурацию со значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		DefaultHandlerLifetime:    LifetimeNone,
		DefaultMiddlewareLifetime: LifetimeNone,
		TelemetryEnabled:          false,
		CascadeStrategy:           CascadeForeachAwait,
		RedirectEnabled:           true,
		ConventionDiscovery:       true,
	}
}
