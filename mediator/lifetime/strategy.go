// Package lifetime реализует движок стратегий создания экземпляров:
// по заявленному времени жизни, форме конструктора и умолчанию проекта
// детерминированно выбирается один из четырех способов получения
// экземпляра обработчика или middleware.
package lifetime

import (
	"fmt"

	"github.com/x-research-team/mdx-framework/mediator/facts"
)

// Strategy определяет способ получения экземпляра на один вызов конвейера.
type Strategy int

const (
	// StrategyStaticDirect — прямой статический вызов, экземпляр не нужен.
	StrategyStaticDirect Strategy = iota
	// StrategyDIPerInvocation — разрешение из DI-контейнера на каждый вызов.
	StrategyDIPerInvocation
	// StrategyCachedNew — однократное создание через new() и кеширование
	// в статическом слоте на весь процесс.
	StrategyCachedNew
	// StrategyCachedActivatorCreate — однократное создание через контейнер
	// (с зависимостями конструктора) и кеширование. Осознанно рискованный
	// компромисс: зависимости могут быть привязаны к контейнеру, а кеш —
	// общий на процесс. Политика области кеша настраивается в Cache.
	StrategyCachedActivatorCreate
)

// String возвращает имя стратегии.
func (s Strategy) String() string {
	switch s {
	case StrategyStaticDirect:
		return "StaticDirect"
	case StrategyDIPerInvocation:
		return "DIPerInvocation"
	case StrategyCachedNew:
		return "CachedNew"
	case StrategyCachedActivatorCreate:
		return "CachedActivatorCreate"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// DecideStrategy выбирает стратегию создания экземпляра. Функция чистая:
// для фиксированной тройки (время жизни, форма конструктора, умолчание
// проекта) результат всегда один и тот же.
//
// Явный Singleton никогда не кешируется статически: процесс может
// содержать несколько независимых контейнеров (например, изолированные
// тестовые окружения), и статическое поле навсегда закрепило бы экземпляр
// первого контейнера. Разрешение из контейнера на каждый вызов оставляет
// кеширование самому контейнеру, который знает свою область.
func DecideStrategy(isStatic bool, declared facts.Lifetime, hasCtorDeps bool, projectDefault facts.Lifetime) Strategy {
	if isStatic {
		return StrategyStaticDirect
	}

	switch declared {
	case facts.LifetimeScoped, facts.LifetimeTransient, facts.LifetimeSingleton:
		return StrategyDIPerInvocation
	}

	// Время жизни не задано: действует умолчание проекта.
	// Умолчание Singleton трактуется как None.
	switch projectDefault {
	case facts.LifetimeScoped, facts.LifetimeTransient:
		return StrategyDIPerInvocation
	}

	if hasCtorDeps {
		return StrategyCachedActivatorCreate
	}
	return StrategyCachedNew
}

// DecideHandler выбирает стратегию для дескриптора обработчика.
func DecideHandler(h *facts.HandlerDescriptor, cfg facts.Config) Strategy {
	return DecideStrategy(h.IsStatic, h.Lifetime, h.HasConstructorDeps, cfg.DefaultHandlerLifetime)
}

// DecideMiddleware выбирает стратегию для дескриптора middleware.
func DecideMiddleware(m *facts.MiddlewareDescriptor, cfg facts.Config) Strategy {
	return DecideStrategy(m.IsStatic, m.Lifetime, m.HasConstructorDeps, cfg.DefaultMiddlewareLifetime)
}
