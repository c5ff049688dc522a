// Package pipeline реализует ядро движка: синтезатор формы конвейера и
// компиляцию формы в исполняемый инвокер. Форма — это чистая функция от
// дескриптора обработчика, применимых к нему middleware и конфигурации
// проекта: набор булевых и порядковых решений, из которых следует ровно
// одна согласованная форма кода на обработчик.
package pipeline

import (
	"github.com/x-research-team/mdx-framework/mediator/facts"
	"github.com/x-research-team/mdx-framework/mediator/match"
)

// Shape — вычисленная форма конвейера одного обработчика. Не имеет
// собственной идентичности и не мутирует: при изменении входов
// пересчитывается заново и детерминированно.
type Shape struct {
	HasBefore  bool
	HasAfter   bool
	HasFinally bool
	HasExecute bool

	// RequiresTryCatch — нужен ли блок try/catch/finally: он требуется,
	// когда есть Finally-фазы или включена телеметрия.
	RequiresTryCatch bool

	// RequiresResultVariable — нужна ли переменная результата: обработчик
	// возвращает значение, и оно потребляется middleware, блоком
	// try/catch или каскадной публикацией.
	RequiresResultVariable bool

	// CanSkipAsyncWrapper — можно ли свести точку входа к прямому
	// сквозному вызову без сгенерированной машины состояний. Критичный
	// путь производительности для обработчика без зависимостей и без
	// сквозных забот.
	CanSkipAsyncWrapper bool

	// HasCascadingMessages — возвращает ли обработчик каскадирующий кортеж.
	HasCascadingMessages bool
	// CascadeSlots — количество каскадируемых слотов кортежа.
	CascadeSlots int

	// Before — идентификаторы middleware с Before-фазой в порядке выполнения.
	Before []string
	// After — идентификаторы middleware с After-фазой: точный реверс Before-порядка.
	After []string
	// Finally — идентификаторы middleware с Finally-фазой: реверс.
	Finally []string
	// Execute — идентификаторы Execute-оберток, внешняя первой.
	Execute []string
}

// Synthesize вычисляет форму конвейера для обработчика. Функция чистая:
// для фиксированных входов результат всегда один и тот же.
func Synthesize(h *facts.HandlerDescriptor, applicable []match.Applicable, cfg facts.Config) Shape {
	var s Shape

	for _, a := range applicable {
		mw := a.Middleware
		if mw.Before != nil {
			s.Before = append(s.Before, mw.ID())
		}
		if mw.After != nil {
			s.After = append(s.After, mw.ID())
		}
		if mw.Finally != nil {
			s.Finally = append(s.Finally, mw.ID())
		}
		if mw.Execute != nil {
			// Первое по порядку Execute-middleware — внешняя обертка.
			s.Execute = append(s.Execute, mw.ID())
		}
	}
	reverseStrings(s.After)
	reverseStrings(s.Finally)

	s.HasBefore = len(s.Before) > 0
	s.HasAfter = len(s.After) > 0
	s.HasFinally = len(s.Finally) > 0
	s.HasExecute = len(s.Execute) > 0

	s.HasCascadingMessages = h.Returns.IsTuple()
	s.CascadeSlots = h.Returns.CascadeArity()

	s.RequiresTryCatch = s.HasFinally || cfg.TelemetryEnabled

	s.RequiresResultVariable = h.Returns.HasValue() &&
		(s.HasAfter || s.RequiresTryCatch || s.HasCascadingMessages)

	// Прямой сквозной вызов возможен только для обработчика без
	// зависимостей, без middleware и без кортежа, при выключенной
	// телеметрии. Зависимостью считается и зависимость конструктора,
	// и параметр метода, разрешаемый из контейнера.
	s.CanSkipAsyncWrapper = len(applicable) == 0 &&
		!hasDependencies(h) &&
		!s.HasCascadingMessages &&
		!cfg.TelemetryEnabled

	return s
}

func hasDependencies(h *facts.HandlerDescriptor) bool {
	if h.HasConstructorDeps {
		return true
	}
	for _, p := range h.Params {
		if p.Kind == facts.ParamService {
			return true
		}
	}
	return false
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
