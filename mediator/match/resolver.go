// Package match реализует резолвер применимости: сопоставление middleware
// обработчикам по специфичности типа сообщения и установление единого
// тотального порядка выполнения. Порядок Before-фаз является прямым,
// After и Finally выполняются в точно обратном порядке (луковичная
// дисциплина вложенности).
package match

import (
	"fmt"
	"sort"

	"github.com/x-research-team/mdx-framework/mediator/facts"
)

// Specificity ранжирует, насколько точно объявленный тип сообщения
// middleware совпадает с типом сообщения обработчика. Меньшее значение —
// более специфичное совпадение.
type Specificity int

const (
	// SpecificityExact — точное совпадение типа.
	SpecificityExact Specificity = iota
	// SpecificityInterface — тип сообщения реализует объявленный интерфейс.
	SpecificityInterface
	// SpecificityBase — объявленный тип является базовым для типа сообщения.
	SpecificityBase
	// SpecificityUniversal — middleware объявлено против универсального типа.
	SpecificityUniversal
)

// String возвращает имя ранга специфичности.
func (s Specificity) String() string {
	switch s {
	case SpecificityExact:
		return "exact"
	case SpecificityInterface:
		return "interface"
	case SpecificityBase:
		return "base"
	case SpecificityUniversal:
		return "universal"
	default:
		return fmt.Sprintf("Specificity(%d)", int(s))
	}
}

// Applicable — одно middleware, применимое к обработчику, вместе с рангом
// специфичности, по которому оно было сопоставлено.
type Applicable struct {
	Middleware  *facts.MiddlewareDescriptor
	Specificity Specificity
}

// Classify определяет, применимо ли middleware с объявленным типом declared
// к сообщению msg, и с каким рангом специфичности.
func Classify(msg *facts.MessageType, declared *facts.MessageType) (Specificity, bool) {
	if declared.IsUniversal() {
		return SpecificityUniversal, true
	}
	if msg == nil {
		return 0, false
	}
	if msg.Name == declared.Name {
		return SpecificityExact, true
	}
	if msg.Implements(declared.Name) {
		return SpecificityInterface, true
	}
	if msg.Extends(declared.Name) {
		return SpecificityBase, true
	}
	return 0, false
}

// Resolve возвращает middleware, применимые к обработчику, в порядке
// выполнения Before-фаз. Первичный ключ сортировки — явный Order по
// возрастанию (не заданный уходит в конец), вторичный — ранг
// специфичности, третичный — имя типа middleware. Третичный ключ делает
// порядок детерминированным и воспроизводимым между сборками.
func Resolve(handler *facts.HandlerDescriptor, middleware []*facts.MiddlewareDescriptor) []Applicable {
	applicable := make([]Applicable, 0, len(middleware))
	for _, mw := range middleware {
		spec, ok := Classify(handler.Message, mw.Message)
		if !ok {
			continue
		}
		applicable = append(applicable, Applicable{Middleware: mw, Specificity: spec})
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		a, b := applicable[i], applicable[j]
		if a.Middleware.Order != b.Middleware.Order {
			return a.Middleware.Order < b.Middleware.Order
		}
		if a.Specificity != b.Specificity {
			return a.Specificity < b.Specificity
		}
		return a.Middleware.OwnerType < b.Middleware.OwnerType
	})

	return applicable
}

// Reverse возвращает копию списка в обратном порядке. Используется для
// порядков After- и Finally-фаз.
func Reverse(list []Applicable) []Applicable {
	out := make([]Applicable, len(list))
	for i, a := range list {
		out[len(list)-1-i] = a
	}
	return out
}
