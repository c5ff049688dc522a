package facts

import "fmt"

// MiddlewareMethod описывает один обнаруженный метод middleware до
// валидации. Из набора таких методов строится MiddlewareDescriptor.
type MiddlewareMethod struct {
	Phase    Phase        `json:"phase"`
	Name     string       `json:"name"`
	IsStatic bool         `json:"is_static,omitempty"`
	IsAsync  bool         `json:"is_async,omitempty"`
	Message  *MessageType `json:"message,omitempty"`
}

// RawMiddleware — сырое описание middleware из источника фактов,
// еще не прошедшее валидацию.
type RawMiddleware struct {
	OwnerType          string             `json:"owner_type"`
	Lifetime           Lifetime           `json:"lifetime"`
	Order              int                `json:"order"`
	HasConstructorDeps bool               `json:"has_constructor_deps,omitempty"`
	Methods            []MiddlewareMethod `json:"methods"`
}

// BuildMiddleware строит дескриптор middleware из набора обнаруженных
// методов, проверяя инварианты. При нарушении любого инварианта
// возвращается nil и диагностика уровня ошибки: некорректное middleware
// целиком исключается из синтеза, а не применяется наполовину.
func BuildMiddleware(raw RawMiddleware) (*MiddlewareDescriptor, []Diagnostic) {
	var diags []Diagnostic

	desc := &MiddlewareDescriptor{
		OwnerType:          raw.OwnerType,
		Lifetime:           raw.Lifetime,
		Order:              raw.Order,
		HasConstructorDeps: raw.HasConstructorDeps,
	}

	staticSeen := false
	instanceSeen := false

	for i := range raw.Methods {
		m := &raw.Methods[i]

		if m.IsStatic {
			staticSeen = true
		} else {
			instanceSeen = true
		}

		// Единый тип сообщения для всех методов. Универсальный тип
		// считается согласованным только сам с собой.
		if desc.Message == nil {
			desc.Message = m.Message
		} else if !sameMessage(desc.Message, m.Message) {
			diags = append(diags, Diagnostic{
				Code:     CodeInconsistentMessage,
				Severity: SeverityError,
				Subject:  raw.OwnerType,
				Message: fmt.Sprintf(
					"методы middleware '%s' объявлены против разных типов сообщений: '%s' и '%s'",
					raw.OwnerType, messageName(desc.Message), messageName(m.Message)),
			})
		}

		ph := &PhaseMethod{Name: m.Name, IsAsync: m.IsAsync}
		slot := desc.phaseSlot(m.Phase)
		if *slot != nil {
			diags = append(diags, Diagnostic{
				Code:     CodeDuplicatePhase,
				Severity: SeverityError,
				Subject:  raw.OwnerType,
				Message: fmt.Sprintf(
					"middleware '%s' объявляет больше одного метода фазы %s: '%s' и '%s'",
					raw.OwnerType, m.Phase, (*slot).Name, m.Name),
			})
			continue
		}
		*slot = ph
	}

	if staticSeen && instanceSeen {
		diags = append(diags, Diagnostic{
			Code:     CodeMixedStaticInstance,
			Severity: SeverityError,
			Subject:  raw.OwnerType,
			Message: fmt.Sprintf(
				"middleware '%s' смешивает статические и экземплярные методы", raw.OwnerType),
		})
	}
	desc.IsStatic = staticSeen && !instanceSeen

	if HasErrors(diags) {
		return nil, diags
	}
	return desc, diags
}

// ValidateMiddleware строит дескрипторы для набора сырых middleware.
// Некорректные экземпляры исключаются; их диагностики возвращаются вместе
// с дескрипторами корректных.
func ValidateMiddleware(raws []RawMiddleware) ([]*MiddlewareDescriptor, []Diagnostic) {
	valid := make([]*MiddlewareDescriptor, 0, len(raws))
	var diags []Diagnostic

	for _, raw := range raws {
		desc, ds := BuildMiddleware(raw)
		diags = append(diags, ds...)
		if desc != nil {
			valid = append(valid, desc)
		}
	}
	return valid, diags
}

// phaseSlot возвращает указатель на поле дескриптора для указанной фазы.
func (m *MiddlewareDescriptor) phaseSlot(p Phase) **PhaseMethod {
	switch p {
	case PhaseBefore:
		return &m.Before
	case PhaseAfter:
		return &m.After
	case PhaseFinally:
		return &m.Finally
	default:
		return &m.Execute
	}
}

func sameMessage(a, b *MessageType) bool {
	if a.IsUniversal() || b.IsUniversal() {
		return a.IsUniversal() && b.IsUniversal()
	}
	return a.Name == b.Name
}

func messageName(m *MessageType) string {
	if m.IsUniversal() {
		return UniversalMessage
	}
	return m.Name
}
