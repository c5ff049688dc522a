// Package facts определяет модель структурных фактов, на основе которой
// движок синтеза конвейеров принимает все свои решения. Факты описывают
// типы сообщений, обработчики, middleware и точки вызова в виде простых
// неизменяемых записей: после построения дескриптор никогда не мутирует,
// а все производные решения (применимость, стратегия создания, форма
// конвейера) вычисляются заново как чистые функции от этих записей.
package facts

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Lifetime определяет заявленное время жизни обработчика или middleware.
type Lifetime int

const (
	// LifetimeNone означает, что время жизни не задано явно.
	LifetimeNone Lifetime = iota
	// LifetimeTransient — новый экземпляр на каждое разрешение из контейнера.
	LifetimeTransient
	// LifetimeScoped — один экземпляр на область (scope) контейнера.
	LifetimeScoped
	// LifetimeSingleton — один экземпляр на контейнер.
	LifetimeSingleton
)

// String возвращает строковое представление времени жизни.
func (l Lifetime) String() string {
	switch l {
	case LifetimeNone:
		return "None"
	case LifetimeTransient:
		return "Transient"
	case LifetimeScoped:
		return "Scoped"
	case LifetimeSingleton:
		return "Singleton"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}

// ParseLifetime разбирает строковое представление времени жизни.
// Пустая строка трактуется как LifetimeNone.
func ParseLifetime(s string) (Lifetime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LifetimeNone, nil
	case "transient":
		return LifetimeTransient, nil
	case "scoped":
		return LifetimeScoped, nil
	case "singleton":
		return LifetimeSingleton, nil
	default:
		return LifetimeNone, fmt.Errorf("неизвестное время жизни '%s'", s)
	}
}

// MarshalJSON сериализует время жизни в строку.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON десериализует время жизни из строки.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	parsed, err := ParseLifetime(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ReturnKind определяет вид возвращаемого значения обработчика.
type ReturnKind int

const (
	// ReturnVoid — обработчик не возвращает значения.
	ReturnVoid ReturnKind = iota
	// ReturnValue — обработчик возвращает одно значение.
	ReturnValue
	// ReturnTuple — обработчик возвращает кортеж: первый элемент является
	// основным ответом, остальные — каскадируемыми сообщениями.
	ReturnTuple
	// ReturnResult — обработчик возвращает значение, обернутое в Result.
	ReturnResult
)

// ReturnShape описывает форму возвращаемого значения обработчика.
type ReturnShape struct {
	Kind ReturnKind `json:"kind"`
	// TupleSlots содержит имена типов элементов кортежа (только для ReturnTuple).
	// Нулевой слот — основной ответ, остальные — каскадируемые сообщения.
	TupleSlots []string `json:"tuple_slots,omitempty"`
	// NullableSlots помечает слоты кортежа, которые могут быть nil.
	NullableSlots []bool `json:"nullable_slots,omitempty"`
}

// IsTuple сообщает, является ли форма каскадирующим кортежем
// (два и более элементов).
func (s ReturnShape) IsTuple() bool {
	return s.Kind == ReturnTuple && len(s.TupleSlots) >= 2
}

// HasValue сообщает, возвращает ли обработчик хоть какое-то значение.
func (s ReturnShape) HasValue() bool {
	return s.Kind != ReturnVoid
}

// CascadeArity возвращает количество каскадируемых слотов кортежа.
func (s ReturnShape) CascadeArity() int {
	if !s.IsTuple() {
		return 0
	}
	return len(s.TupleSlots) - 1
}

// UniversalMessage — имя универсального типа сообщения. Middleware,
// объявленное против этого типа, применяется к любому обработчику.
const UniversalMessage = "*"

// MessageType описывает идентичность значения, проходящего через систему.
// Замыкание применимости (интерфейсы и базовые типы) вычисляется один раз
// и далее никогда не перезапрашивается.
type MessageType struct {
	// Name — полное квалифицированное имя типа.
	Name string `json:"name"`
	// GenericArity — арность обобщенного определения (0 для необобщенных типов).
	GenericArity int `json:"generic_arity,omitempty"`
	// Interfaces — имена интерфейсов, реализуемых типом.
	Interfaces []string `json:"interfaces,omitempty"`
	// Bases — имена базовых типов в порядке от ближайшего к дальнему.
	Bases []string `json:"bases,omitempty"`

	IsTuple     bool `json:"is_tuple,omitempty"`
	IsVoid      bool `json:"is_void,omitempty"`
	IsNullable  bool `json:"is_nullable,omitempty"`
	IsReference bool `json:"is_reference,omitempty"`

	closureOnce sync.Once
	ifaceSet    map[string]struct{}
	baseSet     map[string]struct{}
}

// buildClosure строит множества замыкания применимости. Вызывается
// лениво и ровно один раз на экземпляр.
func (m *MessageType) buildClosure() {
	m.closureOnce.Do(func() {
		m.ifaceSet = make(map[string]struct{}, len(m.Interfaces))
		for _, name := range m.Interfaces {
			m.ifaceSet[name] = struct{}{}
		}
		m.baseSet = make(map[string]struct{}, len(m.Bases))
		for _, name := range m.Bases {
			m.baseSet[name] = struct{}{}
		}
	})
}

// Implements сообщает, реализует ли тип сообщения указанный интерфейс.
func (m *MessageType) Implements(name string) bool {
	m.buildClosure()
	_, ok := m.ifaceSet[name]
	return ok
}

// Extends сообщает, является ли указанный тип базовым для типа сообщения.
func (m *MessageType) Extends(name string) bool {
	m.buildClosure()
	_, ok := m.baseSet[name]
	return ok
}

// IsUniversal сообщает, является ли тип универсальным ("любое сообщение").
func (m *MessageType) IsUniversal() bool {
	return m == nil || m.Name == UniversalMessage
}

// OrderUnset — значение порядка «не задан». При сортировке такие
// дескрипторы уходят в конец.
const OrderUnset = math.MaxInt32

// ParameterKind определяет роль параметра метода-обработчика.
type ParameterKind int

const (
	// ParamMessage — параметр принимает само сообщение.
	ParamMessage ParameterKind = iota
	// ParamService — параметр разрешается из DI-контейнера.
	ParamService
	// ParamCancellation — параметр принимает сигнал отмены.
	ParamCancellation
)

// Parameter описывает один параметр метода обработчика или middleware.
type Parameter struct {
	Name     string        `json:"name"`
	TypeName string        `json:"type_name"`
	Kind     ParameterKind `json:"kind"`
}

// HandlerDescriptor описывает один метод, обрабатывающий один тип сообщения.
// Дескриптор строится один раз на этапе анализа и далее неизменяем.
type HandlerDescriptor struct {
	// OwnerType — полное имя типа, которому принадлежит метод.
	OwnerType string `json:"owner_type"`
	// Method — имя метода-обработчика.
	Method string `json:"method"`

	IsStatic bool `json:"is_static,omitempty"`
	IsAsync  bool `json:"is_async,omitempty"`

	Message *MessageType `json:"message"`
	Returns ReturnShape  `json:"returns"`

	Lifetime Lifetime `json:"lifetime"`
	Order    int      `json:"order"`

	// HasConstructorDeps сообщает, есть ли у владеющего типа зависимости
	// конструктора. Управляет выбором стратегии создания экземпляра.
	HasConstructorDeps bool `json:"has_constructor_deps,omitempty"`

	Params []Parameter `json:"params,omitempty"`

	// FromConvention помечает обработчики, найденные по соглашению об
	// именовании, а не по явному объявлению.
	FromConvention bool `json:"from_convention,omitempty"`
}

// ID возвращает стабильный идентификатор обработчика.
func (h *HandlerDescriptor) ID() string {
	return h.OwnerType + "." + h.Method
}

// Phase определяет фазу метода middleware.
type Phase int

const (
	// PhaseBefore выполняется до обработчика и может закоротить конвейер.
	PhaseBefore Phase = iota
	// PhaseAfter выполняется после обработчика в обратном порядке.
	PhaseAfter
	// PhaseFinally выполняется всегда, ровно один раз, в обратном порядке.
	PhaseFinally
	// PhaseExecute оборачивает весь внутренний конвейер как продолжение.
	PhaseExecute
)

// String возвращает имя фазы.
func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "Before"
	case PhaseAfter:
		return "After"
	case PhaseFinally:
		return "Finally"
	case PhaseExecute:
		return "Execute"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PhaseMethod описывает один метод фазы middleware.
type PhaseMethod struct {
	Name    string `json:"name"`
	IsAsync bool   `json:"is_async,omitempty"`
}

// MiddlewareDescriptor описывает сквозную единицу с набором опциональных
// фаз. Дескриптор строится через BuildMiddleware, что гарантирует
// соблюдение инвариантов (не более одного метода на фазу, отсутствие
// смешения статических и экземплярных методов, единый тип сообщения).
type MiddlewareDescriptor struct {
	// OwnerType — полное имя класса middleware.
	OwnerType string `json:"owner_type"`

	// Message — тип сообщения, к которому применимо middleware.
	// nil или UniversalMessage означает применимость к любому сообщению.
	Message *MessageType `json:"message,omitempty"`

	Lifetime Lifetime `json:"lifetime"`
	Order    int      `json:"order"`

	IsStatic           bool `json:"is_static,omitempty"`
	HasConstructorDeps bool `json:"has_constructor_deps,omitempty"`

	Before  *PhaseMethod `json:"before,omitempty"`
	After   *PhaseMethod `json:"after,omitempty"`
	Finally *PhaseMethod `json:"finally,omitempty"`
	Execute *PhaseMethod `json:"execute,omitempty"`
}

// ID возвращает стабильный идентификатор middleware.
func (m *MiddlewareDescriptor) ID() string {
	return m.OwnerType
}

// HasAsyncPhase сообщает, есть ли у middleware хотя бы одна асинхронная фаза.
func (m *MiddlewareDescriptor) HasAsyncPhase() bool {
	for _, ph := range []*PhaseMethod{m.Before, m.After, m.Finally, m.Execute} {
		if ph != nil && ph.IsAsync {
			return true
		}
	}
	return false
}

// Имена методов поверхности диспетчеризации, используемые в точках вызова.
const (
	MethodInvoke       = "Invoke"
	MethodInvokeAsync  = "InvokeAsync"
	MethodPublishAsync = "PublishAsync"
)

// CallSite описывает одно место в прикладном коде, где вызывается
// поверхность диспетчеризации.
type CallSite struct {
	// Method — имя вызываемого метода: Invoke, InvokeAsync или PublishAsync.
	Method string `json:"method"`

	// MessageName — имя целевого типа сообщения.
	MessageName string `json:"message_name"`

	// ResponseType — ожидаемый тип ответа, если указан.
	ResponseType string `json:"response_type,omitempty"`

	// Fingerprint — стабильный отпечаток расположения вызова, по которому
	// вызов перенаправляется без правки исходного текста.
	Fingerprint string `json:"fingerprint"`

	// TypedOverload помечает вызовы через типизированную перегрузку.
	TypedOverload bool `json:"typed_overload,omitempty"`
}

// IsSync сообщает, является ли точка вызова синхронной.
func (c *CallSite) IsSync() bool {
	return c.Method == MethodInvoke
}
