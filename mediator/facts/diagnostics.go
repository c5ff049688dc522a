package facts

import "fmt"

// Severity определяет серьезность диагностики.
type Severity int

const (
	// SeverityInfo — информационная диагностика, сборку не прерывает.
	SeverityInfo Severity = iota
	// SeverityError — ошибка, прерывающая сборку; код для такой точки
	// вызова или middleware не генерируется.
	SeverityError
)

// String возвращает строковое представление серьезности.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Коды диагностик. Коды стабильны и входят в публичный контракт.
const (
	// CodeDuplicatePhase — у middleware больше одного метода на фазу.
	CodeDuplicatePhase = "MDX001"
	// CodeMixedStaticInstance — middleware смешивает статические и
	// экземплярные методы.
	CodeMixedStaticInstance = "MDX002"
	// CodeInconsistentMessage — методы middleware объявлены против разных
	// типов сообщений.
	CodeInconsistentMessage = "MDX003"

	// CodeMultipleInvokeHandlers — для Invoke найдено больше одного обработчика.
	CodeMultipleInvokeHandlers = "MDX010"
	// CodeNoInvokeHandler — для Invoke не найден обработчик. Информационная:
	// динамическая диспетчеризация может найти обработчик во время выполнения.
	CodeNoInvokeHandler = "MDX011"
	// CodeSyncInvokeAsyncHandler — синхронный Invoke целится в асинхронный
	// метод обработчика.
	CodeSyncInvokeAsyncHandler = "MDX012"
	// CodeSyncInvokeTupleHandler — синхронный Invoke целится в обработчик
	// с каскадирующим кортежем: каскадная публикация всегда асинхронна.
	CodeSyncInvokeTupleHandler = "MDX013"
	// CodeSyncInvokeAsyncMiddleware — синхронный Invoke целится в обработчик,
	// к которому применимо асинхронное middleware.
	CodeSyncInvokeAsyncMiddleware = "MDX014"
)

// Diagnostic описывает одну проблему, обнаруженную на этапе анализа.
type Diagnostic struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// Fingerprint указывает на точку вызова, если диагностика привязана к ней.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Subject — имя типа или метода, к которому относится диагностика.
	Subject string `json:"subject,omitempty"`
}

// String возвращает человекочитаемое представление диагностики.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s] %s", d.Code, d.Severity, d.Message)
}

// HasErrors сообщает, есть ли среди диагностик хотя бы одна ошибка.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
