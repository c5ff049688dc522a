package facts

import "strings"

// Candidate описывает структурные факты об одном типе, достаточные для
// решения, является ли он кандидатом в обработчики или middleware.
// Обнаружение — чистый предикат над фактами, без рефлексии: соглашение об
// именовании и явное объявление являются независимо отключаемыми политиками.
type Candidate struct {
	// TypeName — полное имя типа.
	TypeName string `json:"type_name"`

	// ImplementsMarker сообщает, реализует ли тип маркерный интерфейс
	// обработчика или middleware.
	ImplementsMarker bool `json:"implements_marker,omitempty"`

	// ExplicitHandler и ExplicitMiddleware помечают типы с явным
	// декларативным объявлением (атрибут, конфигурация, builder API).
	ExplicitHandler    bool `json:"explicit_handler,omitempty"`
	ExplicitMiddleware bool `json:"explicit_middleware,omitempty"`
}

const (
	handlerSuffix    = "Handler"
	middlewareSuffix = "Middleware"
)

// Имена методов, распознаваемые соглашением об именовании.
var conventionMethods = map[string]struct{}{
	"Handle":      {},
	"HandleAsync": {},
}

// IsHandlerCandidate решает, является ли тип кандидатом в обработчики.
// Соглашение об именовании учитывается только при включенной политике
// ConventionDiscovery; маркерный интерфейс и явное объявление — всегда.
func IsHandlerCandidate(c Candidate, cfg Config) bool {
	if c.ExplicitHandler || c.ImplementsMarker {
		return true
	}
	return cfg.ConventionDiscovery && strings.HasSuffix(shortName(c.TypeName), handlerSuffix)
}

// IsMiddlewareCandidate решает, является ли тип кандидатом в middleware.
func IsMiddlewareCandidate(c Candidate, cfg Config) bool {
	if c.ExplicitMiddleware {
		return true
	}
	return cfg.ConventionDiscovery && strings.HasSuffix(shortName(c.TypeName), middlewareSuffix)
}

// IsHandlerMethod сообщает, распознается ли имя метода соглашением.
func IsHandlerMethod(name string) bool {
	_, ok := conventionMethods[name]
	return ok
}

// shortName отрезает квалификатор пакета от полного имени типа.
func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
