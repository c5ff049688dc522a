package facts

import (
	"github.com/goccy/go-reflect"
)

// RuntimeName возвращает квалифицированное имя типа значения во время
// выполнения в короткой форме "пакет.Тип". Используется реестром для
// динамически типизированных публикаций и для именования типа сообщения
// в ошибках; полный путь импорта в имя не входит.
func RuntimeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// MessageTypeFor строит минимальную идентичность типа сообщения из живого
// значения. Замыкание применимости из рефлексии не восстанавливается:
// динамически типизированная диспетчеризация сопоставляется только по
// точному имени, полный набор интерфейсов и базовых типов известен лишь
// источнику фактов на этапе анализа.
func MessageTypeFor(v any) *MessageType {
	if v == nil {
		return &MessageType{Name: "<nil>", IsNullable: true}
	}
	t := reflect.TypeOf(v)
	isRef := t.Kind() == reflect.Ptr || t.Kind() == reflect.Interface ||
		t.Kind() == reflect.Map || t.Kind() == reflect.Slice

	return &MessageType{
		Name:        RuntimeName(v),
		IsNullable:  isRef,
		IsReference: isRef,
	}
}

// IsNilValue сообщает, является ли значение nil, включая типизированные
// nil-указатели внутри интерфейса. Каскадируемые слоты с таким значением
// пропускаются без диспетчеризации.
func IsNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
