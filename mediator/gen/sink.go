// Package gen превращает вычисленные решения движка — форму конвейера,
// стратегию создания экземпляров и таблицу перенаправления — в текст
// точек входа прямой диспетчеризации. Генератор не принимает собственных
// решений: каждая ветка рендеринга управляется ровно одним полем формы.
package gen

import (
	"fmt"
	"strings"
)

// Sink принимает сгенерированные строки. Абстракция позволяет писать
// в буфер, файл или накопитель сборки одним и тем же генератором.
type Sink interface {
	// Line записывает одну строку с текущим отступом.
	Line(format string, args ...any)
	// Indent увеличивает отступ последующих строк.
	Indent()
	// Dedent уменьшает отступ последующих строк.
	Dedent()
}

// BufferSink накапливает сгенерированный текст в памяти.
type BufferSink struct {
	buf   strings.Builder
	depth int
}

// NewBufferSink создает пустой буферный приемник.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// Line записывает одну строку с текущим отступом.
func (b *BufferSink) Line(format string, args ...any) {
	for i := 0; i < b.depth; i++ {
		b.buf.WriteByte('\t')
	}
	fmt.Fprintf(&b.buf, format, args...)
	b.buf.WriteByte('\n')
}

// Indent увеличивает отступ последующих строк.
func (b *BufferSink) Indent() {
	b.depth++
}

// Dedent уменьшает отступ последующих строк.
func (b *BufferSink) Dedent() {
	if b.depth > 0 {
		b.depth--
	}
}

// String возвращает накопленный текст.
func (b *BufferSink) String() string {
	return b.buf.String()
}
