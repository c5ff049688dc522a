package facts

import (
	"encoding/json"
	"fmt"
	"io"
)

// Manifest — сериализуемый снимок структурных фактов, выдаваемый слоем
// анализа хост-компилятора. Содержит чистые данные без побочных эффектов;
// движок синтеза потребляет его как единственный источник истины.
type Manifest struct {
	Handlers   []*HandlerDescriptor `json:"handlers"`
	Middleware []RawMiddleware      `json:"middleware"`
	CallSites  []*CallSite          `json:"call_sites"`
}

// UnmarshalJSON десериализует дескриптор обработчика, отличая
// отсутствующий порядок от явного нуля: незаданный порядок — это
// OrderUnset, и такой дескриптор уходит в конец сортировки.
func (h *HandlerDescriptor) UnmarshalJSON(data []byte) error {
	type alias HandlerDescriptor
	aux := struct {
		*alias
		Order *int `json:"order"`
	}{alias: (*alias)(h)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Order == nil {
		h.Order = OrderUnset
	} else {
		h.Order = *aux.Order
	}
	return nil
}

// UnmarshalJSON десериализует сырое middleware с тем же правилом порядка,
// что и у обработчиков: отсутствующий порядок — OrderUnset.
func (m *RawMiddleware) UnmarshalJSON(data []byte) error {
	type alias RawMiddleware
	aux := struct {
		*alias
		Order *int `json:"order"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Order == nil {
		m.Order = OrderUnset
	} else {
		m.Order = *aux.Order
	}
	return nil
}

// LoadManifest читает и разбирает манифест фактов из r.
func LoadManifest(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать манифест фактов: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("не удалось разобрать манифест фактов: %w", err)
	}

	for _, h := range m.Handlers {
		if h.Message == nil {
			return nil, fmt.Errorf("обработчик '%s' не указывает тип сообщения", h.ID())
		}
	}
	return &m, nil
}

// HandlersFor возвращает обработчики, целящиеся в указанный тип сообщения.
func (m *Manifest) HandlersFor(messageName string) []*HandlerDescriptor {
	var out []*HandlerDescriptor
	for _, h := range m.Handlers {
		if h.Message.Name == messageName {
			out = append(out, h)
		}
	}
	return out
}

// CallSitesFor возвращает точки вызова для указанного типа сообщения.
func (m *Manifest) CallSitesFor(messageName string) []*CallSite {
	var out []*CallSite
	for _, c := range m.CallSites {
		if c.MessageName == messageName {
			out = append(out, c)
		}
	}
	return out
}

// MessageNames возвращает имена всех типов сообщений, упомянутых
// обработчиками или точками вызова, в стабильном порядке обнаружения.
func (m *Manifest) MessageNames() []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	for _, h := range m.Handlers {
		add(h.Message.Name)
	}
	for _, c := range m.CallSites {
		add(c.MessageName)
	}
	return names
}
