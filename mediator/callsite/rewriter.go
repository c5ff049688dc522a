// Package callsite группирует точки вызова диспетчеризации и строит
// таблицу перенаправления: каждая группа точек вызова получает одну
// сгенерированную точку входа прямой диспетчеризации, а отпечатки
// расположений связываются с ней без правки исходного текста.
package callsite

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/x-research-team/mdx-framework/mediator/facts"
	"github.com/x-research-team/mdx-framework/mediator/match"
)

// GroupKey — ключ группировки точек вызова. Точки вызова одного типа
// сообщения с одинаковым ключом обслуживаются одной точкой входа.
type GroupKey struct {
	// Method — Invoke, InvokeAsync или PublishAsync.
	Method string
	// ResponseType — ожидаемый тип ответа, пустой для void-вызовов.
	ResponseType string
	// TypedOverload помечает вызовы через типизированную перегрузку.
	TypedOverload bool
}

// Sync сообщает, требует ли группа синхронного выполнения.
func (k GroupKey) Sync() bool {
	return k.Method == facts.MethodInvoke
}

// EntryPoint — одна сгенерированная точка входа прямой диспетчеризации.
type EntryPoint struct {
	// Name — детерминированное имя точки входа. Имя зависит только от
	// типа сообщения и ключа группы, поэтому повторные сборки по тем же
	// фактам дают байт-в-байт одинаковый результат.
	Name string

	MessageName string
	Key         GroupKey

	// Slot — индекс элемента кортежа, возвращаемого этой точкой входа как
	// ответ. Остальные элементы, включая нулевой, каскадируются. Для
	// некортежных обработчиков всегда 0.
	Slot int

	// Fingerprints — отпечатки всех точек вызова, перенаправленных сюда,
	// в отсортированном порядке.
	Fingerprints []string
}

// RedirectTable отображает отпечаток точки вызова на ее точку входа.
type RedirectTable map[string]*EntryPoint

// EntryPoints возвращает точки входа таблицы в детерминированном порядке имен.
func (t RedirectTable) EntryPoints() []*EntryPoint {
	seen := make(map[string]*EntryPoint, len(t))
	for _, ep := range t {
		seen[ep.Name] = ep
	}
	out := make([]*EntryPoint, 0, len(seen))
	for _, ep := range seen {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Rewrite проверяет точки вызова одного типа сообщения против его
// обработчиков и применимых middleware, группирует их и строит таблицу
// перенаправления. Для групп с ошибочными диагностиками точки входа не
// создаются: исходный вызов остается на динамической диспетчеризации.
func Rewrite(
	messageName string,
	sites []*facts.CallSite,
	handlers []*facts.HandlerDescriptor,
	applicable []match.Applicable,
	cfg facts.Config,
) (RedirectTable, []facts.Diagnostic) {
	groups := groupSites(sites)
	table := make(RedirectTable)

	var diags []facts.Diagnostic
	for _, g := range groups {
		groupDiags := validateGroup(messageName, g, handlers, applicable)
		diags = append(diags, groupDiags...)
		if facts.HasErrors(groupDiags) {
			continue
		}
		// Invoke-группе без обработчика некуда перенаправляться: вызов
		// остается на динамической диспетчеризации.
		if g.key.Method != facts.MethodPublishAsync && len(handlers) == 0 {
			continue
		}
		if !cfg.RedirectEnabled {
			continue
		}

		ep := &EntryPoint{
			Name:        entryName(messageName, g.key),
			MessageName: messageName,
			Key:         g.key,
			Slot:        slotFor(handlers, g.key.ResponseType),
		}
		for _, site := range g.sites {
			ep.Fingerprints = append(ep.Fingerprints, site.Fingerprint)
			table[site.Fingerprint] = ep
		}
		sort.Strings(ep.Fingerprints)
	}

	return table, diags
}

// group — промежуточная группа точек вызова с общим ключом.
type group struct {
	key   GroupKey
	sites []*facts.CallSite
}

// groupSites разбивает точки вызова по ключам группировки. Порядок групп
// детерминирован независимо от порядка обнаружения точек вызова.
func groupSites(sites []*facts.CallSite) []group {
	byKey := make(map[GroupKey]*group)
	for _, site := range sites {
		key := GroupKey{
			Method:        site.Method,
			ResponseType:  site.ResponseType,
			TypedOverload: site.TypedOverload,
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
		}
		g.sites = append(g.sites, site)
	}

	out := make([]group, 0, len(byKey))
	for _, g := range byKey {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].key, out[j].key
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.ResponseType != b.ResponseType {
			return a.ResponseType < b.ResponseType
		}
		return !a.TypedOverload && b.TypedOverload
	})
	return out
}

// validateGroup проверяет контракт группы точек вызова.
func validateGroup(
	messageName string,
	g group,
	handlers []*facts.HandlerDescriptor,
	applicable []match.Applicable,
) []facts.Diagnostic {
	var diags []facts.Diagnostic

	// PublishAsync допускает любое число обработчиков, включая ноль.
	if g.key.Method == facts.MethodPublishAsync {
		return nil
	}

	switch {
	case len(handlers) == 0:
		// Не фатально: динамическая диспетчеризация может найти обработчик
		// во время выполнения.
		diags = append(diags, diag(facts.SeverityInfo, facts.CodeNoInvokeHandler, g,
			fmt.Sprintf("для '%s' не найден обработчик: вызов остается динамическим", messageName)))
		return diags
	case len(handlers) > 1:
		names := make([]string, 0, len(handlers))
		for _, h := range handlers {
			names = append(names, h.ID())
		}
		sort.Strings(names)
		diags = append(diags, diag(facts.SeverityError, facts.CodeMultipleInvokeHandlers, g,
			fmt.Sprintf("для '%s' найдено %d обработчиков (%s): используйте PublishAsync для веерной доставки",
				messageName, len(handlers), strings.Join(names, ", "))))
		return diags
	}

	if !g.key.Sync() {
		return diags
	}

	// Синхронный Invoke не может безопасно блокироваться на асинхронной
	// работе: проверяем все три источника асинхронности.
	h := handlers[0]
	if h.IsAsync {
		diags = append(diags, diag(facts.SeverityError, facts.CodeSyncInvokeAsyncHandler, g,
			fmt.Sprintf("синхронный Invoke для '%s' целится в асинхронный метод %s", messageName, h.ID())))
	}
	if h.Returns.IsTuple() {
		diags = append(diags, diag(facts.SeverityError, facts.CodeSyncInvokeTupleHandler, g,
			fmt.Sprintf("синхронный Invoke для '%s' целится в обработчик %s с каскадирующим кортежем: каскадная публикация асинхронна",
				messageName, h.ID())))
	}
	for _, a := range applicable {
		if a.Middleware.HasAsyncPhase() {
			diags = append(diags, diag(facts.SeverityError, facts.CodeSyncInvokeAsyncMiddleware, g,
				fmt.Sprintf("синхронный Invoke для '%s': применимое middleware %s содержит асинхронную фазу",
					messageName, a.Middleware.ID())))
			break
		}
	}

	return diags
}

// slotFor определяет адресуемый слот кортежа по ожидаемому типу ответа
// точки вызова. Точка вызова может запросить любой из N элементов кортежа
// как ответ: остальные элементы становятся побочными уведомлениями.
func slotFor(handlers []*facts.HandlerDescriptor, responseType string) int {
	if len(handlers) != 1 || responseType == "" {
		return 0
	}
	returns := handlers[0].Returns
	if !returns.IsTuple() {
		return 0
	}
	for i, name := range returns.TupleSlots {
		if name == responseType {
			return i
		}
	}
	return 0
}

// AddressSlot разделяет элементы кортежа по адресуемому слоту: элемент
// slot становится ответом, все прочие, включая нулевой, каскадируются.
// Порядок каскадируемых элементов сохраняет порядок слотов кортежа.
func AddressSlot(items []any, slot int) (response any, cascades []any) {
	if slot < 0 || slot >= len(items) {
		slot = 0
	}
	if len(items) == 0 {
		return nil, nil
	}
	cascades = make([]any, 0, len(items)-1)
	for i, item := range items {
		if i == slot {
			response = item
			continue
		}
		cascades = append(cascades, item)
	}
	return response, cascades
}

// diag строит диагностику группы, привязанную к отпечаткам всех ее точек
// вызова через первый отпечаток (остальные перечислены в Subject).
func diag(sev facts.Severity, code string, g group, msg string) facts.Diagnostic {
	d := facts.Diagnostic{Code: code, Severity: sev, Message: msg}
	if len(g.sites) > 0 {
		d.Fingerprint = g.sites[0].Fingerprint
	}
	return d
}

// entryName строит детерминированное имя точки входа из типа сообщения
// и ключа группы.
func entryName(messageName string, key GroupKey) string {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s|%s|%s|%t", messageName, key.Method, key.ResponseType, key.TypedOverload)
	return fmt.Sprintf("%s_%s_%08x", key.Method, sanitize(messageName), h.Sum32())
}

// sanitize приводит имя типа к виду, допустимому в идентификаторе.
func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
