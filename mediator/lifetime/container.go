package lifetime

import "fmt"

// Container — черный ящик возможностей DI-контейнера времени выполнения.
// Движок не знает ничего о внутреннем устройстве контейнера и пользуется
// только этими тремя операциями.
type Container interface {
	// Resolve возвращает зарегистрированный в контейнере экземпляр типа.
	Resolve(typeName string) (any, error)

	// ResolveKeyed возвращает экземпляры, зарегистрированные под ключом.
	ResolveKeyed(typeName, key string) ([]any, error)

	// CreateInstance создает новый экземпляр типа, разрешая зависимости
	// его конструктора из контейнера.
	CreateInstance(typeName string) (any, error)
}

// Factory — функция создания экземпляра без зависимостей (аналог new()).
type Factory func() (any, error)

// Instantiate возвращает экземпляр для одного вызова конвейера согласно
// выбранной стратегии. Для StrategyStaticDirect экземпляр не нужен и
// возвращается nil. construct используется только для StrategyCachedNew.
func Instantiate(strategy Strategy, typeName string, c Container, cache *Cache, construct Factory) (any, error) {
	switch strategy {
	case StrategyStaticDirect:
		return nil, nil

	case StrategyDIPerInvocation:
		if c == nil {
			return nil, fmt.Errorf("для стратегии DIPerInvocation типа '%s' требуется контейнер", typeName)
		}
		return c.Resolve(typeName)

	case StrategyCachedNew:
		if construct == nil {
			return nil, fmt.Errorf("для стратегии CachedNew типа '%s' требуется фабрика", typeName)
		}
		return cache.GetOrCreate(cache.keyFor(c, typeName), construct)

	case StrategyCachedActivatorCreate:
		if c == nil {
			return nil, fmt.Errorf("для стратегии CachedActivatorCreate типа '%s' требуется контейнер", typeName)
		}
		return cache.GetOrCreate(cache.keyFor(c, typeName), func() (any, error) {
			return c.CreateInstance(typeName)
		})

	default:
		return nil, fmt.Errorf("неизвестная стратегия создания экземпляра: %s", strategy)
	}
}
