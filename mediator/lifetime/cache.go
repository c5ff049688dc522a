package lifetime

import (
	"fmt"
	"sync"
)

// Cache — кеш экземпляров для кешируемых стратегий. Инициализация ленивая
// и устойчивая к гонкам: побеждает первый записавший, избыточно созданный
// проигравшим потоком экземпляр отбрасывается. Это требует, чтобы
// конструирование было достаточно свободно от побочных эффектов — лишний
// выброшенный экземпляр должен быть безвреден.
//
// По умолчанию кеш общий на процесс, что воспроизводит документированный
// компромисс для CachedActivatorCreate: экземпляр с зависимостями
// конструктора, созданный первым контейнером, виден и последующим
// контейнерам. Опция WithContainerScope привязывает ключи кеша к
// конкретному контейнеру и устраняет утечку между контейнерами ценой
// повторного создания на каждый контейнер.
type Cache struct {
	instances       sync.Map
	containerScoped bool
}

// CacheOption настраивает кеш экземпляров.
type CacheOption func(*Cache)

// WithContainerScope привязывает кеш к области контейнера: экземпляры,
// созданные для одного контейнера, не видны другим.
func WithContainerScope() CacheOption {
	return func(c *Cache) {
		c.containerScoped = true
	}
}

// NewCache создает новый кеш экземпляров.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate возвращает кешированный экземпляр или создает новый.
// При параллельном создании сохраняется ровно один экземпляр; все
// читатели получают его же.
func (c *Cache) GetOrCreate(key string, create Factory) (any, error) {
	if v, ok := c.instances.Load(key); ok {
		return v, nil
	}

	v, err := create()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать экземпляр '%s': %w", key, err)
	}

	// Первый записавший побеждает; наш экземпляр может быть отброшен.
	actual, _ := c.instances.LoadOrStore(key, v)
	return actual, nil
}

// keyFor строит ключ кеша для типа. При области контейнера идентичность
// контейнера входит в ключ.
func (c *Cache) keyFor(cont Container, typeName string) string {
	if c.containerScoped && cont != nil {
		return fmt.Sprintf("%p/%s", cont, typeName)
	}
	return typeName
}
