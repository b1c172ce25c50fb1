package database

import "sync"

// NameResolver maps entity names to their physical table names, applying the
// configured prefix. Resolutions are memoized; a key always resolves to the
// same value once computed, so concurrent readers are safe. Injected into
// repositories so tests can isolate their own instance.
type NameResolver struct {
	prefix string

	mutex sync.RWMutex
	names map[string]string
}

func NewNameResolver(prefix string) *NameResolver {
	return &NameResolver{
		prefix: prefix,
		names:  make(map[string]string),
	}
}

func (r *NameResolver) Resolve(entity string) string {
	r.mutex.RLock()
	name, ok := r.names[entity]
	r.mutex.RUnlock()
	if ok {
		return name
	}

	name = r.prefix + entity
	r.mutex.Lock()
	r.names[entity] = name
	r.mutex.Unlock()
	return name
}
