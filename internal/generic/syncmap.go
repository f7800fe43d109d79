package generic

import "sync"

// SyncMap is a typed sync.Map.
type SyncMap[K comparable, V any] struct {
	m sync.Map
}

func (m *SyncMap[K, V]) Store(key K, value V) {
	m.m.Store(key, value)
}

// Load returns the value stored for the key and whether it was present.
func (m *SyncMap[K, V]) Load(key K) (value V, ok bool) {
	v, ok := m.m.Load(key)
	if !ok {
		return value, false
	}

	return v.(V), true
}

// Range calls f for every entry until f returns false. See sync.Map.Range for
// the consistency guarantees.
func (m *SyncMap[K, V]) Range(f func(key K, value V) bool) {
	m.m.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

// Len counts the entries of the map.
func (m *SyncMap[K, V]) Len() int {
	var n int

	m.m.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}
