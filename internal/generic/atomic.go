package generic

import (
	"sync/atomic"
)

// Atomic is the same as atomic.Value with additional type safety.
type Atomic[T any] struct {
	value atomic.Value
}

// NewAtomic creates an Atomic holding the given initial value, so that Load
// never observes an empty container.
func NewAtomic[T any](initial T) *Atomic[T] {
	v := &Atomic[T]{}
	v.value.Store(initial)

	return v
}

func (v *Atomic[T]) Load() T {
	return v.value.Load().(T)
}

func (v *Atomic[T]) Store(value T) {
	v.value.Store(value)
}

// Swap stores the new value and returns the previous one. The zero value of T
// is returned if nothing has been stored before.
func (v *Atomic[T]) Swap(value T) (old T) {
	if prev := v.value.Swap(value); prev != nil {
		return prev.(T)
	}

	return old
}
