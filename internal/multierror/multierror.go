package multierror

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Error collects errors keyed by the resource that produced them, such as the
// address of a connection that failed to close. It is safe for concurrent use.
type Error[K comparable] struct {
	mut    sync.Mutex
	errors map[K]error
}

func New[K comparable]() *Error[K] {
	return &Error[K]{
		errors: make(map[K]error),
	}
}

// Add records the error for the key. Nil errors are ignored, a later error
// for the same key replaces the earlier one.
func (m *Error[K]) Add(key K, err error) {
	if err == nil {
		return
	}

	m.mut.Lock()
	defer m.mut.Unlock()

	m.errors[key] = err
}

func (m *Error[K]) Len() int {
	m.mut.Lock()
	defer m.mut.Unlock()

	return len(m.errors)
}

// Error joins the collected errors in a stable order.
func (m *Error[K]) Error() string {
	m.mut.Lock()
	defer m.mut.Unlock()

	parts := make([]string, 0, len(m.errors))
	for key, err := range m.errors {
		parts = append(parts, fmt.Sprintf("%v: %s", key, err))
	}

	sort.Strings(parts)

	return strings.Join(parts, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *Error[K]) Unwrap() []error {
	m.mut.Lock()
	defer m.mut.Unlock()

	errs := make([]error, 0, len(m.errors))
	for _, err := range m.errors {
		errs = append(errs, err)
	}

	return errs
}

// Combined returns nil if nothing was collected, and m otherwise.
func (m *Error[K]) Combined() error {
	if m.Len() == 0 {
		return nil
	}

	return m
}
