package set

// Set is an unordered collection of unique values.
type Set[T comparable] map[T]struct{}

func FromSlice[T comparable](values []T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s.Add(v)
	}

	return s
}

func (s Set[T]) Add(v T) {
	s[v] = struct{}{}
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Values returns the elements of the set in no particular order.
func (s Set[T]) Values() []T {
	values := make([]T, 0, len(s))
	for v := range s {
		values = append(values, v)
	}

	return values
}

// Difference returns the elements of s that are not in other.
func (s Set[T]) Difference(other Set[T]) Set[T] {
	diff := make(Set[T])

	for v := range s {
		if !other.Has(v) {
			diff.Add(v)
		}
	}

	return diff
}
