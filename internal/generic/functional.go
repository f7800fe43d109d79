package generic

// Filter returns the elements of s for which f returns true. A nil f keeps
// every element.
func Filter[T any](s []T, f func(T) bool) []T {
	if f == nil {
		return s
	}

	var res []T

	for _, v := range s {
		if f(v) {
			res = append(res, v)
		}
	}

	return res
}
