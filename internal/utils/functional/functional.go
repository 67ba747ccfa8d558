// Package functional holds small slice helpers used when shaping responses.
package functional

// Map applies f to every element of items and returns the results in the
// same order.
func Map[T, R any](items []T, f func(T) R) []R {
	mapped := make([]R, 0, len(items))
	for _, item := range items {
		mapped = append(mapped, f(item))
	}
	return mapped
}
