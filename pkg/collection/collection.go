// Package collection provides generic, functional-style helpers for slices.
//
// Usage:
//
//	names := collection.Map(users, func(u models.User) string { return u.Name })
//	perAge := collection.CountBy(ages, func(a int) int { return a })
//	total := collection.Sum(orders, func(o models.Order) float64 { return o.Price })
package collection

import (
	"cmp"
	"sort"
)

// Map transforms each element of slice s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Sum sums numeric values extracted by fn.
func Sum[T any](s []T, fn func(T) float64) float64 {
	var total float64
	for _, v := range s {
		total += fn(v)
	}
	return total
}

// CountBy counts elements per key extracted by fn.
func CountBy[T any, K comparable](s []T, fn func(T) K) map[K]int64 {
	out := make(map[K]int64)
	for _, v := range s {
		out[fn(v)]++
	}
	return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Take returns the first n elements.
func Take[T any](s []T, n int) []T {
	if n >= len(s) {
		return s
	}
	if n < 0 {
		return s[:0]
	}
	return s[:n]
}
