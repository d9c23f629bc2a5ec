package types

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// Set is a mutable hash set backed by map[T]struct{}.
type Set[T comparable] map[T]struct{}

// NewSet creates a Set holding data.
func NewSet[T comparable](data ...T) Set[T] {
	set := make(Set[T], len(data))
	set.Add(data...)
	return set
}

// Add inserts values into the set.
func (s Set[T]) Add(values ...T) {
	for _, val := range values {
		s[val] = struct{}{}
	}
}

// Delete removes values from the set.
func (s Set[T]) Delete(values ...T) {
	for _, val := range values {
		delete(s, val)
	}
}

// Has reports whether val is a member of the set.
func (s Set[T]) Has(val T) bool {
	_, ok := s[val]
	return ok
}

// Clone returns a shallow copy of the set.
func (s Set[T]) Clone() Set[T] {
	return maps.Clone(s)
}

// ToIter returns an iterator over the set. Order is unspecified.
func (s Set[T]) ToIter() iter.Seq[T] {
	return maps.Keys(s)
}

// ToSlice returns the members in unspecified order.
func (s Set[T]) ToSlice() []T {
	return slices.Collect(s.ToIter())
}

// SortedSlice returns the members ordered by cmpFn.
func SortedSlice[T comparable](s Set[T], cmpFn func(a, b T) int) []T {
	return slices.SortedFunc(s.ToIter(), cmpFn)
}

// Sorted returns the members of a set of ordered values in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	return slices.Sorted(s.ToIter())
}
