// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Provides small generic helpers shared by the sort operators
package utils

import "iter"

// Zero element for generic types
func Zero[T any]() T {
	var zero T
	return zero
}

// Comparator function as interface to use in generic algorithms
// for inline implementations
type Comparator[T any] interface {
	Compare(a, b T) int
}

// ComparatorFunc adapts a plain compare function to the Comparator interface.
type ComparatorFunc[T any] func(a, b T) int

func (f ComparatorFunc[T]) Compare(a, b T) int {
	return f(a, b)
}

// Map lazily applies mapFunc to every element of input.
func Map[T any, U any](input iter.Seq[T], mapFunc func(T) U) iter.Seq[U] {
	return func(yield func(U) bool) {
		for item := range input {
			if !yield(mapFunc(item)) {
				return
			}
		}
	}
}
