// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package utils

import "errors"

var ErrHeapEmpty = errors.New("paloo_sort: heap is empty")

// MinHeap is an array backed binary min-heap.
// Ordering is defined by the comparator, the element with the smallest value is at the root.
// Every non-root element compares greater or equal to its parent.
// Not safe for concurrent use.
type MinHeap[T any] struct {
	items   []T
	compare func(a, b T) int
}

// NewMinHeap creates a heap with preallocated capacity, the heap still grows beyond it.
func NewMinHeap[T any](capacity int, comparator Comparator[T]) *MinHeap[T] {
	return &MinHeap[T]{
		items:   make([]T, 0, max(capacity, 0)),
		compare: comparator.Compare,
	}
}

// NewMinHeapFunc is NewMinHeap for a plain compare function.
func NewMinHeapFunc[T any](capacity int, compare func(a, b T) int) *MinHeap[T] {
	return NewMinHeap(capacity, ComparatorFunc[T](compare))
}

// Count returns the number of live elements
func (h *MinHeap[T]) Count() int {
	return len(h.items)
}

// Insert appends the item and sifts it up, O(log n)
func (h *MinHeap[T]) Insert(item T) {
	h.items = append(h.items, item)
	h.siftUp(len(h.items) - 1)
}

// Peek returns the minimum without removing it
func (h *MinHeap[T]) Peek() (T, error) {
	if len(h.items) == 0 {
		return Zero[T](), ErrHeapEmpty
	}
	return h.items[0], nil
}

// RemoveMin removes and returns the minimum, O(log n).
// Returns ErrHeapEmpty if there is nothing to remove.
func (h *MinHeap[T]) RemoveMin() (T, error) {
	n := len(h.items)
	if n == 0 {
		return Zero[T](), ErrHeapEmpty
	}
	minItem := h.items[0]
	last := n - 1
	h.items[0] = h.items[last]
	h.items[last] = Zero[T]() // release reference for gc
	h.items = h.items[:last]
	if last > 0 {
		h.siftDown(0)
	}
	return minItem, nil
}

func (h *MinHeap[T]) siftUp(index int) {
	for index > 0 {
		parent := (index - 1) / 2
		if h.compare(h.items[index], h.items[parent]) >= 0 {
			break
		}
		h.items[index], h.items[parent] = h.items[parent], h.items[index]
		index = parent
	}
}

func (h *MinHeap[T]) siftDown(index int) {
	n := len(h.items)
	for {
		left := 2*index + 1
		if left >= n {
			return
		}
		smaller := left
		if right := left + 1; right < n && h.compare(h.items[right], h.items[left]) < 0 {
			smaller = right
		}
		if h.compare(h.items[index], h.items[smaller]) <= 0 {
			return
		}
		h.items[index], h.items[smaller] = h.items[smaller], h.items[index]
		index = smaller
	}
}
