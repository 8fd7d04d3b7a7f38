package core

import "slices"

// Grow returns buf extended to at least minLen elements, with every new slot
// set to fill. The call is a no-op when buf is already long enough. Callers
// must use the returned slice: growth may move the backing array.
//
// The reported length can never run ahead of initialized elements: append
// either completes or panics before the slice header is updated, so a grown
// buffer never exposes garbage slots, even on allocation failure.
func Grow[T any](buf []T, minLen int, fill T) []T {
	if minLen <= len(buf) {
		return buf
	}
	buf = slices.Grow(buf, minLen-len(buf))
	for len(buf) < minLen {
		buf = append(buf, fill)
	}
	return buf
}

// Filled allocates a buffer of exactly size elements, each set to fill.
func Filled[T any](size int, fill T) []T {
	buf := make([]T, size)
	for i := range buf {
		buf[i] = fill
	}
	return buf
}
