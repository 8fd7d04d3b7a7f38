// Package core provides the primitives shared by every histogram kind:
// linear bucket mapping, sample flattening, named storage containers, and the
// subset/format tags consumed when payloads are rendered.
//
// Everything in this package is synchronous, allocation-light and free of
// locks. Types are immutable after construction unless documented otherwise
// and may be shared across goroutines for reading.
package core

import "fmt"

// LinearBuckets partitions the half-open value range [min, max) into a fixed
// number of equal-width buckets. It is shared by plain and keyed linear
// histograms: the histogram owns the per-bucket counts, LinearBuckets owns
// the value-to-bucket mapping.
type LinearBuckets struct {
	min     uint32
	max     uint32 // invariant: max > min
	buckets int    // invariant: 0 < buckets < max-min
}

// NewLinearBuckets returns the bucket layout for the range [min, max) split
// into the given number of equal-width buckets.
//
// The layout is validated here because a bad layout is a mistake in the
// histogram definition, not a runtime condition: NewLinearBuckets panics
// unless min < max, buckets > 0 and buckets < max-min. The last rule keeps
// every bucket at least one unit wide, so no bucket boundary is ambiguous.
func NewLinearBuckets(min, max uint32, buckets int) LinearBuckets {
	if min >= max {
		panic(fmt.Sprintf("core: linear bucket range [%d, %d) is empty", min, max))
	}
	if buckets <= 0 {
		panic("core: linear bucket count must be positive")
	}
	if uint64(buckets) >= uint64(max-min) {
		panic(fmt.Sprintf("core: %d buckets cannot span a range of %d values", buckets, max-min))
	}
	return LinearBuckets{min: min, max: max, buckets: buckets}
}

// Min returns the inclusive lower bound of the bucketed range.
func (lb LinearBuckets) Min() uint32 { return lb.min }

// Max returns the exclusive upper bound of the bucketed range.
func (lb LinearBuckets) Max() uint32 { return lb.max }

// Buckets returns the number of buckets.
func (lb LinearBuckets) Buckets() int { return lb.buckets }

// Bucket maps a sample value to a bucket index in [0, Buckets()).
//
// Values at or below Min land in bucket 0 and values at or above Max land in
// the last bucket. Interior values are placed by linear interpolation in
// single precision, truncated toward zero. Payloads produced by earlier
// releases used exactly this arithmetic, so samples sitting on an interior
// bucket boundary must keep rounding the way float32 rounds them; do not
// rewrite the interpolation over integers.
//
// Bucket never fails: every value maps to a valid index.
func (lb LinearBuckets) Bucket(value uint32) int {
	if value <= lb.min {
		return 0
	}
	if value >= lb.max {
		return lb.buckets - 1
	}
	num := float32(value) - float32(lb.min)
	den := float32(lb.max) - float32(lb.min)
	idx := int(num / den * float32(lb.buckets))
	if idx >= lb.buckets {
		// num/den can round up to 1.0 for values just under max.
		idx = lb.buckets - 1
	}
	return idx
}
