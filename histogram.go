package histogo

import (
	"fmt"

	"github.com/hupe1980/histogo/core"
	"github.com/hupe1980/histogo/registry"
)

// Histogram handles are small value types tying a service to one registered
// storage. They are safe to copy and to record from any goroutine. Always
// obtain handles from the New* constructors; recording through a zero-value
// handle panics.

// Flag remembers whether an event happened at least once per session.
type Flag struct {
	svc *Service
	key registry.Key
}

// Record marks the flag as set.
func (f Flag) Record() {
	f.svc.recordPlain(f.key, 1)
}

// Count accumulates a monotonic counter, saturating at the uint32 ceiling.
type Count struct {
	svc *Service
	key registry.Key
}

// Add folds n into the counter.
func (c Count) Add(n uint32) {
	c.svc.recordPlain(c.key, n)
}

// Inc adds one.
func (c Count) Inc() {
	c.svc.recordPlain(c.key, 1)
}

// Enum counts occurrences per variant of an enumerated kind. Values flatten
// through core.Flatten; indexes beyond the declared variant count fold into
// the last variant.
type Enum struct {
	svc *Service
	key registry.Key
}

// Record counts one occurrence of v's variant.
func (e Enum) Record(v core.Flatten) {
	e.svc.recordPlain(e.key, v.AsUint32())
}

// Linear counts samples into a fixed linear bucket layout.
type Linear struct {
	svc *Service
	key registry.Key
}

// Record counts value into its bucket. Values at or below the layout
// minimum land in the first bucket, values at or above the maximum in the
// last.
func (l Linear) Record(value uint32) {
	l.svc.recordPlain(l.key, value)
}

// KeyedFlag is a Flag per dynamic string key.
type KeyedFlag struct {
	svc *Service
	key registry.Key
}

// Record marks the flag under key as set.
func (f KeyedFlag) Record(key string) {
	f.svc.recordKeyed(f.key, key, 1)
}

// KeyedCount is a Count per dynamic string key.
type KeyedCount struct {
	svc *Service
	key registry.Key
}

// Add folds n into the counter under key.
func (c KeyedCount) Add(key string, n uint32) {
	c.svc.recordKeyed(c.key, key, n)
}

// Inc adds one under key.
func (c KeyedCount) Inc(key string) {
	c.svc.recordKeyed(c.key, key, 1)
}

// KeyedEnum is an Enum per dynamic string key.
type KeyedEnum struct {
	svc *Service
	key registry.Key
}

// Record counts one occurrence of v's variant under key.
func (e KeyedEnum) Record(key string, v core.Flatten) {
	e.svc.recordKeyed(e.key, key, v.AsUint32())
}

// KeyedLinear is a Linear per dynamic string key.
type KeyedLinear struct {
	svc *Service
	key registry.Key
}

// Record counts value into its bucket under key.
func (l KeyedLinear) Record(key string, value uint32) {
	l.svc.recordKeyed(l.key, key, value)
}

// NewFlag registers a flag histogram under name.
func (s *Service) NewFlag(name string) (Flag, error) {
	key, err := s.registerPlain(name, newFlagStorage())
	if err != nil {
		return Flag{}, err
	}
	return Flag{svc: s, key: key}, nil
}

// NewCount registers a counter histogram under name.
func (s *Service) NewCount(name string) (Count, error) {
	key, err := s.registerPlain(name, newCountStorage())
	if err != nil {
		return Count{}, err
	}
	return Count{svc: s, key: key}, nil
}

// NewEnum registers an enumerated histogram with one counter per variant.
// Panics if variants is not positive; the variant count is part of the
// histogram definition, not runtime input.
func (s *Service) NewEnum(name string, variants int) (Enum, error) {
	if variants <= 0 {
		panic(fmt.Sprintf("histogo: enum %q needs at least one variant, got %d", name, variants))
	}
	key, err := s.registerPlain(name, newEnumStorage(variants))
	if err != nil {
		return Enum{}, err
	}
	return Enum{svc: s, key: key}, nil
}

// NewLinear registers a linear-bucketed histogram. The layout invariants
// are enforced by core.NewLinearBuckets, which panics on a malformed
// definition.
func (s *Service) NewLinear(name string, min, max uint32, buckets int) (Linear, error) {
	layout := core.NewLinearBuckets(min, max, buckets)
	key, err := s.registerPlain(name, newLinearStorage(layout))
	if err != nil {
		return Linear{}, err
	}
	return Linear{svc: s, key: key}, nil
}

// NewKeyedFlag registers a keyed flag histogram under name.
func (s *Service) NewKeyedFlag(name string) (KeyedFlag, error) {
	key, err := s.registerKeyed(name, newKeyedFlagStorage())
	if err != nil {
		return KeyedFlag{}, err
	}
	return KeyedFlag{svc: s, key: key}, nil
}

// NewKeyedCount registers a keyed counter histogram under name.
func (s *Service) NewKeyedCount(name string) (KeyedCount, error) {
	key, err := s.registerKeyed(name, newKeyedCountStorage())
	if err != nil {
		return KeyedCount{}, err
	}
	return KeyedCount{svc: s, key: key}, nil
}

// NewKeyedEnum registers a keyed enumerated histogram. Panics if variants
// is not positive.
func (s *Service) NewKeyedEnum(name string, variants int) (KeyedEnum, error) {
	if variants <= 0 {
		panic(fmt.Sprintf("histogo: enum %q needs at least one variant, got %d", name, variants))
	}
	key, err := s.registerKeyed(name, newKeyedEnumStorage(variants))
	if err != nil {
		return KeyedEnum{}, err
	}
	return KeyedEnum{svc: s, key: key}, nil
}

// NewKeyedLinear registers a keyed linear-bucketed histogram.
func (s *Service) NewKeyedLinear(name string, min, max uint32, buckets int) (KeyedLinear, error) {
	layout := core.NewLinearBuckets(min, max, buckets)
	key, err := s.registerKeyed(name, newKeyedLinearStorage(layout))
	if err != nil {
		return KeyedLinear{}, err
	}
	return KeyedLinear{svc: s, key: key}, nil
}
