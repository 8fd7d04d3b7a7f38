package core

// Flatten is the capability shared by every sample kind: a pure, total
// conversion of one recorded sample into its unsigned count contribution.
//
// The built-in kinds cover the recording surface of this library: Unit for
// payload-free events, Bool for flags, Count for counters. The capability is
// deliberately open; applications with enum-like samples implement Flatten
// to map their variants onto consecutive values and record them into an Enum
// histogram.
type Flatten interface {
	// AsUint32 returns the numeric contribution of the sample.
	// Implementations must be pure and total: no side effects, no failure.
	AsUint32() uint32
}

// Unit is the sample kind of payload-free events. It always flattens to 0.
type Unit struct{}

// AsUint32 implements Flatten.
func (Unit) AsUint32() uint32 { return 0 }

// Bool is the boolean sample kind: true flattens to 1, false to 0.
type Bool bool

// AsUint32 implements Flatten.
func (b Bool) AsUint32() uint32 {
	if b {
		return 1
	}
	return 0
}

// Count is the counter sample kind. It flattens to itself.
type Count uint32

// AsUint32 implements Flatten.
func (c Count) AsUint32() uint32 { return uint32(c) }
