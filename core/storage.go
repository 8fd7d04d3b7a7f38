package core

// NamedStorage binds a registration name to an owned storage body. T is the
// storage shape, typically the plain or keyed raw-storage capability defined
// by the registry that collects the instances.
//
// The name is fixed at construction and doubles as the lookup key, so it must
// be unique within the owning collection. NamedStorage itself does not
// enforce uniqueness; the registry rejects duplicates at registration time.
type NamedStorage[T any] struct {
	name string

	// Contents is the storage body. It is owned exclusively by the holder of
	// the NamedStorage and is mutated through the recording path only.
	Contents T
}

// NewNamedStorage pairs name with the given storage body.
func NewNamedStorage[T any](name string, contents T) NamedStorage[T] {
	return NamedStorage[T]{name: name, Contents: contents}
}

// Name returns the registration name.
func (s *NamedStorage[T]) Name() string { return s.name }

// Subset selects which collection of named storages a payload covers.
type Subset int

const (
	// AllPlain covers every plain histogram.
	AllPlain Subset = iota

	// AllKeyed covers every keyed histogram.
	AllKeyed
)

// String implements fmt.Stringer.
func (s Subset) String() string {
	switch s {
	case AllPlain:
		return "plain"
	case AllKeyed:
		return "keyed"
	default:
		return "unknown"
	}
}

// Format selects the encoding flavor used when histogram contents are
// rendered into a payload. New flavors are added here; the rendering rules
// live with the storages and the payload writer, not in this package.
type Format int

const (
	// SimpleJSON renders each histogram into a plain JSON value:
	// flags become booleans, keyed flags become arrays of the set keys,
	// counters become numbers, linear and enumerated histograms become
	// arrays of per-bucket counts, and their keyed variants become objects
	// of key to rendered value.
	SimpleJSON Format = iota
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case SimpleJSON:
		return "simple-json"
	default:
		return "unknown"
	}
}
