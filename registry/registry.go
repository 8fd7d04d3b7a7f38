// Package registry collects named histogram storages and renders them into
// payload values.
//
// A Registry holds two collections, plain storages and keyed storages, each
// addressed by a dense Key in registration order. Names are unique across
// both collections; registering a name twice fails, which is the only place
// duplicate registration is caught.
//
// The Registry does not lock. It is designed for a single-writer model: one
// goroutine (the service recorder) performs all registration, recording and
// rendering. Wrapping it for concurrent use is the caller's responsibility.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/histogo/core"
)

var (
	// ErrDuplicateName is returned when a name is already registered.
	ErrDuplicateName = errors.New("duplicate histogram name")

	// ErrEmptyName is returned when a histogram is registered without a name.
	ErrEmptyName = errors.New("empty histogram name")

	// ErrUnknownFormat is returned by storages asked to render a format they
	// do not implement.
	ErrUnknownFormat = errors.New("unknown serialization format")
)

// Key is the dense identifier of a storage within one collection of a
// Registry. Keys are assigned in registration order and are never reused.
type Key uint32

// PlainStorage is the raw storage body of a plain histogram.
type PlainStorage interface {
	// Store folds one flattened sample into the storage.
	Store(value uint32)

	// Render returns the storage contents as a value the payload codec can
	// marshal, shaped according to the format.
	Render(f core.Format) (any, error)

	// State returns an opaque encoding of the contents for session
	// persistence; RestoreState applies one produced by State.
	State() ([]byte, error)
	RestoreState(data []byte) error
}

// KeyedStorage is the raw storage body of a keyed histogram: an independent
// set of contents per dynamic string key.
type KeyedStorage interface {
	// Store folds one flattened sample into the contents under key.
	Store(key string, value uint32)

	Render(f core.Format) (any, error)

	State() ([]byte, error)
	RestoreState(data []byte) error
}

// Registry is the collection of all registered histogram storages.
type Registry struct {
	plain []core.NamedStorage[PlainStorage]
	keyed []core.NamedStorage[KeyedStorage]
	names map[string]struct{}

	// Dirty sets track which storages changed since the last delta render,
	// one bit per Key.
	dirtyPlain *roaring.Bitmap
	dirtyKeyed *roaring.Bitmap
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		names:      make(map[string]struct{}),
		dirtyPlain: roaring.New(),
		dirtyKeyed: roaring.New(),
	}
}

func (r *Registry) claimName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.names[name] = struct{}{}
	return nil
}

// RegisterPlain adds a plain storage under name and returns its Key.
func (r *Registry) RegisterPlain(name string, s PlainStorage) (Key, error) {
	if err := r.claimName(name); err != nil {
		return 0, err
	}
	r.plain = append(r.plain, core.NewNamedStorage(name, s))
	return Key(len(r.plain) - 1), nil
}

// RegisterKeyed adds a keyed storage under name and returns its Key.
func (r *Registry) RegisterKeyed(name string, s KeyedStorage) (Key, error) {
	if err := r.claimName(name); err != nil {
		return 0, err
	}
	r.keyed = append(r.keyed, core.NewNamedStorage(name, s))
	return Key(len(r.keyed) - 1), nil
}

// RecordPlain folds value into the plain storage at k and marks it dirty.
// k must come from RegisterPlain on this registry.
func (r *Registry) RecordPlain(k Key, value uint32) {
	r.plain[k].Contents.Store(value)
	r.dirtyPlain.Add(uint32(k))
}

// RecordKeyed folds value into the keyed storage at k under key and marks it
// dirty. k must come from RegisterKeyed on this registry.
func (r *Registry) RecordKeyed(k Key, key string, value uint32) {
	r.keyed[k].Contents.Store(key, value)
	r.dirtyKeyed.Add(uint32(k))
}

// Len reports the number of storages in the subset's collection.
func (r *Registry) Len(subset core.Subset) int {
	switch subset {
	case core.AllPlain:
		return len(r.plain)
	case core.AllKeyed:
		return len(r.keyed)
	default:
		return 0
	}
}

// Names returns the registered names of the subset's collection, sorted.
func (r *Registry) Names(subset core.Subset) []string {
	var names []string
	switch subset {
	case core.AllPlain:
		for i := range r.plain {
			names = append(names, r.plain[i].Name())
		}
	case core.AllKeyed:
		for i := range r.keyed {
			names = append(names, r.keyed[i].Name())
		}
	}
	sort.Strings(names)
	return names
}

// Render returns every storage of the subset as name to rendered value.
func (r *Registry) Render(subset core.Subset, format core.Format) (map[string]any, error) {
	switch subset {
	case core.AllPlain:
		out := make(map[string]any, len(r.plain))
		for i := range r.plain {
			v, err := r.plain[i].Contents.Render(format)
			if err != nil {
				return nil, fmt.Errorf("registry: render %q: %w", r.plain[i].Name(), err)
			}
			out[r.plain[i].Name()] = v
		}
		return out, nil
	case core.AllKeyed:
		out := make(map[string]any, len(r.keyed))
		for i := range r.keyed {
			v, err := r.keyed[i].Contents.Render(format)
			if err != nil {
				return nil, fmt.Errorf("registry: render %q: %w", r.keyed[i].Name(), err)
			}
			out[r.keyed[i].Name()] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("registry: unknown subset %d", subset)
	}
}

// RenderDirty returns only the storages of the subset recorded into since the
// previous RenderDirty call, then clears their dirty bits. A render error
// leaves all bits set so the failed delta can be retried.
func (r *Registry) RenderDirty(subset core.Subset, format core.Format) (map[string]any, error) {
	var dirty *roaring.Bitmap
	switch subset {
	case core.AllPlain:
		dirty = r.dirtyPlain
	case core.AllKeyed:
		dirty = r.dirtyKeyed
	default:
		return nil, fmt.Errorf("registry: unknown subset %d", subset)
	}

	out := make(map[string]any, dirty.GetCardinality())
	it := dirty.Iterator()
	for it.HasNext() {
		k := Key(it.Next())
		var (
			name string
			v    any
			err  error
		)
		switch subset {
		case core.AllPlain:
			name = r.plain[k].Name()
			v, err = r.plain[k].Contents.Render(format)
		case core.AllKeyed:
			name = r.keyed[k].Name()
			v, err = r.keyed[k].Contents.Render(format)
		}
		if err != nil {
			return nil, fmt.Errorf("registry: render %q: %w", name, err)
		}
		out[name] = v
	}
	dirty.Clear()
	return out, nil
}

// States returns an opaque per-name encoding of the subset's storage
// contents, suitable for session persistence.
func (r *Registry) States(subset core.Subset) (map[string][]byte, error) {
	out := make(map[string][]byte, r.Len(subset))
	switch subset {
	case core.AllPlain:
		for i := range r.plain {
			b, err := r.plain[i].Contents.State()
			if err != nil {
				return nil, fmt.Errorf("registry: state of %q: %w", r.plain[i].Name(), err)
			}
			out[r.plain[i].Name()] = b
		}
	case core.AllKeyed:
		for i := range r.keyed {
			b, err := r.keyed[i].Contents.State()
			if err != nil {
				return nil, fmt.Errorf("registry: state of %q: %w", r.keyed[i].Name(), err)
			}
			out[r.keyed[i].Name()] = b
		}
	default:
		return nil, fmt.Errorf("registry: unknown subset %d", subset)
	}
	return out, nil
}

// RestoreStates applies persisted states to the storages registered under the
// same names and marks them dirty. States for names that are not registered
// are skipped; the count of applied states is returned. Histogram definitions
// change between releases, so a leftover state with no matching registration
// is expected, not an error.
func (r *Registry) RestoreStates(subset core.Subset, states map[string][]byte) (int, error) {
	applied := 0
	switch subset {
	case core.AllPlain:
		for i := range r.plain {
			state, ok := states[r.plain[i].Name()]
			if !ok {
				continue
			}
			if err := r.plain[i].Contents.RestoreState(state); err != nil {
				return applied, fmt.Errorf("registry: restore %q: %w", r.plain[i].Name(), err)
			}
			r.dirtyPlain.Add(uint32(i))
			applied++
		}
	case core.AllKeyed:
		for i := range r.keyed {
			state, ok := states[r.keyed[i].Name()]
			if !ok {
				continue
			}
			if err := r.keyed[i].Contents.RestoreState(state); err != nil {
				return applied, fmt.Errorf("registry: restore %q: %w", r.keyed[i].Name(), err)
			}
			r.dirtyKeyed.Add(uint32(i))
			applied++
		}
	default:
		return 0, fmt.Errorf("registry: unknown subset %d", subset)
	}
	return applied, nil
}
