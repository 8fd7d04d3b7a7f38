package histogo

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/hupe1980/histogo/core"
	"github.com/hupe1980/histogo/registry"
)

// Keyed storages hold one independent plain storage per dynamic string key.
// Keys appear on first record; there is no way to remove one. All keyed
// states share a single length-prefixed encoding so the persistence container
// never needs to know the histogram shape.

// stateEntry is one key's persisted contents inside a keyed state.
type stateEntry struct {
	key   string
	state []byte
}

// encodeKeyedState serializes entries sorted by key:
// u32 entry count, then per entry u32 key length, key bytes, u32 state
// length, state bytes. All integers little-endian.
func encodeKeyedState(entries []stateEntry) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	size := 4
	for _, e := range entries {
		size += 8 + len(e.key) + len(e.state)
	}
	b := make([]byte, 0, size)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(entries)))
	for _, e := range entries {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(e.key)))
		b = append(b, e.key...)
		b = binary.LittleEndian.AppendUint32(b, uint32(len(e.state)))
		b = append(b, e.state...)
	}
	return b
}

func decodeKeyedState(data []byte) ([]stateEntry, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: keyed state is %d bytes, want at least 4", ErrBadState, len(data))
	}
	count := binary.LittleEndian.Uint32(data)
	data = data[4:]

	// Every entry needs at least its two length prefixes, which bounds a
	// corrupt count before it sizes the allocation below.
	if uint64(count)*8 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: keyed state claims %d entries in %d bytes", ErrBadState, count, len(data))
	}

	entries := make([]stateEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: keyed state truncated in entry %d", ErrBadState, i)
		}
		keyLen := binary.LittleEndian.Uint32(data)
		data = data[4:]
		if uint32(len(data)) < keyLen {
			return nil, fmt.Errorf("%w: keyed state truncated in entry %d", ErrBadState, i)
		}
		key := string(data[:keyLen])
		data = data[keyLen:]

		if len(data) < 4 {
			return nil, fmt.Errorf("%w: keyed state truncated in entry %d", ErrBadState, i)
		}
		stateLen := binary.LittleEndian.Uint32(data)
		data = data[4:]
		if uint32(len(data)) < stateLen {
			return nil, fmt.Errorf("%w: keyed state truncated in entry %d", ErrBadState, i)
		}
		state := make([]byte, stateLen)
		copy(state, data[:stateLen])
		data = data[stateLen:]

		entries = append(entries, stateEntry{key: key, state: state})
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: keyed state has %d trailing bytes", ErrBadState, len(data))
	}
	return entries, nil
}

// keyedFlagStorage remembers, per key, whether the event happened.
type keyedFlagStorage struct {
	inner map[string]*flagStorage
}

func newKeyedFlagStorage() *keyedFlagStorage {
	return &keyedFlagStorage{inner: make(map[string]*flagStorage)}
}

func (s *keyedFlagStorage) Store(key string, value uint32) {
	st, ok := s.inner[key]
	if !ok {
		st = newFlagStorage()
		s.inner[key] = st
	}
	st.Store(value)
}

// Render returns the sorted list of keys whose flag is set. Keys recorded
// with only zero values stay out of the payload.
func (s *keyedFlagStorage) Render(f core.Format) (any, error) {
	if f != core.SimpleJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	keys := make([]string, 0, len(s.inner))
	for k, st := range s.inner {
		if st.set {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *keyedFlagStorage) State() ([]byte, error) {
	return keyedState(s.inner)
}

func (s *keyedFlagStorage) RestoreState(data []byte) error {
	return restoreKeyedState(data, s.inner, newFlagStorage)
}

// keyedCountStorage accumulates one saturating counter per key.
type keyedCountStorage struct {
	inner map[string]*countStorage
}

func newKeyedCountStorage() *keyedCountStorage {
	return &keyedCountStorage{inner: make(map[string]*countStorage)}
}

func (s *keyedCountStorage) Store(key string, value uint32) {
	st, ok := s.inner[key]
	if !ok {
		st = newCountStorage()
		s.inner[key] = st
	}
	st.Store(value)
}

func (s *keyedCountStorage) Render(f core.Format) (any, error) {
	if f != core.SimpleJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	out := make(map[string]uint32, len(s.inner))
	for k, st := range s.inner {
		out[k] = st.count
	}
	return out, nil
}

func (s *keyedCountStorage) State() ([]byte, error) {
	return keyedState(s.inner)
}

func (s *keyedCountStorage) RestoreState(data []byte) error {
	return restoreKeyedState(data, s.inner, newCountStorage)
}

// keyedEnumStorage keeps per-variant counts per key. Every key shares the
// variant count fixed at registration.
type keyedEnumStorage struct {
	variants int
	inner    map[string]*enumStorage
}

func newKeyedEnumStorage(variants int) *keyedEnumStorage {
	return &keyedEnumStorage{
		variants: variants,
		inner:    make(map[string]*enumStorage),
	}
}

func (s *keyedEnumStorage) Store(key string, value uint32) {
	st, ok := s.inner[key]
	if !ok {
		st = newEnumStorage(s.variants)
		s.inner[key] = st
	}
	st.Store(value)
}

func (s *keyedEnumStorage) Render(f core.Format) (any, error) {
	if f != core.SimpleJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	out := make(map[string][]uint32, len(s.inner))
	for k, st := range s.inner {
		counts := make([]uint32, len(st.counts))
		copy(counts, st.counts)
		out[k] = counts
	}
	return out, nil
}

func (s *keyedEnumStorage) State() ([]byte, error) {
	return keyedState(s.inner)
}

func (s *keyedEnumStorage) RestoreState(data []byte) error {
	return restoreKeyedState(data, s.inner, func() *enumStorage {
		return newEnumStorage(s.variants)
	})
}

// keyedLinearStorage counts bucketed samples per key. Every key shares the
// bucket layout fixed at registration.
type keyedLinearStorage struct {
	layout core.LinearBuckets
	inner  map[string]*linearStorage
}

func newKeyedLinearStorage(layout core.LinearBuckets) *keyedLinearStorage {
	return &keyedLinearStorage{
		layout: layout,
		inner:  make(map[string]*linearStorage),
	}
}

func (s *keyedLinearStorage) Store(key string, value uint32) {
	st, ok := s.inner[key]
	if !ok {
		st = newLinearStorage(s.layout)
		s.inner[key] = st
	}
	st.Store(value)
}

func (s *keyedLinearStorage) Render(f core.Format) (any, error) {
	if f != core.SimpleJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	out := make(map[string][]uint32, len(s.inner))
	for k, st := range s.inner {
		counts := make([]uint32, len(st.counts))
		copy(counts, st.counts)
		out[k] = counts
	}
	return out, nil
}

func (s *keyedLinearStorage) State() ([]byte, error) {
	return keyedState(s.inner)
}

func (s *keyedLinearStorage) RestoreState(data []byte) error {
	return restoreKeyedState(data, s.inner, func() *linearStorage {
		return newLinearStorage(s.layout)
	})
}

// keyedState encodes each inner storage's state under its key.
func keyedState[S registry.PlainStorage](inner map[string]S) ([]byte, error) {
	entries := make([]stateEntry, 0, len(inner))
	for k, st := range inner {
		b, err := st.State()
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		entries = append(entries, stateEntry{key: k, state: b})
	}
	return encodeKeyedState(entries), nil
}

// restoreKeyedState decodes entries and applies each state to a fresh inner
// storage, replacing whatever the key held before.
func restoreKeyedState[S registry.PlainStorage](data []byte, inner map[string]S, newInner func() S) error {
	entries, err := decodeKeyedState(data)
	if err != nil {
		return err
	}
	for _, e := range entries {
		st := newInner()
		if err := st.RestoreState(e.state); err != nil {
			return fmt.Errorf("key %q: %w", e.key, err)
		}
		inner[e.key] = st
	}
	return nil
}

var (
	_ registry.KeyedStorage = (*keyedFlagStorage)(nil)
	_ registry.KeyedStorage = (*keyedCountStorage)(nil)
	_ registry.KeyedStorage = (*keyedEnumStorage)(nil)
	_ registry.KeyedStorage = (*keyedLinearStorage)(nil)
)
