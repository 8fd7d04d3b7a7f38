package histogo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/histogo/core"
	"github.com/hupe1980/histogo/registry"
)

// The concrete storage bodies behind the histogram handles. They implement
// registry.PlainStorage and are mutated only by the service worker, so none
// of them lock.
//
// State encodings are little-endian and fixed-width per histogram shape;
// RestoreState validates lengths so a state saved under a changed definition
// is rejected instead of silently misread.

func saturatingAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}

// flagStorage remembers whether an event happened at least once.
type flagStorage struct {
	set bool
}

func newFlagStorage() *flagStorage { return &flagStorage{} }

func (s *flagStorage) Store(value uint32) {
	if value != 0 {
		s.set = true
	}
}

func (s *flagStorage) Render(f core.Format) (any, error) {
	if f != core.SimpleJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	return s.set, nil
}

func (s *flagStorage) State() ([]byte, error) {
	b := []byte{0}
	if s.set {
		b[0] = 1
	}
	return b, nil
}

func (s *flagStorage) RestoreState(data []byte) error {
	if len(data) != 1 {
		return fmt.Errorf("%w: flag state is %d bytes, want 1", ErrBadState, len(data))
	}
	s.set = data[0] != 0
	return nil
}

// countStorage accumulates a monotonic counter, saturating at the uint32
// ceiling instead of wrapping.
type countStorage struct {
	count uint32
}

func newCountStorage() *countStorage { return &countStorage{} }

func (s *countStorage) Store(value uint32) {
	s.count = saturatingAdd(s.count, value)
}

func (s *countStorage) Render(f core.Format) (any, error) {
	if f != core.SimpleJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	return s.count, nil
}

func (s *countStorage) State() ([]byte, error) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, s.count)
	return b, nil
}

func (s *countStorage) RestoreState(data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("%w: count state is %d bytes, want 4", ErrBadState, len(data))
	}
	s.count = binary.LittleEndian.Uint32(data)
	return nil
}

// enumStorage keeps one counter per variant of an enumerated kind. Samples
// beyond the declared variant range fold into the last bucket rather than
// being lost, so a newer producer cannot crash an older definition.
type enumStorage struct {
	counts []uint32
}

func newEnumStorage(variants int) *enumStorage {
	return &enumStorage{counts: core.Filled[uint32](variants, 0)}
}

func (s *enumStorage) Store(value uint32) {
	i := int(value)
	if i >= len(s.counts) {
		i = len(s.counts) - 1
	}
	s.counts[i] = saturatingAdd(s.counts[i], 1)
}

func (s *enumStorage) Render(f core.Format) (any, error) {
	if f != core.SimpleJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	out := make([]uint32, len(s.counts))
	copy(out, s.counts)
	return out, nil
}

func (s *enumStorage) State() ([]byte, error) {
	b := make([]byte, 4*len(s.counts))
	for i, c := range s.counts {
		binary.LittleEndian.PutUint32(b[4*i:], c)
	}
	return b, nil
}

func (s *enumStorage) RestoreState(data []byte) error {
	if len(data) != 4*len(s.counts) {
		return fmt.Errorf("%w: enum state is %d bytes, want %d", ErrBadState, len(data), 4*len(s.counts))
	}
	for i := range s.counts {
		s.counts[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return nil
}

// linearStorage counts samples into the buckets of a core.LinearBuckets
// layout.
type linearStorage struct {
	layout core.LinearBuckets
	counts []uint32
}

func newLinearStorage(layout core.LinearBuckets) *linearStorage {
	return &linearStorage{
		layout: layout,
		counts: core.Filled[uint32](layout.Buckets(), 0),
	}
}

func (s *linearStorage) Store(value uint32) {
	i := s.layout.Bucket(value)
	s.counts[i] = saturatingAdd(s.counts[i], 1)
}

func (s *linearStorage) Render(f core.Format) (any, error) {
	if f != core.SimpleJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	out := make([]uint32, len(s.counts))
	copy(out, s.counts)
	return out, nil
}

func (s *linearStorage) State() ([]byte, error) {
	b := make([]byte, 4*len(s.counts))
	for i, c := range s.counts {
		binary.LittleEndian.PutUint32(b[4*i:], c)
	}
	return b, nil
}

func (s *linearStorage) RestoreState(data []byte) error {
	if len(data) != 4*len(s.counts) {
		return fmt.Errorf("%w: linear state is %d bytes, want %d", ErrBadState, len(data), 4*len(s.counts))
	}
	for i := range s.counts {
		s.counts[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return nil
}

var (
	_ registry.PlainStorage = (*flagStorage)(nil)
	_ registry.PlainStorage = (*countStorage)(nil)
	_ registry.PlainStorage = (*enumStorage)(nil)
	_ registry.PlainStorage = (*linearStorage)(nil)
)
