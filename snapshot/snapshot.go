// Package snapshot persists histogram session state in a compact binary
// container.
//
// A snapshot captures the opaque per-histogram states of one session plus a
// small info record, so a later session can pick up accumulated data that was
// not shipped yet. The container is self-describing: the header names the
// codec and compression, and a table of contents up front carries the length
// and CRC32C checksum of every section. The sections follow the table back to
// back, so a snapshot is written and read in one sequential pass.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/histogo/codec"
	"github.com/hupe1980/histogo/compress"
	"github.com/hupe1980/histogo/internal/fs"
)

// Container layout, all integers little endian:
//
//	header      16 bytes: magic, version, compression, codec name len, section count
//	codec name  hdr[6] bytes
//	toc         16 bytes per section: kind, checksum, length
//	sections    back to back, in toc order

var magic = [4]byte{'H', 'S', 'N', 'P'}

const (
	formatVersion = 1

	headerLen   = 16
	tocEntryLen = 16

	// A corrupt length field must not size the section allocation.
	maxSectionLen = 1 << 30
)

const (
	kindPlain uint8 = 1
	kindKeyed uint8 = 2
	kindInfo  uint8 = 3
)

// Info describes the session a snapshot was taken from.
type Info struct {
	// SessionID identifies the recording session, usually a UUID.
	SessionID string `json:"session_id"`
	// CreatedAt is the snapshot time in unix seconds.
	CreatedAt int64 `json:"created_at"`
	// Sequence is the number of payloads produced before the snapshot.
	Sequence uint64 `json:"sequence"`
}

// State is the complete persisted form of a session: the opaque storage
// states of both histogram collections, keyed by histogram name.
type State struct {
	Plain map[string][]byte
	Keyed map[string][]byte
	Info  Info
}

type section struct {
	kind uint8
	data []byte
}

type tocEntry struct {
	kind     uint8
	checksum uint32
	length   uint64
}

// SaveToWriter writes the state to w: header, codec name, section table,
// then the encoded sections in table order. Each section is marshaled with c
// and compressed with comp before its checksum is taken.
func SaveToWriter(w io.Writer, st *State, c codec.Codec, comp compress.Type) error {
	if w == nil {
		return errors.New("snapshot: nil writer")
	}
	if st == nil {
		return errors.New("snapshot: nil state")
	}
	if c == nil {
		c = codec.Default
	}
	if !comp.Valid() {
		return fmt.Errorf("snapshot: unknown compression type %d", comp)
	}

	name := c.Name()
	if len(name) > 255 {
		return fmt.Errorf("snapshot: codec name %q too long", name)
	}

	sections := make([]section, 0, 3)
	for _, src := range []struct {
		kind uint8
		val  any
	}{
		{kindPlain, nonNil(st.Plain)},
		{kindKeyed, nonNil(st.Keyed)},
		{kindInfo, st.Info},
	} {
		data, err := encodeSection(c, comp, src.val)
		if err != nil {
			return fmt.Errorf("snapshot: encode section %d: %w", src.kind, err)
		}
		sections = append(sections, section{kind: src.kind, data: data})
	}

	var hdr [headerLen]byte
	copy(hdr[0:4], magic[:])
	hdr[4] = formatVersion
	hdr[5] = byte(comp)
	hdr[6] = byte(len(name))
	hdr[7] = byte(len(sections))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, name); err != nil {
		return err
	}

	for _, s := range sections {
		var e [tocEntryLen]byte
		e[0] = s.kind
		binary.LittleEndian.PutUint32(e[4:8], ComputeChecksum(s.data))
		binary.LittleEndian.PutUint64(e[8:16], uint64(len(s.data)))
		if _, err := w.Write(e[:]); err != nil {
			return err
		}
	}
	for _, s := range sections {
		if _, err := w.Write(s.data); err != nil {
			return err
		}
	}
	return nil
}

func encodeSection(c codec.Codec, comp compress.Type, v any) ([]byte, error) {
	raw, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	return compress.Compress(raw, comp)
}

func nonNil(m map[string][]byte) map[string][]byte {
	if m == nil {
		return map[string][]byte{}
	}
	return m
}

// SaveToFile writes the state to path atomically (temp file plus rename).
func SaveToFile(fsys fs.FileSystem, path string, st *State, c codec.Codec, comp compress.Type) error {
	var buf bytes.Buffer
	if err := SaveToWriter(&buf, st, c, comp); err != nil {
		return err
	}
	return fs.WriteFileAtomic(fsys, path, buf.Bytes(), 0644)
}

// LoadFromReader reads a snapshot from r in one sequential pass. Codec and
// compression are taken from the header, and every section is verified
// against its checksum before it is decoded. Sections of a kind this version
// does not know are skipped.
func LoadFromReader(r io.Reader) (*State, error) {
	if r == nil {
		return nil, errors.New("snapshot: nil reader")
	}

	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("snapshot: read header: %w", err)
	}
	if [4]byte(hdr[0:4]) != magic {
		return nil, errors.New("snapshot: bad magic")
	}
	if hdr[4] != formatVersion {
		return nil, fmt.Errorf("snapshot: unsupported version %d", hdr[4])
	}
	comp := compress.Type(hdr[5])
	if !comp.Valid() {
		return nil, fmt.Errorf("snapshot: unsupported compression type %d", hdr[5])
	}
	count := int(hdr[7])
	if count == 0 {
		return nil, errors.New("snapshot: no sections")
	}

	c := codec.Default
	if nameLen := int(hdr[6]); nameLen > 0 {
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("snapshot: read codec name: %w", err)
		}
		cc, ok := codec.ByName(string(name))
		if !ok {
			return nil, fmt.Errorf("snapshot: unknown codec %q", name)
		}
		c = cc
	}

	entries := make([]tocEntry, count)
	seen := make(map[uint8]bool, count)
	for i := range entries {
		var e [tocEntryLen]byte
		if _, err := io.ReadFull(r, e[:]); err != nil {
			return nil, fmt.Errorf("snapshot: read section table: %w", err)
		}
		kind := e[0]
		if seen[kind] {
			return nil, fmt.Errorf("snapshot: duplicate section %d", kind)
		}
		seen[kind] = true

		length := binary.LittleEndian.Uint64(e[8:16])
		if length > maxSectionLen {
			return nil, fmt.Errorf("snapshot: section %d length %d out of range", kind, length)
		}
		entries[i] = tocEntry{
			kind:     kind,
			checksum: binary.LittleEndian.Uint32(e[4:8]),
			length:   length,
		}
	}
	for _, kind := range []uint8{kindPlain, kindKeyed, kindInfo} {
		if !seen[kind] {
			return nil, fmt.Errorf("snapshot: missing section %d", kind)
		}
	}

	st := &State{
		Plain: make(map[string][]byte),
		Keyed: make(map[string][]byte),
	}
	for _, e := range entries {
		stored := make([]byte, e.length)
		if _, err := io.ReadFull(r, stored); err != nil {
			return nil, fmt.Errorf("snapshot: read section %d: %w", e.kind, err)
		}
		if sum := ComputeChecksum(stored); sum != e.checksum {
			return nil, &ChecksumMismatchError{Expected: e.checksum, Actual: sum}
		}
		raw, err := compress.Decompress(stored, comp)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decompress section %d: %w", e.kind, err)
		}

		switch e.kind {
		case kindPlain:
			err = c.Unmarshal(raw, &st.Plain)
		case kindKeyed:
			err = c.Unmarshal(raw, &st.Keyed)
		case kindInfo:
			err = c.Unmarshal(raw, &st.Info)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot: decode section %d: %w", e.kind, err)
		}
	}

	var tail [1]byte
	switch _, err := io.ReadFull(r, tail[:]); {
	case err == nil:
		return nil, errors.New("snapshot: trailing data after last section")
	case !errors.Is(err, io.EOF):
		return nil, err
	}

	return st, nil
}

// LoadFromFile loads a state from the file at path.
func LoadFromFile(fsys fs.FileSystem, path string) (*State, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return LoadFromReader(bytes.NewReader(data))
}
