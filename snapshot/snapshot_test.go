package snapshot

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/histogo/codec"
	"github.com/hupe1980/histogo/compress"
	"github.com/hupe1980/histogo/internal/fs"
)

func sampleState() *State {
	return &State{
		Plain: map[string][]byte{
			"STARTUP_MS": {0, 0, 0, 3, 0, 0, 0, 17, 0, 0, 0, 42},
			"CRASH_SEEN": {1},
		},
		Keyed: map[string][]byte{
			"ERRORS_BY_SITE": []byte(`{"example.com":12}`),
		},
		Info: Info{
			SessionID: "8a2b1a52-7e61-4ed9-9531-7d2a6f2b7c10",
			CreatedAt: 1750000000,
			Sequence:  7,
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, comp := range []compress.Type{compress.None, compress.LZ4, compress.ZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			st := sampleState()

			var buf bytes.Buffer
			require.NoError(t, SaveToWriter(&buf, st, codec.Default, comp))

			loaded, err := LoadFromReader(&buf)
			require.NoError(t, err)

			assert.Equal(t, st.Plain, loaded.Plain)
			assert.Equal(t, st.Keyed, loaded.Keyed)
			assert.Equal(t, st.Info, loaded.Info)
		})
	}
}

func TestSnapshotRoundTrip_Codecs(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			st := sampleState()

			var buf bytes.Buffer
			require.NoError(t, SaveToWriter(&buf, st, c, compress.ZSTD))

			// The codec is recorded in the header, so loading needs no hint.
			loaded, err := LoadFromReader(&buf)
			require.NoError(t, err)
			assert.Equal(t, st.Plain, loaded.Plain)
			assert.Equal(t, st.Info, loaded.Info)
		})
	}
}

func TestSnapshotRoundTrip_EmptyState(t *testing.T) {
	st := &State{Info: Info{SessionID: "s", CreatedAt: 1, Sequence: 0}}

	var buf bytes.Buffer
	require.NoError(t, SaveToWriter(&buf, st, nil, compress.None))

	loaded, err := LoadFromReader(&buf)
	require.NoError(t, err)
	assert.Empty(t, loaded.Plain)
	assert.Empty(t, loaded.Keyed)
	assert.Equal(t, st.Info, loaded.Info)
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.snap")
	st := sampleState()

	require.NoError(t, SaveToFile(nil, path, st, codec.Default, compress.ZSTD))

	loaded, err := LoadFromFile(nil, path)
	require.NoError(t, err)
	assert.Equal(t, st.Plain, loaded.Plain)
	assert.Equal(t, st.Keyed, loaded.Keyed)
	assert.Equal(t, st.Info, loaded.Info)

	// No temp file left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveToFile_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.snap")

	require.NoError(t, SaveToFile(nil, path, sampleState(), codec.Default, compress.None))

	ffs := fs.NewFaultyFS(nil)
	ffs.SetLimit(10)

	err := SaveToFile(ffs, path, sampleState(), codec.Default, compress.None)
	require.ErrorIs(t, err, fs.ErrInjected)

	// The previous snapshot is untouched.
	loaded, err := LoadFromFile(nil, path)
	require.NoError(t, err)
	assert.Equal(t, sampleState().Plain, loaded.Plain)
}

func TestSaveToWriter_Validation(t *testing.T) {
	var buf bytes.Buffer

	require.Error(t, SaveToWriter(nil, sampleState(), nil, compress.None))
	require.Error(t, SaveToWriter(&buf, nil, nil, compress.None))
	require.Error(t, SaveToWriter(&buf, sampleState(), nil, compress.Type(42)))
}

// saveSample returns a container built with codec.JSON, so the codec name
// "json" occupies bytes [16:20] and the payloads start at byte 68.
func saveSample(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, SaveToWriter(&buf, sampleState(), codec.JSON{}, compress.ZSTD))
	return buf.Bytes()
}

func TestLoadFromReader_HeaderErrors(t *testing.T) {
	corrupt := func(mutate func(data []byte)) error {
		data := saveSample(t)
		mutate(data)
		_, err := LoadFromReader(bytes.NewReader(data))
		return err
	}

	t.Run("bad magic", func(t *testing.T) {
		err := corrupt(func(data []byte) { data[0] = 'X' })
		require.ErrorContains(t, err, "bad magic")
	})

	t.Run("bad version", func(t *testing.T) {
		err := corrupt(func(data []byte) { data[4] = 99 })
		require.ErrorContains(t, err, "version")
	})

	t.Run("bad compression", func(t *testing.T) {
		err := corrupt(func(data []byte) { data[5] = 77 })
		require.ErrorContains(t, err, "compression")
	})

	t.Run("unknown codec", func(t *testing.T) {
		err := corrupt(func(data []byte) { data[16] = 'x' })
		require.ErrorContains(t, err, "codec")
	})

	t.Run("no sections", func(t *testing.T) {
		err := corrupt(func(data []byte) { data[7] = 0 })
		require.ErrorContains(t, err, "no sections")
	})
}

func TestLoadFromReader_CorruptedSection(t *testing.T) {
	data := saveSample(t)
	data[68] ^= 0xff

	_, err := LoadFromReader(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, IsChecksumMismatch(err), "corruption must surface as a checksum mismatch, got: %v", err)
}

func TestLoadFromReader_Truncated(t *testing.T) {
	data := saveSample(t)

	for _, n := range []int{len(data) / 2, 30, 10, 0} {
		_, err := LoadFromReader(bytes.NewReader(data[:n]))
		require.Error(t, err, "prefix of %d bytes must not load", n)
	}
}

func TestLoadFromReader_TrailingData(t *testing.T) {
	data := append(saveSample(t), 0x00)

	_, err := LoadFromReader(bytes.NewReader(data))
	require.ErrorContains(t, err, "trailing data")
}

// buildContainer assembles a container by hand: a None-compressed header with
// no codec name, followed by one toc entry and payload per section.
func buildContainer(kinds []uint8, payloads [][]byte) []byte {
	var b bytes.Buffer

	var hdr [headerLen]byte
	copy(hdr[0:4], magic[:])
	hdr[4] = formatVersion
	hdr[5] = byte(compress.None)
	hdr[7] = byte(len(kinds))
	b.Write(hdr[:])

	for i, kind := range kinds {
		var e [tocEntryLen]byte
		e[0] = kind
		binary.LittleEndian.PutUint32(e[4:8], ComputeChecksum(payloads[i]))
		binary.LittleEndian.PutUint64(e[8:16], uint64(len(payloads[i])))
		b.Write(e[:])
	}
	for _, p := range payloads {
		b.Write(p)
	}
	return b.Bytes()
}

func TestLoadFromReader_DuplicateSection(t *testing.T) {
	data := buildContainer(
		[]uint8{kindPlain, kindPlain},
		[][]byte{codec.MustMarshal(nil, map[string][]byte{}), codec.MustMarshal(nil, map[string][]byte{})},
	)

	_, err := LoadFromReader(bytes.NewReader(data))
	require.ErrorContains(t, err, "duplicate")
}

func TestLoadFromReader_MissingSection(t *testing.T) {
	data := buildContainer(
		[]uint8{kindPlain},
		[][]byte{codec.MustMarshal(nil, map[string][]byte{})},
	)

	_, err := LoadFromReader(bytes.NewReader(data))
	require.ErrorContains(t, err, "missing section")
}

func TestLoadFromReader_SkipsUnknownSections(t *testing.T) {
	st := sampleState()
	data := buildContainer(
		[]uint8{kindPlain, kindKeyed, kindInfo, 9},
		[][]byte{
			codec.MustMarshal(nil, st.Plain),
			codec.MustMarshal(nil, st.Keyed),
			codec.MustMarshal(nil, st.Info),
			{0xde, 0xad, 0xbe, 0xef},
		},
	)

	loaded, err := LoadFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, st.Plain, loaded.Plain)
	assert.Equal(t, st.Keyed, loaded.Keyed)
	assert.Equal(t, st.Info, loaded.Info)
}

// FuzzSnapshotLoad feeds corrupted and malformed containers to the loader,
// which must fail cleanly instead of panicking.
func FuzzSnapshotLoad(f *testing.F) {
	var valid bytes.Buffer
	_ = SaveToWriter(&valid, &State{
		Plain: map[string][]byte{"A": {1, 2, 3}},
		Keyed: map[string][]byte{"B": {4}},
		Info:  Info{SessionID: "s", CreatedAt: 1, Sequence: 2},
	}, codec.Default, compress.LZ4)
	f.Add(valid.Bytes())

	f.Add([]byte{})
	f.Add([]byte("HSNP"))
	f.Add(bytes.Repeat([]byte{0}, 1024))
	f.Add(bytes.Repeat([]byte{0xff}, 512))
	f.Add([]byte{'H', 'S', 'N', 'P', 0x01, 0x00, 0x00, 0x03})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1<<20 { // 1MB
			t.Skip()
		}

		_, _ = LoadFromReader(bytes.NewReader(data))
	})
}
