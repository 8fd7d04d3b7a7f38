// Package compress provides block compression for persisted histogram data.
//
// Every block Compress produces carries a 5 byte frame: a marker byte that
// records whether the body is stored raw or compressed, and the decoded
// length. Blocks that do not shrink are framed raw, so a block never grows
// by more than the frame. The algorithm itself is not part of the frame;
// container formats record it in their own headers.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type selects the compression algorithm.
type Type uint8

const (
	// None stores blocks as they are, without a frame.
	None Type = 0
	// LZ4 favors speed over ratio, suited to data that is read back often.
	LZ4 Type = 1
	// ZSTD favors ratio over speed, suited to archived data.
	ZSTD Type = 2
)

var typeNames = map[Type]string{
	None: "none",
	LZ4:  "lz4",
	ZSTD: "zstd",
}

// Valid reports whether t is a known compression type.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// TypeFromString parses the String form of a Type.
func TypeFromString(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return None, false
}

const (
	frameLen = 5

	rawBlock    = 0x00
	packedBlock = 0x01
)

// maxBlockLen bounds the decoded size a frame may claim.
const maxBlockLen = 1 << 30

// A single zstd encoder and decoder are shared; EncodeAll and DecodeAll are
// safe for concurrent use on one instance.
var (
	zstdEncoder = sync.OnceValue(func() *zstd.Encoder {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	})
	zstdDecoder = sync.OnceValue(func() *zstd.Decoder {
		dec, _ := zstd.NewReader(nil)
		return dec
	})
)

// lz4 compression state is reused across blocks.
var lz4Pool = sync.Pool{New: func() any { return new(lz4.Compressor) }}

// Compress encodes data as one framed block. For None the data is returned
// unchanged.
func Compress(data []byte, t Type) ([]byte, error) {
	if t == None {
		return data, nil
	}
	if int64(len(data)) > math.MaxUint32 {
		return nil, errors.New("compress: block too large")
	}

	var packed []byte
	switch t {
	case LZ4:
		packed = packLZ4(data)
	case ZSTD:
		packed = zstdEncoder().EncodeAll(data, nil)
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}

	if len(packed) == 0 || len(packed) >= len(data) {
		return frame(rawBlock, len(data), data), nil
	}
	return frame(packedBlock, len(data), packed), nil
}

func frame(marker byte, decodedLen int, body []byte) []byte {
	out := make([]byte, frameLen+len(body))
	out[0] = marker
	binary.LittleEndian.PutUint32(out[1:frameLen], uint32(decodedLen))
	copy(out[frameLen:], body)
	return out
}

// packLZ4 returns nil when the input is incompressible.
func packLZ4(data []byte) []byte {
	c := lz4Pool.Get().(*lz4.Compressor)
	defer lz4Pool.Put(c)

	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := c.CompressBlock(data, buf)
	if err != nil || n == 0 {
		return nil
	}
	return buf[:n]
}

// Decompress decodes one block produced by Compress with the same type.
func Decompress(data []byte, t Type) ([]byte, error) {
	if t == None {
		return data, nil
	}
	if !t.Valid() {
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}
	if len(data) < frameLen {
		return nil, errors.New("compress: short block")
	}

	marker := data[0]
	decodedLen := int64(binary.LittleEndian.Uint32(data[1:frameLen]))
	if decodedLen > maxBlockLen {
		return nil, fmt.Errorf("compress: decoded length %d out of range", decodedLen)
	}
	body := data[frameLen:]

	switch marker {
	case rawBlock:
		if int64(len(body)) != decodedLen {
			return nil, errors.New("compress: raw block length mismatch")
		}
		return body, nil
	case packedBlock:
	default:
		return nil, fmt.Errorf("compress: unknown block marker 0x%02x", marker)
	}

	out := make([]byte, decodedLen)
	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		if int64(n) != decodedLen {
			return nil, errors.New("compress: decoded length mismatch")
		}
		return out, nil
	case ZSTD:
		decoded, err := zstdDecoder().DecodeAll(body, out[:0])
		if err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		if int64(len(decoded)) != decodedLen {
			return nil, errors.New("compress: decoded length mismatch")
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}
}
