package uploader

import (
	"fmt"

	"github.com/hupe1980/histogo/codec"
	"github.com/hupe1980/histogo/compress"
)

// Envelope is the stored form of one shipped payload. The payload bytes are
// block-compressed; everything else is metadata a backend needs to route and
// decode the object without fetching anything else.
type Envelope struct {
	// ID is unique per upload.
	ID string `json:"id"`

	// SessionID ties the payload to the recording session that produced it.
	SessionID string `json:"session_id"`

	// CreatedAt is the upload time in unix seconds.
	CreatedAt int64 `json:"created_at"`

	// Subset names the histogram collection, "plain" or "keyed".
	Subset string `json:"subset"`

	// Format names the payload encoding, for example "simple-json".
	Format string `json:"format"`

	// Compression names the block compression of Payload.
	Compression string `json:"compression"`

	// Delta marks an incremental payload holding only the histograms
	// recorded into since the previous delta.
	Delta bool `json:"delta,omitempty"`

	// Payload is the compressed rendered payload.
	Payload []byte `json:"payload"`
}

// DecodeEnvelope unmarshals an uploaded object with c.
func DecodeEnvelope(data []byte, c codec.Codec) (*Envelope, error) {
	if c == nil {
		c = codec.Default
	}
	var e Envelope
	if err := c.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("uploader: decode envelope: %w", err)
	}
	return &e, nil
}

// DecodePayload decompresses the payload bytes.
func (e *Envelope) DecodePayload() ([]byte, error) {
	t, ok := compress.TypeFromString(e.Compression)
	if !ok {
		return nil, fmt.Errorf("uploader: unknown compression %q", e.Compression)
	}
	return compress.Decompress(e.Payload, t)
}
