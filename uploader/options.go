package uploader

import (
	"time"

	"github.com/hupe1980/histogo"
	"github.com/hupe1980/histogo/codec"
	"github.com/hupe1980/histogo/compress"
	"github.com/hupe1980/histogo/core"
	"github.com/hupe1980/histogo/resource"
)

// DefaultInterval is the shipping cadence when WithInterval is not given.
const DefaultInterval = 5 * time.Minute

type options struct {
	interval    time.Duration
	subsets     []core.Subset
	format      core.Format
	delta       bool
	compression compress.Type
	codec       codec.Codec
	logger      *histogo.Logger
	retention   int
	resources   resource.Config
}

// Option configures Uploader construction.
type Option func(*options)

// WithInterval configures the cadence of the Run loop.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithSubsets configures which histogram collections each cycle ships. Every
// subset becomes its own payload object. The default ships only the plain
// collection.
func WithSubsets(subsets ...core.Subset) Option {
	return func(o *options) {
		if len(subsets) > 0 {
			o.subsets = subsets
		}
	}
}

// WithDelta switches cycles to incremental payloads: each upload carries
// only the histograms recorded into since the previous delta. A delta that
// fails to upload after rendering is lost, so prefer full payloads where
// every sample must reach the backend.
func WithDelta() Option {
	return func(o *options) {
		o.delta = true
	}
}

// WithCompression configures the block compression applied to payloads.
// The default is compress.ZSTD.
func WithCompression(t compress.Type) Option {
	return func(o *options) {
		o.compression = t
	}
}

// WithCodec selects the codec that marshals envelopes. A nil codec falls
// back to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(logger *histogo.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRetention keeps only the newest n payload objects, pruning older ones
// after each successful cycle. Zero keeps everything.
func WithRetention(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.retention = n
		}
	}
}

// WithMaxConcurrent bounds how many upload cycles may run at once. Run
// skips a tick instead of queueing when all slots are busy. The default
// is one.
func WithMaxConcurrent(n int64) Option {
	return func(o *options) {
		o.resources.MaxConcurrent = n
	}
}

// WithBufferLimit caps the total payload bytes held by in-flight uploads.
func WithBufferLimit(bytes int64) Option {
	return func(o *options) {
		o.resources.BufferLimitBytes = bytes
	}
}

// WithRateLimit caps upload throughput in bytes per second.
func WithRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.resources.IOLimitBytesPerSec = bytesPerSec
	}
}

func newOptions(opts []Option) options {
	o := options{
		interval:    DefaultInterval,
		subsets:     []core.Subset{core.AllPlain},
		format:      core.SimpleJSON,
		compression: compress.ZSTD,
		codec:       codec.Default,
		logger:      histogo.NoopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = histogo.NoopLogger()
	}
	return o
}
