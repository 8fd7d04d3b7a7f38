package histogo

import (
	"log/slog"

	"github.com/hupe1980/histogo/codec"
	"github.com/hupe1980/histogo/compress"
)

// DefaultBufferSize is the capacity of the service op channel when
// WithBufferSize is not given. Samples arriving while the buffer is full are
// dropped, so size it for the burstiest recording path.
const DefaultBufferSize = 1024

type options struct {
	codec       codec.Codec
	logger      *Logger
	collector   Collector
	bufferSize  int
	compression compress.Type
}

// Option configures Service construction.
type Option func(*options)

// WithCodec selects the codec that marshals payloads and snapshot sections.
// A nil codec falls back to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithBufferSize configures the capacity of the op channel between the
// recording handles and the service worker. Values below one fall back to
// DefaultBufferSize.
func WithBufferSize(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// WithCompression configures the block compression applied to snapshot
// sections. The default is compress.ZSTD; compress.None disables it.
func WithCompression(t compress.Type) Option {
	return func(o *options) {
		o.compression = t
	}
}

// WithCollector configures a metrics collector for monitoring the service.
// Pass nil to disable collection.
//
// Example with BasicCollector:
//
//	metrics := &histogo.BasicCollector{}
//	svc := histogo.New(histogo.WithCollector(metrics))
//	// ... record, ship payloads ...
//	stats := metrics.Snapshot()
//	fmt.Printf("Samples: %d, Dropped: %d\n", stats.SampleCount, stats.DropCount)
func WithCollector(c Collector) Option {
	return func(o *options) {
		o.collector = c
	}
}

// WithLogger routes service events through logger; nil keeps the service
// silent.
//
//	logger := histogo.NewJSONLogger(slog.LevelInfo)
//	svc := histogo.New(histogo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel is shorthand for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func newOptions(opts []Option) options {
	o := options{
		codec:       codec.Default,
		collector:   NoopCollector{},
		logger:      NoopLogger(),
		bufferSize:  DefaultBufferSize,
		compression: compress.ZSTD,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.collector == nil {
		o.collector = NoopCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.bufferSize < 1 {
		o.bufferSize = DefaultBufferSize
	}
	return o
}
