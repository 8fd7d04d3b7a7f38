package histogo

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/histogo/core"
	"github.com/hupe1980/histogo/registry"
)

type opKind uint8

const (
	opRecordPlain opKind = iota
	opRecordKeyed
	opExec
	opStop
)

// op is one unit of work for the service worker. Record ops carry the
// sample inline; exec ops carry a closure the worker runs with exclusive
// access to the registry.
type op struct {
	kind  opKind
	key   registry.Key
	skey  string
	value uint32
	fn    func()
}

// Service collects product telemetry into named histograms.
//
// All storage mutation happens on a single worker goroutine fed by a
// buffered op channel, so histogram handles are cheap to copy and safe to
// record from any goroutine without locks. Recording never blocks: when the
// buffer is full the sample is dropped and counted instead.
//
// Histograms are created on the service (NewFlag, NewCount, NewEnum,
// NewLinear and their keyed variants) and identified by globally unique
// names. Payload and PayloadDelta render the collected values through the
// worker, so a payload is always a consistent cut across all histograms.
type Service struct {
	opts options

	reg  *registry.Registry
	ops  chan op
	done chan struct{}

	sessionID string

	active   atomic.Bool
	closed   atomic.Bool
	dropped  atomic.Uint64
	payloads atomic.Uint64
}

// New creates a Service and starts its worker. The service records samples
// immediately; use SetActive(false) to construct it muted.
func New(optFns ...Option) *Service {
	opts := newOptions(optFns)

	s := &Service{
		opts:      opts,
		reg:       registry.New(),
		ops:       make(chan op, opts.bufferSize),
		done:      make(chan struct{}),
		sessionID: uuid.NewString(),
	}
	s.opts.logger = s.opts.logger.WithSession(s.sessionID)
	s.active.Store(true)

	go s.run()

	return s
}

// run applies ops in arrival order until it sees opStop. The channel is
// never closed; opStop is the only exit so every op enqueued before Close
// is applied first.
func (s *Service) run() {
	for o := range s.ops {
		switch o.kind {
		case opRecordPlain:
			s.reg.RecordPlain(o.key, o.value)
		case opRecordKeyed:
			s.reg.RecordKeyed(o.key, o.skey, o.value)
		case opExec:
			o.fn()
		case opStop:
			close(s.done)
			return
		}
	}
}

// exec runs fn on the worker and waits for it to finish. It returns
// ErrClosed when the service stops before fn could run, and the context
// error when ctx expires first (fn may still run later in that case).
func (s *Service) exec(ctx context.Context, fn func()) error {
	if s.closed.Load() {
		return ErrClosed
	}

	ran := make(chan struct{})
	select {
	case s.ops <- op{kind: opExec, fn: func() { fn(); close(ran) }}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ran:
		return nil
	case <-s.done:
		// The worker drains queued ops before stopping, so fn may have
		// run concurrently with the shutdown.
		select {
		case <-ran:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recordPlain sends one plain sample to the worker without blocking.
func (s *Service) recordPlain(k registry.Key, value uint32) {
	if !s.active.Load() || s.closed.Load() {
		return
	}
	select {
	case s.ops <- op{kind: opRecordPlain, key: k, value: value}:
		s.opts.collector.RecordSample()
	default:
		s.opts.collector.RecordDrop()
		s.opts.logger.LogDrop(context.Background(), s.dropped.Add(1))
	}
}

// recordKeyed sends one keyed sample to the worker without blocking.
func (s *Service) recordKeyed(k registry.Key, key string, value uint32) {
	if !s.active.Load() || s.closed.Load() {
		return
	}
	select {
	case s.ops <- op{kind: opRecordKeyed, key: k, skey: key, value: value}:
		s.opts.collector.RecordSample()
	default:
		s.opts.collector.RecordDrop()
		s.opts.logger.LogDrop(context.Background(), s.dropped.Add(1))
	}
}

// registerPlain claims name on the worker so registration never races with
// recording or rendering.
func (s *Service) registerPlain(name string, st registry.PlainStorage) (registry.Key, error) {
	var (
		key  registry.Key
		rerr error
	)
	if err := s.exec(context.Background(), func() {
		key, rerr = s.reg.RegisterPlain(name, st)
	}); err != nil {
		return 0, err
	}
	return key, rerr
}

func (s *Service) registerKeyed(name string, st registry.KeyedStorage) (registry.Key, error) {
	var (
		key  registry.Key
		rerr error
	)
	if err := s.exec(context.Background(), func() {
		key, rerr = s.reg.RegisterKeyed(name, st)
	}); err != nil {
		return 0, err
	}
	return key, rerr
}

// Payload renders every histogram of the subset and marshals the result
// with the configured codec. The render runs on the worker, so the payload
// reflects every sample accepted before the call and none accepted after.
func (s *Service) Payload(ctx context.Context, subset core.Subset, format core.Format) ([]byte, error) {
	return s.payload(ctx, subset, format, false)
}

// PayloadDelta renders only the histograms recorded into since the previous
// PayloadDelta for the subset. A failed render keeps the dirty marks so the
// delta can be retried without losing samples.
func (s *Service) PayloadDelta(ctx context.Context, subset core.Subset, format core.Format) ([]byte, error) {
	return s.payload(ctx, subset, format, true)
}

func (s *Service) payload(ctx context.Context, subset core.Subset, format core.Format, delta bool) ([]byte, error) {
	start := time.Now()

	var (
		rendered map[string]any
		rerr     error
	)
	err := s.exec(ctx, func() {
		if delta {
			rendered, rerr = s.reg.RenderDirty(subset, format)
		} else {
			rendered, rerr = s.reg.Render(subset, format)
		}
	})
	if err == nil {
		err = rerr
	}
	if err != nil {
		s.opts.collector.RecordPayload(0, time.Since(start), err)
		s.opts.logger.LogPayload(ctx, subset, 0, err)
		return nil, err
	}

	// Storages render into fresh values, so marshaling happens off the
	// worker while recording continues.
	data, err := s.opts.codec.Marshal(rendered)
	s.opts.collector.RecordPayload(len(data), time.Since(start), err)
	s.opts.logger.LogPayload(ctx, subset, len(data), err)
	if err != nil {
		return nil, err
	}
	s.payloads.Add(1)
	return data, nil
}

// Flush blocks until every sample accepted before the call has been applied
// to its storage.
func (s *Service) Flush(ctx context.Context) error {
	return s.exec(ctx, func() {})
}

// SetActive switches recording on or off. While inactive, handles drop
// samples at an atomic load before touching the op channel. Renders,
// snapshots and registration still work.
func (s *Service) SetActive(active bool) {
	if s.active.Swap(active) != active {
		s.opts.logger.Info("recording state changed", "active", active)
	}
}

// Active reports whether the service is currently recording.
func (s *Service) Active() bool {
	return s.active.Load()
}

// Dropped reports how many samples were discarded because the op buffer was
// full.
func (s *Service) Dropped() uint64 {
	return s.dropped.Load()
}

// SessionID returns the identifier minted for this service instance. It is
// stamped into snapshots and upload envelopes so payloads from one session
// can be correlated.
func (s *Service) SessionID() string {
	return s.sessionID
}
