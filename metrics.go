package histogo

import (
	"sync/atomic"
	"time"
)

// Collector receives operational metrics from the service. Implementations
// must be safe for concurrent use and cheap: RecordSample and RecordDrop sit
// on the recording path. examples/observability shows a Prometheus-backed
// implementation.
type Collector interface {
	// RecordSample is called for each sample accepted into the op buffer.
	RecordSample()

	// RecordDrop is called for each sample dropped because the op buffer
	// was full.
	RecordDrop()

	// RecordPayload is called after each payload render with the marshaled
	// byte count and the time the render took.
	RecordPayload(size int, duration time.Duration, err error)

	// RecordSnapshotSave is called after each state save.
	RecordSnapshotSave(duration time.Duration, err error)

	// RecordSnapshotRestore is called after each state restore. applied is
	// how many stored states matched a registered histogram.
	RecordSnapshotRestore(applied int, duration time.Duration, err error)
}

// NoopCollector ignores all metrics.
type NoopCollector struct{}

func (NoopCollector) RecordSample()                                   {}
func (NoopCollector) RecordDrop()                                     {}
func (NoopCollector) RecordPayload(int, time.Duration, error)         {}
func (NoopCollector) RecordSnapshotSave(time.Duration, error)         {}
func (NoopCollector) RecordSnapshotRestore(int, time.Duration, error) {}

// Stats is a point-in-time view of a BasicCollector.
type Stats struct {
	SampleCount     int64
	DropCount       int64
	PayloadCount    int64
	PayloadErrors   int64
	PayloadBytes    int64
	PayloadAvgNanos int64
	SaveCount       int64
	SaveErrors      int64
	RestoreCount    int64
	RestoreErrors   int64
	RestoredStates  int64
}

// BasicCollector counts events in memory. The zero value is ready to use;
// read it out with Snapshot.
type BasicCollector struct {
	samples       atomic.Int64
	drops         atomic.Int64
	payloads      atomic.Int64
	payloadErrs   atomic.Int64
	payloadBytes  atomic.Int64
	payloadNanos  atomic.Int64
	saves         atomic.Int64
	saveErrs      atomic.Int64
	restores      atomic.Int64
	restoreErrs   atomic.Int64
	statesApplied atomic.Int64
}

func (b *BasicCollector) RecordSample() { b.samples.Add(1) }

func (b *BasicCollector) RecordDrop() { b.drops.Add(1) }

func (b *BasicCollector) RecordPayload(size int, duration time.Duration, err error) {
	b.payloads.Add(1)
	b.payloadNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.payloadErrs.Add(1)
		return
	}
	b.payloadBytes.Add(int64(size))
}

func (b *BasicCollector) RecordSnapshotSave(_ time.Duration, err error) {
	b.saves.Add(1)
	if err != nil {
		b.saveErrs.Add(1)
	}
}

func (b *BasicCollector) RecordSnapshotRestore(applied int, _ time.Duration, err error) {
	b.restores.Add(1)
	b.statesApplied.Add(int64(applied))
	if err != nil {
		b.restoreErrs.Add(1)
	}
}

// Snapshot returns the counters as they stand. Counters keep moving while it
// runs, so fields are individually consistent, not a single atomic cut.
func (b *BasicCollector) Snapshot() Stats {
	st := Stats{
		SampleCount:    b.samples.Load(),
		DropCount:      b.drops.Load(),
		PayloadCount:   b.payloads.Load(),
		PayloadErrors:  b.payloadErrs.Load(),
		PayloadBytes:   b.payloadBytes.Load(),
		SaveCount:      b.saves.Load(),
		SaveErrors:     b.saveErrs.Load(),
		RestoreCount:   b.restores.Load(),
		RestoreErrors:  b.restoreErrs.Load(),
		RestoredStates: b.statesApplied.Load(),
	}
	if st.PayloadCount > 0 {
		st.PayloadAvgNanos = b.payloadNanos.Load() / st.PayloadCount
	}
	return st
}
