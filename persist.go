package histogo

import (
	"context"
	"time"

	"github.com/hupe1980/histogo/core"
	"github.com/hupe1980/histogo/snapshot"
)

// SaveState writes the current contents of every histogram to a snapshot
// file at path, atomically. The state is cut on the worker, so it reflects
// every sample accepted before the call.
func (s *Service) SaveState(ctx context.Context, path string) error {
	start := time.Now()

	st := &snapshot.State{
		Info: snapshot.Info{
			SessionID: s.sessionID,
			CreatedAt: time.Now().Unix(),
			Sequence:  s.payloads.Load(),
		},
	}

	var serr error
	err := s.exec(ctx, func() {
		st.Plain, serr = s.reg.States(core.AllPlain)
		if serr != nil {
			return
		}
		st.Keyed, serr = s.reg.States(core.AllKeyed)
	})
	if err == nil {
		err = serr
	}
	if err == nil {
		err = snapshot.SaveToFile(nil, path, st, s.opts.codec, s.opts.compression)
	}

	s.opts.collector.RecordSnapshotSave(time.Since(start), err)
	s.opts.logger.LogSnapshotSave(ctx, path, err)
	return err
}

// RestoreState loads a snapshot file and applies its states to the
// histograms registered under the same names, replacing their contents.
// States for names with no registered histogram are skipped; definitions
// change between releases and leftover states are expected. The restored
// histograms are marked dirty so the next delta payload ships them.
//
// Register every histogram before calling RestoreState.
func (s *Service) RestoreState(ctx context.Context, path string) error {
	start := time.Now()

	st, err := snapshot.LoadFromFile(nil, path)
	if err != nil {
		s.opts.collector.RecordSnapshotRestore(0, time.Since(start), err)
		s.opts.logger.LogSnapshotRestore(ctx, path, 0, err)
		return err
	}

	var (
		applied int
		rerr    error
	)
	err = s.exec(ctx, func() {
		var n int
		n, rerr = s.reg.RestoreStates(core.AllPlain, st.Plain)
		applied += n
		if rerr != nil {
			return
		}
		n, rerr = s.reg.RestoreStates(core.AllKeyed, st.Keyed)
		applied += n
	})
	if err == nil {
		err = rerr
	}

	s.opts.collector.RecordSnapshotRestore(applied, time.Since(start), err)
	s.opts.logger.LogSnapshotRestore(ctx, path, applied, err)
	return err
}
