package histogo

// Close stops the worker after draining every op accepted before the call.
// Samples recorded after Close are dropped silently. Close is idempotent; a
// concurrent second call waits for the first to finish.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	if !s.closed.CompareAndSwap(false, true) {
		<-s.done
		return nil
	}
	s.ops <- op{kind: opStop}
	<-s.done
	return nil
}
