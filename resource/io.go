package resource

import (
	"context"
	"io"
)

// RateLimitedWriter passes every write through a Controller's IO budget
// before it reaches the wrapped writer. The context given at construction
// bounds how long a write may wait for budget.
type RateLimitedWriter struct {
	ctx  context.Context
	ctrl *Controller
	dst  io.Writer
}

// NewRateLimitedWriter wraps dst.
func NewRateLimitedWriter(ctx context.Context, ctrl *Controller, dst io.Writer) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, ctrl: ctrl, dst: dst}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.ctrl.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.dst.Write(p)
}
