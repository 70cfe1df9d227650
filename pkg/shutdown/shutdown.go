package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

// WithSignals derives a context that cancels on SIGINT/SIGTERM. A second
// signal kills the process immediately via the default handler, so a hung
// graceful shutdown can still be interrupted.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
