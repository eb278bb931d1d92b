// Package signal turns process interrupts into context cancellation.
package signal

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
)

// interruptSignals are the signals that trigger a clean shutdown.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// InterruptContext returns a context derived from parent that is canceled
// when the process receives an interrupt signal. Signals received after the
// first one are left to the default handler.
func InterruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	interruptChannel := make(chan os.Signal, 1)
	ossignal.Notify(interruptChannel, interruptSignals...)

	spawn("signal.InterruptContext", func() {
		defer ossignal.Stop(interruptChannel)
		select {
		case sig := <-interruptChannel:
			log.Infof("Received signal (%s). Shutting down...", sig)
			cancel()
		case <-ctx.Done():
		}
	})
	return ctx, cancel
}
