// Package panics provides a panic-safe goroutine launcher for the
// staking loop's worker: a recovered panic is logged at critical level
// with both the spawn-site and recovery-site stack traces, then the
// process exits rather than leaving the worker silently dead.
package panics

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/btcsuite/btclog"
)

// HandlePanic recovers a panic, logs it, and exits the process. Call
// it via defer at the top of any goroutine that must not die silently.
func HandlePanic(log btclog.Logger, goroutineStackTrace []byte) {
	err := recover()
	if err == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		log.Criticalf("Fatal error: %+v", err)
		if goroutineStackTrace != nil {
			log.Criticalf("Goroutine stack trace: %s", goroutineStackTrace)
		}
		log.Criticalf("Stack trace: %s", debug.Stack())
		close(done)
	}()

	const panicHandlerTimeout = 5 * time.Second
	select {
	case <-time.After(panicHandlerTimeout):
		fmt.Fprintln(os.Stderr, "Couldn't handle a fatal error. Exiting...")
	case <-done:
	}
	os.Exit(1)
}

// GoroutineWrapperFunc returns a launcher that runs f in a new
// goroutine with HandlePanic deferred, capturing the spawn-site stack
// trace so a later panic can still report where the goroutine started.
func GoroutineWrapperFunc(log btclog.Logger) func(func()) {
	return func(f func()) {
		stackTrace := debug.Stack()
		go func() {
			defer HandlePanic(log, stackTrace)
			f()
		}()
	}
}
