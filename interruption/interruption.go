// Package interruption recovers panics and turns termination signals into
// context cancellation for omniversion binaries.
//
// Call `defer interruption.Catch()` at the top of main, or
// `defer interruption.CatchExit(&code)` in a function returning the exit code, and
// `defer interruption.Recover(&err)` in worker functions that return an error:
//
//	func main() {
//		defer interruption.Catch()
//
//		ctx, stop := interruption.WithSignals(context.Background(), os.Interrupt, syscall.SIGTERM)
//		defer stop()
//
//		g, ctx := errgroup.WithContext(ctx)
//		g.Go(func() (err error) {
//			defer interruption.Recover(&err)
//			return work(ctx)
//		})
//	}
//
// In debug mode the stack trace of the panic is included.
package interruption

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/valentin-kaiser/omniversion/apperror"
	"github.com/valentin-kaiser/omniversion/flag"
	"github.com/valentin-kaiser/omniversion/logging"
)

var logger = logging.For("interruption")

// Catch recovers a panic of the calling goroutine and logs it. Without an
// enabled logger the panic is written to stderr. It must be called with defer.
func Catch() {
	if r := recover(); r != nil {
		report(r)
	}
}

// CatchExit is Catch for functions returning a process exit code: after a
// recovered panic *code is set to 1. It must be called with defer.
func CatchExit(code *int) {
	if r := recover(); r != nil {
		report(r)
		*code = 1
	}
}

func report(r interface{}) {
	caller, line := origin()
	msg := fmt.Sprintf("%v code: %v => %v", caller, line, r)
	if flag.Debug {
		msg += "\n" + string(debug.Stack())
	}

	if !logger.Enabled(zerolog.ErrorLevel) {
		fmt.Fprintln(os.Stderr, msg)
		return
	}
	logger.Error().Msg(msg)
}

// Recover converts a panic of the calling goroutine into an error stored in
// err. It must be called with defer.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}

	caller, line := origin()
	e := apperror.NewErrorf(apperror.KindUnknown, "recovered panic: %v", r).
		AddDetail("caller", caller).
		AddDetail("line", line)
	if flag.Debug {
		e = e.AddDetail("stack", string(debug.Stack()))
	}
	logger.Error().Str("caller", caller).Int("line", line).Msgf("recovered panic: %v", r)
	*err = e
}

// WithSignals returns a context that is cancelled when one of signals is
// received or stop is called
func WithSignals(parent context.Context, signals ...os.Signal) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			logger.Info().Stringer("signal", sig).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// origin returns the frame that raised the panic, skipping the runtime and this package
func origin() (string, int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") && !strings.Contains(frame.Function, "/interruption.") {
			return fmt.Sprintf("%s/%s", filepath.Base(filepath.Dir(frame.File)), strings.TrimSuffix(filepath.Base(frame.File), filepath.Ext(frame.File))), frame.Line
		}
		if !more {
			return "unknown", 0
		}
	}
}
