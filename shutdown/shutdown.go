// Package shutdown runs cleanup hooks once when the process is asked to
// stop, whether by a signal or programmatically.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/amp-labs/stateful/logger"
)

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []func()       //nolint:gochecknoglobals
	channel chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers a function to be called before the shutdown
// context is canceled. The context is still alive while hooks run, so they
// can use it to release resources.
func BeforeShutdown(h func()) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown triggers the shutdown process. Usually the shutdown is kicked off
// by a signal, but this function can be used to trigger it
// programmatically. It does nothing if no handler is installed.
func Shutdown() {
	mut.Lock()
	defer mut.Unlock()

	if channel == nil {
		return
	}

	select {
	case channel <- os.Interrupt:
	default:
	}
}

// SetupHandler installs a handler for SIGINT and SIGTERM and returns a
// context canceled once the hooks have run. Canceling parent shuts down the
// same way; the returned context keeps parent's values but outlives it until
// the hooks are done.
func SetupHandler(parent context.Context) context.Context {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	channel = sig
	mut.Unlock()

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))

	go func() {
		reason := "parent context done"

		select {
		case s := <-sig:
			reason = "received " + s.String()
		case <-parent.Done():
		}

		signal.Stop(sig)

		mut.Lock()
		if channel == sig {
			channel = nil
		}
		mut.Unlock()

		logger.Get(ctx).Warn("Shutting down", "reason", reason)

		RunHooks()
		cancel()
	}()

	return ctx
}

// RunHooks runs and forgets every registered hook, in registration order.
// Programs that exit without a signal call it before returning.
func RunHooks() {
	mut.Lock()
	pending := slices.Clone(hooks)
	hooks = nil
	mut.Unlock()

	for _, h := range pending {
		h()
	}
}
