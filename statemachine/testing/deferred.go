package testing

import (
	"context"
	"sync"
)

// Deferred is a callback that blocks until the test settles it. It is meant
// for a single invocation.
type Deferred struct {
	started   chan struct{}
	startOnce sync.Once
	result    chan error
}

// NewDeferred creates an unsettled deferred callback.
func NewDeferred() *Deferred {
	return &Deferred{
		started: make(chan struct{}),
		result:  make(chan error, 1),
	}
}

// Callback is the statemachine.Callback to register with a host.
func (d *Deferred) Callback(context.Context, ...any) error {
	d.startOnce.Do(func() { close(d.started) })

	return <-d.result
}

// Started is closed once the callback has been invoked.
func (d *Deferred) Started() <-chan struct{} {
	return d.started
}

// WasStarted reports whether the callback has been invoked.
func (d *Deferred) WasStarted() bool {
	select {
	case <-d.started:
		return true
	default:
		return false
	}
}

// Resolve lets the callback return successfully.
func (d *Deferred) Resolve() {
	d.settle(nil)
}

// Reject makes the callback return err.
func (d *Deferred) Reject(err error) {
	d.settle(err)
}

func (d *Deferred) settle(err error) {
	select {
	case d.result <- err:
	default:
	}
}
