package statemachine

import "context"

const (
	// InitState is the state every machine is in before Start seeds it.
	InitState = "init"

	// Wildcard is the source-state key whose entries apply to any state
	// without an exact (state, event) entry.
	Wildcard = "*"
)

// Callback is a named unit of work run by the transition pipeline. It
// receives the arguments the triggering event was raised with. A callback
// doing asynchronous work blocks until that work settles; the pipeline waits
// for it before moving on. A non-nil error aborts the pipeline.
type Callback func(ctx context.Context, args ...any) error

// Host resolves callback names declared in a Definition to functions.
type Host interface {
	Callback(name string) (Callback, bool)
}

// Callbacks is a Host backed by an explicit name-to-function table.
type Callbacks map[string]Callback

// Callback implements Host.
func (c Callbacks) Callback(name string) (Callback, bool) {
	cb, ok := c[name]

	return cb, ok && cb != nil
}

// HostFunc adapts a lookup function to the Host interface.
type HostFunc func(name string) (Callback, bool)

// Callback implements Host.
func (f HostFunc) Callback(name string) (Callback, bool) {
	return f(name)
}

// Phase identifies the pipeline step a callback runs in.
type Phase string

const (
	PhaseLeave      Phase = "leave"
	PhaseTransition Phase = "transition"
	PhaseEnter      Phase = "enter"
)
