// Package testing provides testing utilities for state machines: a
// recording host, controllable callbacks, fixtures and matchers.
package testing

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/stateful/statemachine"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every wait performed by TestMachine.
const DefaultTimeout = 5 * time.Second

// Recorder records callback calls and emitted events in the positional form
// [name, values...].
type Recorder struct {
	mu     sync.Mutex
	calls  [][]any
	events [][]any
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Callback returns a callback that records [name, args...] and succeeds.
func (r *Recorder) Callback(name string) statemachine.Callback {
	return func(_ context.Context, args ...any) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.calls = append(r.calls, append([]any{name}, args...))

		return nil
	}
}

// Host returns a host resolving every name to a recording callback.
func (r *Recorder) Host() statemachine.Host {
	return statemachine.HostFunc(func(name string) (statemachine.Callback, bool) {
		return r.Callback(name), true
	})
}

// Callbacks returns recording callbacks for names only.
func (r *Recorder) Callbacks(names ...string) statemachine.Callbacks {
	cbs := make(statemachine.Callbacks, len(names))
	for _, name := range names {
		cbs[name] = r.Callback(name)
	}

	return cbs
}

// Listen records every event m emits to catch-all listeners.
func (r *Recorder) Listen(m *statemachine.Machine) func() {
	return m.OnAll(func(_ context.Context, ev statemachine.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.events = append(r.events, append([]any{ev.Name}, ev.Values()...))
	})
}

// Calls returns the recorded callback calls.
func (r *Recorder) Calls() [][]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.calls)
}

// Events returns the recorded events.
func (r *Recorder) Events() [][]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.events)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = nil
	r.events = nil
}

// TestMachine wraps Machine with a recorder and test-scoped waits.
type TestMachine struct {
	*statemachine.Machine

	t        *testing.T
	Recorder *Recorder
}

// NewTestMachine builds a machine whose host resolves names from callbacks
// first and falls back to recording callbacks. It logs through t.
func NewTestMachine(
	t *testing.T,
	def *statemachine.Definition,
	callbacks statemachine.Callbacks,
	opts ...statemachine.Option,
) *TestMachine {
	t.Helper()

	rec := NewRecorder()

	host := statemachine.HostFunc(func(name string) (statemachine.Callback, bool) {
		if cb, ok := callbacks.Callback(name); ok {
			return cb, true
		}

		return rec.Callback(name), true
	})

	opts = append([]statemachine.Option{
		statemachine.WithLogger(statemachine.NewSlogLogger(slogt.New(t))),
	}, opts...)

	m, err := statemachine.New(def, host, opts...)
	require.NoError(t, err, "failed to create machine")

	t.Cleanup(rec.Listen(m))

	return &TestMachine{Machine: m, t: t, Recorder: rec}
}

func (tm *TestMachine) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(tm.t.Context(), DefaultTimeout)
}

// MustStart starts the machine or fails the test.
func (tm *TestMachine) MustStart(opts ...statemachine.StartOption) {
	tm.t.Helper()

	ctx, cancel := tm.context()
	defer cancel()

	require.NoError(tm.t, tm.Start(ctx, opts...))
}

// MustTrigger triggers event and waits for its transition to succeed.
func (tm *TestMachine) MustTrigger(event string, args ...any) {
	tm.t.Helper()

	require.NoError(tm.t, tm.TriggerAndWait(event, args...))
}

// TriggerAndWait triggers event and waits for its transition.
func (tm *TestMachine) TriggerAndWait(event string, args ...any) error {
	tm.t.Helper()

	ctx, cancel := tm.context()
	defer cancel()

	_, err := tm.TriggerAsync(ctx, event, args...).AwaitContext(ctx)

	return err
}

// MustToState moves the machine into state and clears the recorder, the
// way fixtures are reset between cases.
func (tm *TestMachine) MustToState(state string) {
	tm.t.Helper()

	ctx, cancel := tm.context()
	defer cancel()

	require.NoError(tm.t, tm.ToState(ctx, state))
	tm.Recorder.Reset()
}

// Settle waits for every queued transition.
func (tm *TestMachine) Settle() {
	tm.t.Helper()

	ctx, cancel := tm.context()
	defer cancel()

	require.NoError(tm.t, tm.Flush(ctx))
}

// RequireState fails the test unless the machine is in state.
func (tm *TestMachine) RequireState(state string) {
	tm.t.Helper()

	require.Equal(tm.t, state, tm.CurrentState())
}
