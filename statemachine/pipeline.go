package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/amp-labs/stateful/logger"
)

// runEvent resolves event against the current state and runs the pipeline
// of the matching transition. Unresolved events are no-ops.
func (m *Machine) runEvent(ctx context.Context, event string, args []any) error {
	from := m.CurrentState()

	tr, ok := m.def.Transitions.Resolve(from, event)
	if !ok {
		m.log.EventUnresolved(ctx, event, from)
		unresolvedEventsTotal.WithLabelValues(sanitizeMachine(m.Name()), event, from).Inc()

		return nil
	}

	return m.execute(ctx, event, from, tr, args)
}

// execute runs one transition:
//
//  1. leave callbacks of from, then leaveState:<from>
//  2. commit, then transition(from, to)
//  3. transition callbacks
//  4. the triggers cascade, run to completion
//  5. enter callbacks of to, then enterState:<to>
//
// The first failure stops the pipeline. Committed state is not rolled back.
func (m *Machine) execute(ctx context.Context, event, from string, tr Transition, args []any) (err error) {
	to := tr.EnterState
	ctx = m.pipelineContext(ctx, event, from, to)

	ctx, span := startTransitionSpan(ctx, m, event, from, to)
	start := time.Now()

	m.log.TransitionStarted(ctx, event, from, to)

	defer func() {
		duration := time.Since(start)
		if err != nil {
			err = wrapTransitionError(event, from, to, err)
		}

		m.log.TransitionCompleted(ctx, event, from, to, duration, err)
		transitionsTotal.WithLabelValues(sanitizeMachine(m.Name()), event, from, to, outcome(err)).Inc()
		transitionDuration.WithLabelValues(sanitizeMachine(m.Name()), event, outcome(err)).
			Observe(duration.Seconds())
		endSpan(span, err)
	}()

	if err := m.runCallbacks(ctx, PhaseLeave, from, m.def.State(from).Leave, args); err != nil {
		return err
	}

	m.sinks.LeaveState(ctx, from, args)

	m.commit(event, from, to)
	m.sinks.Transition(ctx, from, to, args)

	if err := m.runCallbacks(ctx, PhaseTransition, to, tr.Callbacks, args); err != nil {
		return err
	}

	if tr.Triggers != "" {
		m.sinks.Raw(ctx, tr.Triggers, true, args)

		if err := m.runEvent(ctx, tr.Triggers, args); err != nil {
			return err
		}
	}

	if err := m.runCallbacks(ctx, PhaseEnter, to, m.def.State(to).Enter, args); err != nil {
		return err
	}

	m.sinks.EnterState(ctx, to, args)

	return nil
}

// enter is the ToState pipeline: commit, transition event, enter callbacks,
// enterState event.
func (m *Machine) enter(ctx context.Context, to string, args []any) (err error) {
	from := m.CurrentState()
	ctx = m.pipelineContext(ctx, "", from, to)

	ctx, span := startTransitionSpan(ctx, m, "", from, to)
	start := time.Now()

	m.log.TransitionStarted(ctx, "", from, to)

	defer func() {
		duration := time.Since(start)
		if err != nil {
			err = wrapTransitionError("", from, to, err)
		}

		m.log.TransitionCompleted(ctx, "", from, to, duration, err)
		transitionsTotal.WithLabelValues(sanitizeMachine(m.Name()), sanitizeEvent(""), from, to, outcome(err)).Inc()
		transitionDuration.WithLabelValues(sanitizeMachine(m.Name()), sanitizeEvent(""), outcome(err)).
			Observe(duration.Seconds())
		endSpan(span, err)
	}()

	m.commit("", from, to)
	m.sinks.Transition(ctx, from, to, args)

	if err := m.runCallbacks(ctx, PhaseEnter, to, m.def.State(to).Enter, args); err != nil {
		return err
	}

	m.sinks.EnterState(ctx, to, args)

	return nil
}

func (m *Machine) runCallbacks(ctx context.Context, phase Phase, state string, names []string, args []any) error {
	for _, name := range names {
		cb, ok := m.host.Callback(name)
		if !ok {
			err := &UnknownCallbackError{Name: name, Phase: phase, State: state}
			m.log.CallbackCompleted(ctx, phase, name, state, 0, err)

			return err
		}

		if err := m.invoke(ctx, phase, name, state, cb, args); err != nil {
			return err
		}
	}

	return nil
}

func (m *Machine) invoke(
	ctx context.Context,
	phase Phase,
	name, state string,
	cb Callback,
	args []any,
) (err error) {
	ctx, span := startCallbackSpan(ctx, m, phase, name, state)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}

		if err != nil {
			err = &CallbackError{Phase: phase, Callback: name, State: state, Err: err}
		}

		duration := time.Since(start)
		m.log.CallbackCompleted(ctx, phase, name, state, duration, err)
		callbackDuration.WithLabelValues(sanitizeMachine(m.Name()), string(phase), name, outcome(err)).
			Observe(duration.Seconds())
		endSpan(span, err)
	}()

	return cb(ctx, args...)
}

func (m *Machine) pipelineContext(ctx context.Context, event, from, to string) context.Context {
	if !inPipeline(ctx, m) {
		ctx = logger.With(ctx, "machine", m.Name(), "machine_id", m.ID())
	}

	return withPipeline(ctx, m, event, from, to)
}

// wrapTransitionError leaves errors from a cascaded transition as they are
// so the innermost failing event stays visible.
func wrapTransitionError(event, from, to string, err error) error {
	if _, ok := err.(*TransitionError); ok { //nolint:errorlint
		return err
	}

	return &TransitionError{Event: event, From: from, To: to, Err: err}
}
