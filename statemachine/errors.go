package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrDoubleStart is returned when Start is called on a running machine.
	ErrDoubleStart = errors.New("state machine already started")

	// ErrNotStarted fails transitions requested before Start.
	ErrNotStarted = errors.New("state machine not started")

	// ErrUnknownCallback is returned when the host has no callback for a
	// declared name.
	ErrUnknownCallback = errors.New("unknown callback")

	// ErrUnknownState is returned for a state outside the definition.
	ErrUnknownState = errors.New("unknown state")

	// ErrCallbackPanic wraps a panic recovered from a callback.
	ErrCallbackPanic = errors.New("callback panicked")

	ErrNilDefinition = errors.New("definition is nil")
	ErrNilHost       = errors.New("host is nil")
)

// Definition errors.
var (
	ErrInvalidDefinition     = errors.New("invalid definition")
	ErrDefinitionNameMissing = errors.New("definition name is required")
	ErrNoTransitions         = errors.New("definition must declare at least one transition")
	ErrSourceStateRequired   = errors.New("source state is required")
	ErrEventNameRequired     = errors.New("event name is required")
	ErrEnterStateRequired    = errors.New("enterState is required")
	ErrDuplicateTransition   = errors.New("duplicate transition")
	ErrUnknownTransition     = errors.New("no such transition")
	ErrWildcardTransition    = errors.New("wildcard transitions must be plain target states")
	ErrWildcardTarget        = errors.New("wildcard is not a valid target state")
	ErrWildcardState         = errors.New("wildcard cannot carry state callbacks")
	ErrEmptyCallbackName     = errors.New("callback name is empty")
	ErrStartEventUndeclared  = errors.New("start event has no transition from init")
	ErrStartStateUndeclared  = errors.New("start state is not declared")
	ErrTableFrozen           = errors.New("transition table is in use and cannot be modified")
	ErrNoDefinitionLoader    = errors.New("no definition loader configured")
)

// DoubleStartError reports a second Start call. It matches ErrDoubleStart.
type DoubleStartError struct {
	Machine      string
	CurrentState string
}

func (e *DoubleStartError) Error() string {
	return fmt.Sprintf("state machine %s already started (current state %s)", e.Machine, e.CurrentState)
}

func (e *DoubleStartError) Unwrap() error {
	return ErrDoubleStart
}

// UnknownCallbackError names a callback the host could not resolve. It
// matches ErrUnknownCallback.
type UnknownCallbackError struct {
	Name  string
	Phase Phase
	State string
}

func (e *UnknownCallbackError) Error() string {
	return fmt.Sprintf("%s callback %q (state %s): %v", e.Phase, e.Name, e.State, ErrUnknownCallback)
}

func (e *UnknownCallbackError) Unwrap() error {
	return ErrUnknownCallback
}

// CallbackError wraps a failure returned by a callback.
type CallbackError struct {
	Phase    Phase
	Callback string
	State    string
	Err      error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s callback %q (state %s): %v", e.Phase, e.Callback, e.State, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// TransitionError wraps a failure of the pipeline for one event. Event is
// empty for ToState.
type TransitionError struct {
	Event string
	From  string
	To    string
	Err   error
}

func (e *TransitionError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("transition %s -> %s: %v", e.From, e.To, e.Err)
	}

	return fmt.Sprintf("event %s: transition %s -> %s: %v", e.Event, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
