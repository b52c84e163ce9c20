package statemachine

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/atomic"
)

const (
	// TransitionEventName is the name of the event emitted after a commit.
	TransitionEventName = "transition"

	// LeaveStatePrefix prefixes the event emitted after a state's leave
	// callbacks.
	LeaveStatePrefix = "leaveState:"

	// EnterStatePrefix prefixes the event emitted after a state's enter
	// callbacks.
	EnterStatePrefix = "enterState:"
)

// EventKind classifies emitted events.
type EventKind int

const (
	// EventRaw is an event raised through Trigger or TriggerAsync.
	EventRaw EventKind = iota
	// EventCascade is an event fired by a transition's triggers field.
	EventCascade
	EventLeaveState
	EventTransition
	EventEnterState
	// EventCustom is anything raised through Emit.
	EventCustom
)

func (k EventKind) String() string {
	switch k {
	case EventRaw:
		return "raw"
	case EventCascade:
		return "cascade"
	case EventLeaveState:
		return "leaveState"
	case EventTransition:
		return "transition"
	case EventEnterState:
		return "enterState"
	case EventCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Event is one emission of a machine.
type Event struct {
	Kind EventKind
	// Name is the event name as listeners subscribe to it, for example
	// "hide", "leaveState:visible" or "transition".
	Name string
	// From and To are set for EventTransition.
	From string
	To   string
	// State is set for EventLeaveState and EventEnterState.
	State string
	Args  []any
}

// Values returns the positional payload: from and to followed by the
// arguments for a transition event, the arguments otherwise.
func (e Event) Values() []any {
	if e.Kind == EventTransition {
		return append([]any{e.From, e.To}, e.Args...)
	}

	return slices.Clone(e.Args)
}

// IsLifecycle reports whether the event was produced by the pipeline rather
// than raised by a caller.
func (e Event) IsLifecycle() bool {
	switch e.Kind { //nolint:exhaustive
	case EventCascade, EventLeaveState, EventTransition, EventEnterState:
		return true
	default:
		return false
	}
}

// Listener receives events. Listeners run synchronously on the emitting
// goroutine and must not block.
type Listener func(ctx context.Context, ev Event)

// Sink receives the typed events of a machine.
type Sink interface {
	Raw(ctx context.Context, event string, cascaded bool, args []any)
	LeaveState(ctx context.Context, state string, args []any)
	Transition(ctx context.Context, from, to string, args []any)
	EnterState(ctx context.Context, state string, args []any)
}

type subscription struct {
	fn Listener
}

// Emitter dispatches events to named listeners and catch-all listeners.
// In silent mode catch-all listeners only see events raised by callers;
// named listeners always see everything.
type Emitter struct {
	mu     sync.RWMutex
	named  map[string][]*subscription
	all    []*subscription
	silent atomic.Bool
}

// NewEmitter creates an emitter.
func NewEmitter() *Emitter {
	return &Emitter{named: make(map[string][]*subscription)}
}

// On subscribes fn to events called name. The returned func unsubscribes.
func (e *Emitter) On(name string, fn Listener) func() {
	sub := &subscription{fn: fn}

	e.mu.Lock()
	e.named[name] = append(e.named[name], sub)
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.named[name] = slices.DeleteFunc(e.named[name], func(s *subscription) bool { return s == sub })
		if len(e.named[name]) == 0 {
			delete(e.named, name)
		}
	}
}

// OnAll subscribes fn to every event. The returned func unsubscribes.
func (e *Emitter) OnAll(fn Listener) func() {
	sub := &subscription{fn: fn}

	e.mu.Lock()
	e.all = append(e.all, sub)
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.all = slices.DeleteFunc(e.all, func(s *subscription) bool { return s == sub })
	}
}

// Silent reports whether lifecycle events are hidden from catch-all
// listeners.
func (e *Emitter) Silent() bool {
	return e.silent.Load()
}

// SetSilent toggles silent mode.
func (e *Emitter) SetSilent(silent bool) {
	e.silent.Store(silent)
}

// Emit dispatches ev to the listeners of ev.Name, then to catch-all
// listeners unless silent mode hides it.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	e.mu.RLock()
	named := slices.Clone(e.named[ev.Name])

	var all []*subscription
	if !ev.IsLifecycle() || !e.silent.Load() {
		all = slices.Clone(e.all)
	}
	e.mu.RUnlock()

	for _, sub := range named {
		sub.fn(ctx, ev)
	}

	for _, sub := range all {
		sub.fn(ctx, ev)
	}
}

// Raw implements Sink.
func (e *Emitter) Raw(ctx context.Context, event string, cascaded bool, args []any) {
	kind := EventRaw
	if cascaded {
		kind = EventCascade
	}

	e.Emit(ctx, Event{Kind: kind, Name: event, Args: args})
}

// LeaveState implements Sink.
func (e *Emitter) LeaveState(ctx context.Context, state string, args []any) {
	e.Emit(ctx, Event{Kind: EventLeaveState, Name: LeaveStatePrefix + state, State: state, Args: args})
}

// Transition implements Sink.
func (e *Emitter) Transition(ctx context.Context, from, to string, args []any) {
	e.Emit(ctx, Event{Kind: EventTransition, Name: TransitionEventName, From: from, To: to, Args: args})
}

// EnterState implements Sink.
func (e *Emitter) EnterState(ctx context.Context, state string, args []any) {
	e.Emit(ctx, Event{Kind: EventEnterState, Name: EnterStatePrefix + state, State: state, Args: args})
}

type sinks []Sink

func (s sinks) Raw(ctx context.Context, event string, cascaded bool, args []any) {
	for _, sink := range s {
		sink.Raw(ctx, event, cascaded, args)
	}
}

func (s sinks) LeaveState(ctx context.Context, state string, args []any) {
	for _, sink := range s {
		sink.LeaveState(ctx, state, args)
	}
}

func (s sinks) Transition(ctx context.Context, from, to string, args []any) {
	for _, sink := range s {
		sink.Transition(ctx, from, to, args)
	}
}

func (s sinks) EnterState(ctx context.Context, state string, args []any) {
	for _, sink := range s {
		sink.EnterState(ctx, state, args)
	}
}
