// Package view binds a state machine to a visual element. The element shows
// a class for the current state, and interaction events reaching the view
// are turned into machine events.
package view

import (
	"context"
	"strings"
	"sync"

	"github.com/amp-labs/stateful/logger"
	"github.com/amp-labs/stateful/statemachine"
)

// Element is the piece of a view that displays the state class.
type Element interface {
	SetClass(class string)
}

// ElementFunc adapts a function to Element.
type ElementFunc func(class string)

// SetClass calls f.
func (f ElementFunc) SetClass(class string) { f(class) }

// Interaction is a user interaction reaching the view. It is passed as the
// single argument of the machine events it triggers.
type Interaction struct {
	// Type is the interaction type, such as "click".
	Type string

	// Selector identifies the element the interaction happened on, such as
	// ".clickable". Empty means the view's own element.
	Selector string

	Payload any
}

// Descriptor returns "<type> <selector>", or the type alone for the view's
// own element.
func (i Interaction) Descriptor() string {
	if i.Selector == "" {
		return i.Type
	}

	return i.Type + " " + i.Selector
}

// Handler is one of the view's own interaction handlers.
type Handler func(ctx context.Context, in Interaction)

// Option configures a View.
type Option func(*View)

// WithHandler registers h for interactions matching descriptor, which is
// either "<type> <selector>" or a bare type matching the type anywhere in
// the view.
func WithHandler(descriptor string, h Handler) Option {
	return func(v *View) {
		descriptor = normalize(descriptor)
		v.handlers[descriptor] = append(v.handlers[descriptor], h)
	}
}

// View is a state machine shown through an Element.
type View struct {
	*statemachine.Machine

	el       Element
	handlers map[string][]Handler
	events   map[string]string
	stop     func()

	mu    sync.Mutex
	class string
	// applied counts classes set so far.
	applied uint64
}

// New binds m to el. The element immediately shows the class of the state
// the machine starts in, and is updated on every committed transition.
func New(m *statemachine.Machine, el Element, opts ...Option) *View {
	v := &View{
		Machine:  m,
		el:       el,
		handlers: make(map[string][]Handler),
		events:   make(map[string]string),
	}

	for _, opt := range opts {
		opt(v)
	}

	for _, event := range m.Events() {
		v.events[normalize(event)] = event
	}

	v.stop = m.On(statemachine.TransitionEventName, func(_ context.Context, ev statemachine.Event) {
		v.apply(ev.To)
	})

	v.apply(v.initialState())

	return v
}

func (v *View) initialState() string {
	if v.Started() {
		return v.CurrentState()
	}

	if start := v.Definition().StartState; start != "" {
		return start
	}

	return statemachine.InitState
}

// Start starts the machine and shows the class of the state it was seeded
// with. When a transition has already shown a class by the time Start
// returns, such as the start event's, that class stays.
func (v *View) Start(ctx context.Context, opts ...statemachine.StartOption) error {
	v.mu.Lock()
	seen := v.applied
	v.mu.Unlock()

	if err := v.Machine.Start(ctx, opts...); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.applied == seen {
		v.setLocked(v.CurrentState())
	}

	return nil
}

func (v *View) apply(state string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.setLocked(state)
}

func (v *View) setLocked(state string) {
	v.class = v.Definition().State(state).Class(state)
	v.applied++
	v.el.SetClass(v.class)
}

// Class returns the class the element currently shows.
func (v *View) Class() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.class
}

// Dispatch delivers an interaction of type eventType on the element matched
// by selector. The view's own handlers run first, synchronously. Every
// machine event named by a matching descriptor is then triggered with the
// Interaction as its argument. It reports whether anything matched.
//
// An interaction matches the descriptor "<type> <selector>" and, as it
// bubbles up to the view, the bare descriptor "<type>".
func (v *View) Dispatch(ctx context.Context, eventType, selector string, payload any) bool {
	in := Interaction{Type: eventType, Selector: strings.TrimSpace(selector), Payload: payload}

	descriptors := []string{in.Descriptor()}
	if in.Selector != "" {
		descriptors = append(descriptors, in.Type)
	}

	matched := false

	for _, descriptor := range descriptors {
		for _, h := range v.handlers[descriptor] {
			matched = true

			h(ctx, in)
		}
	}

	for _, descriptor := range descriptors {
		event, ok := v.events[descriptor]
		if !ok {
			continue
		}

		matched = true

		logger.Get(ctx).Debug("dispatching interaction",
			"event", event, "machine", v.Name())

		v.Trigger(ctx, event, in)
	}

	return matched
}

// Close stops updating the element.
func (v *View) Close() {
	v.stop()
}

// normalize collapses runs of whitespace in a descriptor.
func normalize(descriptor string) string {
	return strings.Join(strings.Fields(descriptor), " ")
}
