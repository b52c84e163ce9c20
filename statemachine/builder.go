package statemachine

import "errors"

// Builder provides a fluent API for constructing definitions in code.
// Errors are collected and reported together by Build.
type Builder struct {
	def  *Definition
	errs []error
}

// NewBuilder creates a new definition builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		def: &Definition{
			Name:        name,
			Transitions: NewTable(),
			States:      make(map[string]StateConfig),
		},
	}
}

// WithStartState sets the state Start seeds the machine with.
func (b *Builder) WithStartState(state string) *Builder {
	b.def.StartState = state

	return b
}

// WithStartEvent sets the event Start fires from InitState.
func (b *Builder) WithStartEvent(event string) *Builder {
	b.def.StartEvent = event

	return b
}

// AddTransition declares a plain transition from -> to on event.
func (b *Builder) AddTransition(from, event, to string) *Builder {
	return b.AddTransitionConfig(from, event, Transition{EnterState: to})
}

// AddTransitionConfig declares a transition with callbacks or a cascade.
func (b *Builder) AddTransitionConfig(from, event string, tr Transition) *Builder {
	if err := b.def.Transitions.Add(from, event, tr); err != nil {
		b.errs = append(b.errs, err)
	}

	return b
}

// AddWildcard declares event -> to from any state without its own entry.
func (b *Builder) AddWildcard(event, to string) *Builder {
	return b.AddTransition(Wildcard, event, to)
}

// AddState sets the configuration of a state, replacing any earlier one.
func (b *Builder) AddState(name string, config StateConfig) *Builder {
	b.def.States[name] = config

	return b
}

// OnEnter appends enter callbacks to a state.
func (b *Builder) OnEnter(state string, callbacks ...string) *Builder {
	cfg := b.def.States[state]
	cfg.Enter = append(cfg.Enter, callbacks...)
	b.def.States[state] = cfg

	return b
}

// OnLeave appends leave callbacks to a state.
func (b *Builder) OnLeave(state string, callbacks ...string) *Builder {
	cfg := b.def.States[state]
	cfg.Leave = append(cfg.Leave, callbacks...)
	b.def.States[state] = cfg

	return b
}

// Build validates and returns the definition.
func (b *Builder) Build() (*Definition, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	if err := b.def.Validate(); err != nil {
		return nil, err
	}

	return b.def, nil
}
