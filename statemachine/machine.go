package statemachine

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/stateful/bgworker"
	"github.com/amp-labs/stateful/future"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

const defaultHistoryLimit = 100

// Machine is one running instance of a Definition bound to a Host.
//
// Transitions requested through Trigger, TriggerAsync and ToState run one at
// a time in request order. Listeners and callbacks run on the queue's worker.
type Machine struct {
	id    string
	def   *Definition
	host  Host
	log   Logger
	pool  pond.Pool
	queue *Queue

	emitter *Emitter
	extra   []Sink
	sinks   sinks

	historyLimit int

	mu      sync.RWMutex
	current string
	history []HistoryEntry

	started atomic.Bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logging hooks. Nil disables logging.
func WithLogger(l Logger) Option {
	return func(m *Machine) {
		if l == nil {
			m.log = nopLogger{}
		} else {
			m.log = l
		}
	}
}

// WithPool sets the pool draining the transition queue. The pool must
// outlive the machine.
func WithPool(pool pond.Pool) Option {
	return func(m *Machine) {
		m.pool = pool
	}
}

// WithSink adds a typed observer of the machine's events. Sinks are not
// affected by silent mode.
func WithSink(sink Sink) Option {
	return func(m *Machine) {
		if sink != nil {
			m.extra = append(m.extra, sink)
		}
	}
}

// WithID overrides the generated instance ID.
func WithID(id string) Option {
	return func(m *Machine) {
		if id != "" {
			m.id = id
		}
	}
}

// WithSilent starts the machine in silent mode.
func WithSilent(silent bool) Option {
	return func(m *Machine) {
		m.emitter.SetSilent(silent)
	}
}

// WithHistoryLimit bounds History. Zero disables history.
func WithHistoryLimit(n int) Option {
	return func(m *Machine) {
		m.historyLimit = max(n, 0)
	}
}

// New creates a machine in InitState. The definition is validated and its
// table frozen.
func New(def *Definition, host Host, opts ...Option) (*Machine, error) {
	if def == nil {
		return nil, ErrNilDefinition
	}

	if host == nil {
		return nil, ErrNilHost
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	def.Transitions.freeze()

	m := &Machine{
		id:           uuid.NewString(),
		def:          def,
		host:         host,
		log:          NewDefaultLogger(),
		emitter:      NewEmitter(),
		historyLimit: defaultHistoryLimit,
		current:      InitState,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.pool == nil {
		m.pool = bgworker.Pool(context.Background())
	}

	m.sinks = append(sinks{m.emitter}, m.extra...)

	depth := queueDepth.WithLabelValues(sanitizeMachine(def.Name))
	m.queue = newQueue(m.pool, func(delta int) { depth.Add(float64(delta)) })

	return m, nil
}

// ID returns the instance ID.
func (m *Machine) ID() string { return m.id }

// Name returns the definition name.
func (m *Machine) Name() string { return m.def.Name }

// Definition returns the machine's definition. It must not be modified.
func (m *Machine) Definition() *Definition { return m.def }

// CurrentState returns the last committed state.
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

// Started reports whether Start has succeeded.
func (m *Machine) Started() bool {
	return m.started.Load()
}

// Events returns every event name of the transition table.
func (m *Machine) Events() []string {
	return m.def.Events()
}

// History returns the most recent committed state changes, oldest first.
func (m *Machine) History() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.history)
}

// Silent reports whether lifecycle events are hidden from catch-all
// listeners.
func (m *Machine) Silent() bool {
	return m.emitter.Silent()
}

// SetSilent toggles silent mode. Callbacks, named listeners and sinks are
// not affected.
func (m *Machine) SetSilent(silent bool) {
	m.emitter.SetSilent(silent)
}

// On subscribes to events called name, for example "enterState:hidden".
func (m *Machine) On(name string, fn Listener) func() {
	return m.emitter.On(name, fn)
}

// OnAll subscribes to every event, subject to silent mode.
func (m *Machine) OnAll(fn Listener) func() {
	return m.emitter.OnAll(fn)
}

// Emit publishes an event that is not part of the state machine, such as a
// host's own change notifications.
func (m *Machine) Emit(ctx context.Context, name string, args ...any) {
	m.emitter.Emit(ctx, Event{Kind: EventCustom, Name: name, Args: args})
}

// Pending returns the number of queued or running transitions.
func (m *Machine) Pending() int {
	return m.queue.Len()
}

// StartOption configures Start.
type StartOption func(*startOptions)

type startOptions struct {
	state string
}

// WithStartState seeds the machine with state instead of the definition's
// start state.
func WithStartState(state string) StartOption {
	return func(o *startOptions) {
		o.state = state
	}
}

// Start seeds the current state. If the seeded state is InitState and the
// definition has a start event, Start fires it and waits for its pipeline.
// A second call fails with a *DoubleStartError and has no effect.
func (m *Machine) Start(ctx context.Context, opts ...StartOption) error {
	var so startOptions
	for _, opt := range opts {
		opt(&so)
	}

	state := so.state
	if state == "" {
		state = m.def.StartState
	}

	if state == "" {
		state = InitState
	}

	if !m.started.CompareAndSwap(false, true) {
		return &DoubleStartError{Machine: m.Name(), CurrentState: m.CurrentState()}
	}

	if !m.def.HasState(state) {
		m.started.Store(false)

		return fmt.Errorf("start state %s: %w", state, ErrUnknownState)
	}

	m.mu.Lock()
	m.current = state
	m.mu.Unlock()

	m.log.MachineStarted(ctx, state)

	if state != InitState || m.def.StartEvent == "" {
		return nil
	}

	_, err := m.TriggerAsync(ctx, m.def.StartEvent).AwaitContext(ctx)

	return err
}

// Trigger raises event without waiting for its transition. Failures are
// logged. Listeners see the raw event before Trigger returns.
func (m *Machine) Trigger(ctx context.Context, event string, args ...any) {
	future.LogErrors(ctx, m.TriggerAsync(ctx, event, args...), "transition failed")
}

// TriggerAsync raises event and queues its transition. The future settles
// once the pipeline, including any cascaded triggers, has finished. An event
// with no transition from the state current when the job runs settles
// successfully without effect.
//
// Calling TriggerAsync from a callback queues the event behind the running
// pipeline; awaiting its future from that callback deadlocks.
func (m *Machine) TriggerAsync(ctx context.Context, event string, args ...any) *future.Future[struct{}] {
	args = slices.Clone(args)

	m.sinks.Raw(ctx, event, false, args)

	return m.queue.Enqueue(ctx, func(ctx context.Context) error {
		if !m.started.Load() {
			return &TransitionError{Event: event, From: m.CurrentState(), Err: ErrNotStarted}
		}

		return m.runEvent(ctx, event, args)
	})
}

// ToState moves the machine into state without a table lookup, running only
// the enter callbacks of state. Called with a callback's context it runs
// inline; otherwise it is queued and awaited.
func (m *Machine) ToState(ctx context.Context, state string, args ...any) error {
	if !m.def.HasState(state) {
		return &TransitionError{From: m.CurrentState(), To: state, Err: ErrUnknownState}
	}

	args = slices.Clone(args)

	if inPipeline(ctx, m) {
		return m.enter(ctx, state, args)
	}

	_, err := m.queue.Enqueue(ctx, func(ctx context.Context) error {
		return m.enter(ctx, state, args)
	}).Await()

	return err
}

// Flush waits until every transition queued before the call has settled.
// It must not be called from a callback.
func (m *Machine) Flush(ctx context.Context) error {
	_, err := m.queue.Enqueue(ctx, func(context.Context) error { return nil }).AwaitContext(ctx)

	return err
}

func (m *Machine) commit(event, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = to

	if m.historyLimit == 0 {
		return
	}

	m.history = append(m.history, HistoryEntry{Event: event, From: from, To: to, Timestamp: time.Now()})
	if over := len(m.history) - m.historyLimit; over > 0 {
		m.history = slices.Delete(m.history, 0, over)
	}
}
