package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/stateful/statemachine"
	smtesting "github.com/amp-labs/stateful/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVisibility(t *testing.T, start string, callbacks statemachine.Callbacks) *smtesting.TestMachine {
	t.Helper()

	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Visibility(), callbacks)
	tm.MustStart(statemachine.WithStartState(start))
	tm.Recorder.Reset()

	return tm
}

func TestScenarios(t *testing.T) {
	t.Parallel()

	smtesting.RunScenario(t, smtesting.HideScenario())
	smtesting.RunScenario(t, smtesting.CascadeScenario())
	smtesting.RunScenario(t, smtesting.WildcardScenario())
}

func TestStart_Twice(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "hidden", nil)

	err := tm.Start(t.Context(), statemachine.WithStartState("visible"))
	require.ErrorIs(t, err, statemachine.ErrDoubleStart)

	var dse *statemachine.DoubleStartError
	require.ErrorAs(t, err, &dse)
	assert.Equal(t, "hidden", dse.CurrentState)

	tm.RequireState("hidden")
	assert.Empty(t, tm.Recorder.Events())
}

func TestStart_TwiceWithUnknownState(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "hidden", nil)

	err := tm.Start(t.Context(), statemachine.WithStartState("nope"))
	require.ErrorIs(t, err, statemachine.ErrDoubleStart)
	require.NotErrorIs(t, err, statemachine.ErrUnknownState)

	assert.True(t, tm.Started())
	tm.RequireState("hidden")
	assert.Empty(t, tm.Recorder.Events())
}

func TestStart_UnknownState(t *testing.T) {
	t.Parallel()

	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Visibility(), nil)

	err := tm.Start(t.Context(), statemachine.WithStartState("nowhere"))
	require.ErrorIs(t, err, statemachine.ErrUnknownState)
	assert.False(t, tm.Started())

	tm.MustStart()
	tm.RequireState(statemachine.InitState)
}

func TestStart_RunsStartEvent(t *testing.T) {
	t.Parallel()

	def, err := statemachine.NewBuilder("boot").
		AddTransition(statemachine.InitState, "initialized", "idle").
		WithStartEvent("initialized").
		OnEnter("idle", "ready").
		Build()
	require.NoError(t, err)

	tm := smtesting.NewTestMachine(t, def, nil)
	tm.MustStart()

	tm.RequireState("idle")
	assert.Equal(t, [][]any{{"ready"}}, tm.Recorder.Calls())
	assert.Equal(t, [][]any{
		{"initialized"},
		{"leaveState:init"},
		{"transition", "init", "idle"},
		{"enterState:idle"},
	}, tm.Recorder.Events())
}

func TestStart_DefinitionStartStateSkipsStartEvent(t *testing.T) {
	t.Parallel()

	def, err := statemachine.NewBuilder("seeded").
		AddTransition(statemachine.InitState, "initialized", "idle").
		AddTransition("idle", "go", "busy").
		WithStartEvent("initialized").
		WithStartState("busy").
		Build()
	require.NoError(t, err)

	tm := smtesting.NewTestMachine(t, def, nil)
	tm.MustStart()

	tm.RequireState("busy")
	assert.Empty(t, tm.Recorder.Events())
}

func TestEvents(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "hidden", nil)

	assert.Equal(t, []string{"initialized", "hide", "show", "panic"}, tm.Events())
}

func TestTrigger_CallbackOrderAndArguments(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "visible", nil)
	tm.Trigger(t.Context(), "hide", "under your bed")
	tm.Settle()

	tm.RequireState("hidden")
	assert.Equal(t, [][]any{
		{"leaveVisible1", "under your bed"},
		{"leaveVisible2", "under your bed"},
		{"visibleToHidden1", "under your bed"},
		{"visibleToHidden2", "under your bed"},
		{"enterHidden1", "under your bed"},
	}, tm.Recorder.Calls())
}

func TestTrigger_NoTransition(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "hidden", nil)
	tm.MustTrigger("hide")

	tm.RequireState("hidden")
	assert.Equal(t, [][]any{{"hide"}}, tm.Recorder.Events())
	assert.Empty(t, tm.Recorder.Calls())
}

func TestTrigger_RawEventBeforeQueueing(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "hidden", nil)

	seen := make(chan struct{}, 1)
	tm.On("hide", func(context.Context, statemachine.Event) { seen <- struct{}{} })

	tm.Trigger(t.Context(), "hide")

	select {
	case <-seen:
	default:
		t.Fatal("raw event was not emitted synchronously")
	}

	tm.Settle()
}

func TestTrigger_Silent(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "hidden", nil)

	var transitions [][2]string

	tm.On(statemachine.TransitionEventName, func(_ context.Context, ev statemachine.Event) {
		transitions = append(transitions, [2]string{ev.From, ev.To})
	})

	tm.SetSilent(true)
	assert.True(t, tm.Silent())

	tm.MustTrigger("show", "bla")

	tm.RequireState("visible")
	assert.Equal(t, [][]any{{"show", "bla"}}, tm.Recorder.Events())
	assert.Equal(t, [][]any{
		{"hiddenToVisible1", "bla"},
		{"hiddenToVisible2", "bla"},
		{"enterVisible1", "bla"},
		{"enterVisible2", "bla"},
	}, tm.Recorder.Calls())
	assert.Equal(t, [][2]string{{"hidden", "visible"}}, transitions)
}

func TestToState_RunsOnlyEnterCallbacks(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "visible", nil)

	require.NoError(t, tm.ToState(t.Context(), "hidden", "in the box"))

	tm.RequireState("hidden")
	assert.Equal(t, [][]any{{"enterHidden1", "in the box"}}, tm.Recorder.Calls())
	assert.Equal(t, [][]any{
		{"transition", "visible", "hidden", "in the box"},
		{"enterState:hidden", "in the box"},
	}, tm.Recorder.Events())
}

func TestToState_UnknownState(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "visible", nil)

	err := tm.ToState(t.Context(), "nowhere")
	require.ErrorIs(t, err, statemachine.ErrUnknownState)
	tm.RequireState("visible")
}

func TestToState_InlineFromCallback(t *testing.T) {
	t.Parallel()

	def, err := statemachine.NewBuilder("redirect").
		AddTransition("a", "go", "b").
		AddTransition("b", "noop", "b").
		AddState("c", statemachine.StateConfig{Enter: []string{"enterC"}}).
		OnEnter("b", "redirect").
		Build()
	require.NoError(t, err)

	tm := smtesting.NewTestMachine(t, def, statemachine.Callbacks{
		"redirect": func(ctx context.Context, args ...any) error {
			m, ok := statemachine.MachineFromContext(ctx)
			if !ok {
				return errors.New("no machine in context") //nolint:err113
			}

			return m.ToState(ctx, "c", args...)
		},
	})
	tm.MustStart(statemachine.WithStartState("a"))

	tm.MustTrigger("go", 1)

	tm.RequireState("c")
	assert.Equal(t, [][]any{{"enterC", 1}}, tm.Recorder.Calls())
	assert.Equal(t, [][]any{
		{"go", 1},
		{"leaveState:a", 1},
		{"transition", "a", "b", 1},
		{"transition", "b", "c", 1},
		{"enterState:c", 1},
		{"enterState:b", 1},
	}, tm.Recorder.Events())
}

func TestEnterCallbackCanTriggerAnotherTransition(t *testing.T) {
	t.Parallel()

	var tm *smtesting.TestMachine

	tm = smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Chained(), statemachine.Callbacks{
		"hideNow": func(ctx context.Context, _ ...any) error {
			tm.Trigger(ctx, "hide")

			return nil
		},
	})
	tm.MustStart()

	var (
		mu          sync.Mutex
		transitions [][2]string
	)

	tm.On(statemachine.TransitionEventName, func(_ context.Context, ev statemachine.Event) {
		mu.Lock()
		defer mu.Unlock()

		transitions = append(transitions, [2]string{ev.From, ev.To})
	})

	tm.MustTrigger("show")
	tm.Settle()

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, [][2]string{{"init", "visible"}, {"visible", "hidden"}}, transitions)
	tm.RequireState("hidden")

	history := tm.History()
	require.Len(t, history, 2)
	assert.Equal(t, "show", history[0].Event)
	assert.Equal(t, "hide", history[1].Event)
}

func TestTriggerAsync_SettlesAfterCallback(t *testing.T) {
	t.Parallel()

	show := smtesting.NewDeferred()

	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Promised(), statemachine.Callbacks{
		"promisedShow": show.Callback,
	})
	tm.MustStart()

	fut := tm.TriggerAsync(t.Context(), "show")

	<-show.Started()
	assert.False(t, fut.IsDone())

	show.Resolve()

	_, err := fut.AwaitContext(ctxWithTimeout(t))
	require.NoError(t, err)
	tm.RequireState("promisedShow")
}

func TestTriggerAsync_WaitsForPreviousTransition(t *testing.T) {
	t.Parallel()

	show := smtesting.NewDeferred()
	hide := smtesting.NewDeferred()

	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Promised(), statemachine.Callbacks{
		"promisedShow": show.Callback,
		"promisedHide": hide.Callback,
	})
	tm.MustStart()

	showFut := tm.TriggerAsync(t.Context(), "show")
	<-show.Started()

	hideFut := tm.TriggerAsync(t.Context(), "hide")

	time.Sleep(20 * time.Millisecond)

	assert.False(t, showFut.IsDone())
	assert.False(t, hideFut.IsDone())
	assert.False(t, hide.WasStarted(), "hide must wait for show to settle")
	assert.Equal(t, 2, tm.Pending())

	show.Resolve()

	_, err := showFut.AwaitContext(ctxWithTimeout(t))
	require.NoError(t, err)

	<-hide.Started()
	assert.False(t, hideFut.IsDone())

	hide.Resolve()

	_, err = hideFut.AwaitContext(ctxWithTimeout(t))
	require.NoError(t, err)
	tm.RequireState("promisedHide")
}

func TestTriggerAsync_CallbackFailureKeepsCommittedState(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom") //nolint:err113

	tm := newVisibility(t, "visible", statemachine.Callbacks{
		"visibleToHidden2": func(context.Context, ...any) error { return boom },
	})

	err := tm.TriggerAndWait("hide", "x")
	require.ErrorIs(t, err, boom)

	var te *statemachine.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "hide", te.Event)
	assert.Equal(t, "visible", te.From)
	assert.Equal(t, "hidden", te.To)

	var ce *statemachine.CallbackError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, statemachine.PhaseTransition, ce.Phase)
	assert.Equal(t, "visibleToHidden2", ce.Callback)

	tm.RequireState("hidden")
	assert.Equal(t, [][]any{
		{"leaveVisible1", "x"},
		{"leaveVisible2", "x"},
		{"visibleToHidden1", "x"},
	}, tm.Recorder.Calls())
	assert.Equal(t, [][]any{
		{"hide", "x"},
		{"leaveState:visible", "x"},
		{"transition", "visible", "hidden", "x"},
	}, tm.Recorder.Events())

	// The queue keeps going after a failure.
	tm.MustTrigger("panic")
	tm.RequireState("panicking")
}

func TestTriggerAsync_LeaveFailureDoesNotCommit(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom") //nolint:err113

	tm := newVisibility(t, "visible", statemachine.Callbacks{
		"leaveVisible1": func(context.Context, ...any) error { return boom },
	})

	require.ErrorIs(t, tm.TriggerAndWait("hide"), boom)
	tm.RequireState("visible")
	assert.Equal(t, [][]any{{"hide"}}, tm.Recorder.Events())
}

func TestTriggerAsync_UnknownCallback(t *testing.T) {
	t.Parallel()

	def, err := statemachine.NewBuilder("strict").
		AddTransitionConfig("a", "go", statemachine.Transition{EnterState: "b", Callbacks: []string{"missing"}}).
		Build()
	require.NoError(t, err)

	m, err := statemachine.New(def, statemachine.Callbacks{}, statemachine.WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, m.Start(t.Context(), statemachine.WithStartState("a")))

	_, err = m.TriggerAsync(t.Context(), "go").AwaitContext(ctxWithTimeout(t))
	require.ErrorIs(t, err, statemachine.ErrUnknownCallback)

	var uce *statemachine.UnknownCallbackError
	require.ErrorAs(t, err, &uce)
	assert.Equal(t, "missing", uce.Name)
	assert.Equal(t, statemachine.PhaseTransition, uce.Phase)

	assert.Equal(t, "b", m.CurrentState())
}

func TestTriggerAsync_PanicBecomesError(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "hidden", statemachine.Callbacks{
		"enterVisible1": func(context.Context, ...any) error { panic("kaboom") },
	})

	err := tm.TriggerAndWait("show")
	require.ErrorIs(t, err, statemachine.ErrCallbackPanic)
	tm.RequireState("visible")
}

func TestTriggerAsync_CascadeFailurePropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom") //nolint:err113

	def, err := statemachine.NewBuilder("cascade").
		AddTransitionConfig("a", "go", statemachine.Transition{EnterState: "b", Triggers: "next"}).
		AddTransitionConfig("b", "next", statemachine.Transition{EnterState: "c", Callbacks: []string{"fail"}}).
		OnEnter("b", "enterB").
		Build()
	require.NoError(t, err)

	tm := smtesting.NewTestMachine(t, def, statemachine.Callbacks{
		"fail": func(context.Context, ...any) error { return boom },
	})
	tm.MustStart(statemachine.WithStartState("a"))

	err = tm.TriggerAndWait("go")
	require.ErrorIs(t, err, boom)

	var te *statemachine.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "next", te.Event)

	tm.RequireState("c")
	assert.Empty(t, tm.Recorder.Calls(), "enter callbacks of b must not run")
}

func TestTriggerAsync_BeforeStart(t *testing.T) {
	t.Parallel()

	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Visibility(), nil)

	err := tm.TriggerAndWait("initialized")
	require.ErrorIs(t, err, statemachine.ErrNotStarted)
	assert.Equal(t, [][]any{{"initialized"}}, tm.Recorder.Events())
	tm.RequireState(statemachine.InitState)
}

func TestTransitionFromContext(t *testing.T) {
	t.Parallel()

	var got statemachine.TransitionInfo

	tm := newVisibility(t, "visible", statemachine.Callbacks{
		"enterHidden1": func(ctx context.Context, _ ...any) error {
			got, _ = statemachine.TransitionFromContext(ctx)

			return nil
		},
	})

	tm.MustTrigger("hide")

	assert.Equal(t, "visibility", got.Machine)
	assert.Equal(t, tm.ID(), got.ID)
	assert.Equal(t, "hide", got.Event)
	assert.Equal(t, "visible", got.From)
	assert.Equal(t, "hidden", got.To)

	_, ok := statemachine.TransitionFromContext(t.Context())
	assert.False(t, ok)
}

func TestHistoryLimit(t *testing.T) {
	t.Parallel()

	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Visibility(), nil,
		statemachine.WithHistoryLimit(2))
	tm.MustStart(statemachine.WithStartState("visible"))

	tm.MustTrigger("hide")
	tm.MustTrigger("show")
	tm.MustTrigger("panic")

	history := tm.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hidden", history[0].From)
	assert.Equal(t, "panicking", history[1].To)
}

type sinkRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (s *sinkRecorder) add(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, call)
}

func (s *sinkRecorder) Raw(_ context.Context, event string, cascaded bool, _ []any) {
	if cascaded {
		s.add("cascade:" + event)
	} else {
		s.add("raw:" + event)
	}
}

func (s *sinkRecorder) LeaveState(_ context.Context, state string, _ []any) { s.add("leave:" + state) }
func (s *sinkRecorder) EnterState(_ context.Context, state string, _ []any) { s.add("enter:" + state) }

func (s *sinkRecorder) Transition(_ context.Context, from, to string, _ []any) {
	s.add("transition:" + from + ">" + to)
}

func TestWithSink_IgnoresSilent(t *testing.T) {
	t.Parallel()

	sink := &sinkRecorder{}

	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Visibility(), nil,
		statemachine.WithSink(sink), statemachine.WithSilent(true))
	tm.MustStart(statemachine.WithStartState("hidden"))

	tm.MustTrigger("show")

	assert.Equal(t, []string{
		"raw:show",
		"leave:hidden",
		"transition:hidden>visible",
		"cascade:showTime",
		"enter:visible",
	}, sink.calls)
}

func TestEmit_CustomEvents(t *testing.T) {
	t.Parallel()

	tm := newVisibility(t, "visible", nil)
	tm.SetSilent(true)

	tm.Emit(t.Context(), "change:attr1", 11)

	assert.Equal(t, [][]any{{"change:attr1", 11}}, tm.Recorder.Events())
	tm.RequireState("visible")
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(nil, statemachine.Callbacks{})
	require.ErrorIs(t, err, statemachine.ErrNilDefinition)

	_, err = statemachine.New(smtesting.CommonTestDefinitions.Visibility(), nil)
	require.ErrorIs(t, err, statemachine.ErrNilHost)

	_, err = statemachine.New(&statemachine.Definition{Name: "empty"}, statemachine.Callbacks{})
	require.ErrorIs(t, err, statemachine.ErrNoTransitions)
}

func TestNew_FreezesTable(t *testing.T) {
	t.Parallel()

	def := smtesting.CommonTestDefinitions.Visibility()
	m, err := statemachine.New(def, statemachine.Callbacks{}, statemachine.WithID("fixed"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", m.ID())

	err = def.Transitions.Add("visible", "fade", statemachine.Transition{EnterState: "hidden"})
	require.ErrorIs(t, err, statemachine.ErrTableFrozen)
}

func ctxWithTimeout(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), smtesting.DefaultTimeout)
	t.Cleanup(cancel)

	return ctx
}
