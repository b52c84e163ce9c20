package testing_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/amp-labs/stateful/statemachine"
	smtesting "github.com/amp-labs/stateful/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	t.Parallel()

	smtesting.RunScenario(t, smtesting.HideScenario())
	smtesting.RunScenario(t, smtesting.CascadeScenario())
	smtesting.RunScenario(t, smtesting.WildcardScenario())
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	rec := smtesting.NewRecorder()

	cbs := rec.Callbacks("a", "b")
	require.Len(t, cbs, 2)

	require.NoError(t, cbs["a"](t.Context(), 1, 2))

	cb, ok := rec.Host().Callback("anything")
	require.True(t, ok)
	require.NoError(t, cb(t.Context()))

	assert.Equal(t, [][]any{{"a", 1, 2}, {"anything"}}, rec.Calls())

	rec.Reset()
	assert.Empty(t, rec.Calls())
	assert.Empty(t, rec.Events())
}

func TestTestMachine_CallbacksOverrideRecorder(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Visibility(), statemachine.Callbacks{
		"visibleToHidden2": func(context.Context, ...any) error { return errBoom },
	})
	tm.MustStart(statemachine.WithStartState("visible"))

	err := tm.TriggerAndWait("hide")
	require.ErrorIs(t, err, errBoom)

	tm.RequireState("hidden")
	tm.AssertMatches(
		smtesting.CallbackWasCalled("leaveVisible1"),
		smtesting.CallbackWasCalled("visibleToHidden1"),
		smtesting.EventWasEmitted("transition"),
		smtesting.TransitionWasTaken("visible", "hidden"),
	)

	ok, err := smtesting.CallbackWasCalled("enterHidden1").Match(tm)
	assert.False(t, ok)
	require.ErrorIs(t, err, smtesting.ErrCallbackNotCalled)

	ok, err = smtesting.EventWasEmitted("enterState:hidden").Match(tm)
	assert.False(t, ok)
	require.ErrorIs(t, err, smtesting.ErrEventNotEmitted)
}

func TestMatchers(t *testing.T) {
	t.Parallel()

	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Visibility(), nil)
	tm.MustStart()
	tm.MustTrigger("initialized")
	tm.MustToState("hidden")

	tm.AssertMatches(
		smtesting.StateIs("hidden"),
		smtesting.TransitionWasTaken(statemachine.InitState, "visible"),
		smtesting.All(smtesting.StateIs("hidden"), smtesting.TransitionWasTaken("visible", "hidden")),
		smtesting.Any(smtesting.StateIs("visible"), smtesting.StateIs("hidden")),
	)

	ok, err := smtesting.StateIs("visible").Match(tm)
	assert.False(t, ok)
	require.ErrorIs(t, err, smtesting.ErrStateMismatch)

	ok, err = smtesting.TransitionWasTaken("hidden", "visible").Match(tm)
	assert.False(t, ok)
	require.ErrorIs(t, err, smtesting.ErrTransitionNotTaken)

	ok, _ = smtesting.All(smtesting.StateIs("hidden"), smtesting.StateIs("visible")).Match(tm)
	assert.False(t, ok)

	ok, _ = smtesting.Any(smtesting.StateIs("a"), smtesting.StateIs("b")).Match(tm)
	assert.False(t, ok)

	assert.Equal(t, "(state is a or state is b)",
		smtesting.Any(smtesting.StateIs("a"), smtesting.StateIs("b")).Description())
}

func TestDeferred(t *testing.T) {
	t.Parallel()

	deferred := smtesting.NewDeferred()
	tm := smtesting.NewTestMachine(t, smtesting.CommonTestDefinitions.Promised(), statemachine.Callbacks{
		"promisedShow": deferred.Callback,
	})
	tm.MustStart()

	show := tm.TriggerAsync(t.Context(), "show")
	hide := tm.TriggerAsync(t.Context(), "hide")

	<-deferred.Started()
	assert.True(t, deferred.WasStarted())
	assert.Equal(t, "promisedShow", tm.CurrentState())
	assert.Equal(t, 2, tm.Pending())

	deferred.Resolve()

	_, err := show.Await()
	require.NoError(t, err)

	_, err = hide.Await()
	require.NoError(t, err)

	tm.RequireState("promisedHide")
	tm.AssertMatches(smtesting.CallbackWasCalled("promisedHide"))
}

func TestDeferred_Reject(t *testing.T) {
	t.Parallel()

	errRejected := errors.New("rejected")

	deferred := smtesting.NewDeferred()
	assert.False(t, deferred.WasStarted())

	deferred.Reject(errRejected)
	deferred.Resolve()

	require.ErrorIs(t, deferred.Callback(t.Context()), errRejected)
}

func TestSaveAndLoadTestDefinition(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "visibility.yaml")
	require.NoError(t, smtesting.SaveTestDefinition(path, smtesting.CommonTestDefinitions.Visibility()))

	def, err := smtesting.LoadTestDefinition(path)
	require.NoError(t, err)

	assert.Equal(t, "visibility", def.Name)
	assert.Equal(t, smtesting.CommonTestDefinitions.Visibility().Events(), def.Events())

	tr, ok := def.Transitions.Lookup("hidden", "show")
	require.True(t, ok)
	assert.Equal(t, "showTime", tr.Triggers)
}
