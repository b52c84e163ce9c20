package validator

import (
	"testing"

	"github.com/amp-labs/stateful/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orphaned(t *testing.T) *statemachine.Definition {
	t.Helper()

	def, err := statemachine.NewBuilder("orphaned").
		WithStartState("a").
		AddTransition("a", "go", "b").
		AddTransition("b", "go", "a").
		AddTransition("orphan", "go", "a").
		AddState("orphan", statemachine.StateConfig{ClassName: "lost"}).
		AddState("ghost", statemachine.StateConfig{ClassName: "ghost"}).
		Build()
	require.NoError(t, err)

	return def
}

func TestApplyFixes(t *testing.T) {
	t.Parallel()

	def := orphaned(t)

	result := Validate(def, nil)
	require.True(t, result.HasWarnings())

	applied, err := ApplyFixes(def, result)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	assert.False(t, def.HasState("orphan"))
	assert.False(t, def.HasState("ghost"))
	assert.Equal(t, 2, def.Transitions.Len())

	after := Validate(def, nil)
	assert.True(t, after.Valid)
	assert.False(t, after.HasWarnings(), after.String())
}

func TestApplyFixes_ReportsFailures(t *testing.T) {
	t.Parallel()

	def := orphaned(t)
	result := ValidationResult{
		Errors: []ValidationError{
			{Code: "X", Fix: RemoveStateConfig("nope")},
			{Code: "Y"},
		},
		Warnings: []ValidationWarning{
			{Code: "Z", Fix: RemoveStateConfig("ghost")},
		},
	}

	applied, err := ApplyFixes(def, result)
	require.ErrorIs(t, err, ErrStateNotFound)
	assert.Equal(t, 1, applied)
	assert.Contains(t, err.Error(), "Remove configuration of state 'nope'")
}

func TestRenameState(t *testing.T) {
	t.Parallel()

	def := orphaned(t)

	require.NoError(t, RenameState("a", "alpha").Apply(def))

	assert.Equal(t, "alpha", def.StartState)
	assert.False(t, def.HasState("a"))

	tr, ok := def.Transitions.Lookup("alpha", "go")
	require.True(t, ok)
	assert.Equal(t, "b", tr.EnterState)

	tr, ok = def.Transitions.Lookup("orphan", "go")
	require.True(t, ok)
	assert.Equal(t, "alpha", tr.EnterState)

	assert.Equal(t, []string{"alpha", "b", "orphan"}, def.Transitions.Sources())
}

func TestRenameState_Errors(t *testing.T) {
	t.Parallel()

	def := orphaned(t)

	require.ErrorIs(t, RenameState("missing", "x").Apply(def), ErrStateNotFound)
	require.ErrorIs(t, RenameState("a", "b").Apply(def), ErrStateAlreadyExists)
	require.ErrorIs(t, RenameState(statemachine.InitState, "x").Apply(def), ErrStateNotFound)
}

func TestAddTransition(t *testing.T) {
	t.Parallel()

	def := orphaned(t)

	require.NoError(t, AddTransition("b", "stop", "done").Apply(def))
	assert.True(t, def.HasState("done"))
	require.ErrorIs(t, AddTransition("b", "stop", "done").Apply(def), ErrTransitionExists)
}
