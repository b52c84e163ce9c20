package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTable_ResolveExactBeforeWildcard(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Add("visible", "panic", Transition{EnterState: "calm"}))
	require.NoError(t, table.Add(Wildcard, "panic", Transition{EnterState: "panicking"}))

	tr, ok := table.Resolve("visible", "panic")
	require.True(t, ok)
	assert.Equal(t, "calm", tr.EnterState)

	tr, ok = table.Resolve("hidden", "panic")
	require.True(t, ok)
	assert.Equal(t, "panicking", tr.EnterState)

	_, ok = table.Resolve("hidden", "hide")
	assert.False(t, ok)
}

func TestTable_AddRejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    string
		event   string
		tr      Transition
		wantErr error
	}{
		{name: "no source", event: "e", tr: Transition{EnterState: "s"}, wantErr: ErrSourceStateRequired},
		{name: "no event", from: "a", tr: Transition{EnterState: "s"}, wantErr: ErrEventNameRequired},
		{name: "no target", from: "a", event: "e", wantErr: ErrEnterStateRequired},
		{name: "wildcard target", from: "a", event: "e", tr: Transition{EnterState: Wildcard}, wantErr: ErrWildcardTarget},
		{
			name:    "wildcard with callbacks",
			from:    Wildcard,
			event:   "e",
			tr:      Transition{EnterState: "s", Callbacks: []string{"cb"}},
			wantErr: ErrWildcardTransition,
		},
		{
			name:    "empty callback name",
			from:    "a",
			event:   "e",
			tr:      Transition{EnterState: "s", Callbacks: []string{""}},
			wantErr: ErrEmptyCallbackName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := NewTable().Add(tt.from, tt.event, tt.tr)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTable_DuplicateAndFrozen(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Add("a", "go", Transition{EnterState: "b"}))
	require.ErrorIs(t, table.Add("a", "go", Transition{EnterState: "c"}), ErrDuplicateTransition)

	table.freeze()
	require.ErrorIs(t, table.Add("b", "back", Transition{EnterState: "a"}), ErrTableFrozen)
}

func TestTable_EventsKeepDeclarationOrder(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Add(InitState, "initialized", Transition{EnterState: "visible"}))
	require.NoError(t, table.Add("visible", "hide", Transition{EnterState: "hidden"}))
	require.NoError(t, table.Add("hidden", "show", Transition{EnterState: "visible"}))
	require.NoError(t, table.Add("hidden", "hide", Transition{EnterState: "hidden"}))
	require.NoError(t, table.Add(Wildcard, "panic", Transition{EnterState: "panicking"}))

	assert.Equal(t, []string{"initialized", "hide", "show", "panic"}, table.Events())
	assert.Equal(t, []string{InitState, "visible", "hidden", Wildcard}, table.Sources())
	assert.Equal(t, []string{"show", "hide"}, table.EventsFrom("hidden"))
	assert.Equal(t, 5, table.Len())
}

func TestTable_AddCopiesCallbacks(t *testing.T) {
	t.Parallel()

	callbacks := []string{"one"}
	table := NewTable()
	require.NoError(t, table.Add("a", "go", Transition{EnterState: "b", Callbacks: callbacks}))

	callbacks[0] = "changed"

	tr, ok := table.Lookup("a", "go")
	require.True(t, ok)
	assert.Equal(t, []string{"one"}, tr.Callbacks)
}

func TestTable_YAMLShorthandAndOrder(t *testing.T) {
	t.Parallel()

	const doc = `
zeta:
  b: one
  a: {enterState: two, callbacks: [x, y], triggers: b}
alpha:
  c: zeta
`

	var table Table
	require.NoError(t, yaml.Unmarshal([]byte(doc), &table))

	assert.Equal(t, []string{"zeta", "alpha"}, table.Sources())
	assert.Equal(t, []string{"b", "a", "c"}, table.Events())

	tr, ok := table.Lookup("zeta", "b")
	require.True(t, ok)
	assert.Equal(t, Transition{EnterState: "one"}, tr)

	tr, ok = table.Lookup("zeta", "a")
	require.True(t, ok)
	assert.Equal(t, Transition{EnterState: "two", Callbacks: []string{"x", "y"}, Triggers: "b"}, tr)
}

func TestTable_YAMLRoundTrip(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Add("visible", "hide", Transition{EnterState: "hidden", Callbacks: []string{"dim"}}))
	require.NoError(t, table.Add("hidden", "show", Transition{EnterState: "visible"}))

	data, err := yaml.Marshal(table)
	require.NoError(t, err)

	var decoded Table
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, table.Entries(), decoded.Entries())
}

func TestTable_YAMLRejectsBadShapes(t *testing.T) {
	t.Parallel()

	var table Table

	err := yaml.Unmarshal([]byte("- a\n- b\n"), &table)
	require.ErrorIs(t, err, ErrInvalidDefinition)

	err = yaml.Unmarshal([]byte("a: [b]\n"), &table)
	require.ErrorIs(t, err, ErrInvalidDefinition)

	err = yaml.Unmarshal([]byte("a:\n  go: [b]\n"), &table)
	require.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestTable_Remove(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Add("a", "go", Transition{EnterState: "b"}))
	require.NoError(t, table.Add("a", "stay", Transition{EnterState: "a"}))
	require.NoError(t, table.Add("b", "back", Transition{EnterState: "a"}))

	require.NoError(t, table.Remove("a", "go"))
	assert.Equal(t, []string{"stay"}, table.EventsFrom("a"))

	require.NoError(t, table.Remove("b", "back"))
	assert.Equal(t, []string{"a"}, table.Sources())

	require.ErrorIs(t, table.Remove("b", "back"), ErrUnknownTransition)
	require.ErrorIs(t, table.Remove("a", "missing"), ErrUnknownTransition)
}
