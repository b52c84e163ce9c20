package testing

import (
	"testing"

	"github.com/amp-labs/stateful/statemachine"
	"github.com/stretchr/testify/assert"
)

// Step is one event of a scenario.
type Step struct {
	Event string
	Args  []any
}

// Scenario drives a machine through a sequence of events.
type Scenario struct {
	Name       string
	Definition func() *statemachine.Definition
	StartState string
	Steps      []Step
	WantState  string
	// WantEvents, when set, is compared to the recorded event stream.
	WantEvents [][]any
	// WantCalls, when set, is compared to the recorded callback calls.
	WantCalls [][]any
	Matchers  []Matcher
}

// RunScenario runs scenario as a subtest.
func RunScenario(t *testing.T, scenario Scenario) {
	t.Helper()
	t.Run(scenario.Name, func(t *testing.T) {
		t.Parallel()

		tm := NewTestMachine(t, scenario.Definition(), nil)

		var opts []statemachine.StartOption
		if scenario.StartState != "" {
			opts = append(opts, statemachine.WithStartState(scenario.StartState))
		}

		tm.MustStart(opts...)
		tm.Recorder.Reset()

		for _, step := range scenario.Steps {
			tm.MustTrigger(step.Event, step.Args...)
		}

		tm.RequireState(scenario.WantState)

		if scenario.WantEvents != nil {
			assert.Equal(t, scenario.WantEvents, tm.Recorder.Events())
		}

		if scenario.WantCalls != nil {
			assert.Equal(t, scenario.WantCalls, tm.Recorder.Calls())
		}

		tm.AssertMatches(scenario.Matchers...)
	})
}

// HideScenario hides a visible machine with one argument.
func HideScenario() Scenario {
	return Scenario{
		Name:       "hide",
		Definition: CommonTestDefinitions.Visibility,
		StartState: "visible",
		Steps:      []Step{{Event: "hide", Args: []any{"behind a tree"}}},
		WantState:  "hidden",
		WantEvents: [][]any{
			{"hide", "behind a tree"},
			{"leaveState:visible", "behind a tree"},
			{"transition", "visible", "hidden", "behind a tree"},
			{"enterState:hidden", "behind a tree"},
		},
	}
}

// CascadeScenario shows a hidden machine, which cascades into showTime.
func CascadeScenario() Scenario {
	return Scenario{
		Name:       "cascade",
		Definition: CommonTestDefinitions.Visibility,
		StartState: "hidden",
		Steps:      []Step{{Event: "show", Args: []any{"shamelessly", "your", "feet"}}},
		WantState:  "visible",
		WantEvents: [][]any{
			{"show", "shamelessly", "your", "feet"},
			{"leaveState:hidden", "shamelessly", "your", "feet"},
			{"transition", "hidden", "visible", "shamelessly", "your", "feet"},
			{"showTime", "shamelessly", "your", "feet"},
			{"enterState:visible", "shamelessly", "your", "feet"},
		},
	}
}

// WildcardScenario panics out of any state.
func WildcardScenario() Scenario {
	return Scenario{
		Name:       "wildcard",
		Definition: CommonTestDefinitions.Visibility,
		StartState: "visible",
		Steps:      []Step{{Event: "panic"}},
		WantState:  "panicking",
		Matchers:   []Matcher{TransitionWasTaken("visible", "panicking")},
	}
}
