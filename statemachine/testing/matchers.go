package testing

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Matcher errors.
var (
	ErrStateMismatch      = errors.New("machine is not in the expected state")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrEventNotEmitted    = errors.New("event was not emitted")
	ErrCallbackNotCalled  = errors.New("callback was not called")
	ErrNoMatchersPassed   = errors.New("no matchers passed")
)

// Matcher checks a property of a test machine.
type Matcher interface {
	Match(tm *TestMachine) (bool, error)
	Description() string
}

// StateIs matches when the machine's current state is state.
func StateIs(state string) Matcher {
	return &stateMatcher{state: state}
}

type stateMatcher struct {
	state string
}

func (m *stateMatcher) Match(tm *TestMachine) (bool, error) {
	if got := tm.CurrentState(); got != m.state {
		return false, fmt.Errorf("%w: want %s, got %s", ErrStateMismatch, m.state, got)
	}

	return true, nil
}

func (m *stateMatcher) Description() string {
	return "state is " + m.state
}

// TransitionWasTaken matches when history holds a from -> to change.
func TransitionWasTaken(from, to string) Matcher {
	return &transitionTakenMatcher{from: from, to: to}
}

type transitionTakenMatcher struct {
	from string
	to   string
}

func (m *transitionTakenMatcher) Match(tm *TestMachine) (bool, error) {
	for _, entry := range tm.History() {
		if entry.From == m.from && entry.To == m.to {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: %s -> %s", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher) Description() string {
	return fmt.Sprintf("transition %s -> %s was taken", m.from, m.to)
}

// EventWasEmitted matches when the recorder saw an event called name.
func EventWasEmitted(name string) Matcher {
	return &recordedMatcher{name: name, events: true}
}

// CallbackWasCalled matches when the recorder saw a call of name.
func CallbackWasCalled(name string) Matcher {
	return &recordedMatcher{name: name}
}

type recordedMatcher struct {
	name   string
	events bool
}

func (m *recordedMatcher) Match(tm *TestMachine) (bool, error) {
	records := tm.Recorder.Calls()
	notFound := ErrCallbackNotCalled

	if m.events {
		records = tm.Recorder.Events()
		notFound = ErrEventNotEmitted
	}

	if slices.ContainsFunc(records, func(r []any) bool { return len(r) > 0 && r[0] == m.name }) {
		return true, nil
	}

	return false, fmt.Errorf("%w: %s", notFound, m.name)
}

func (m *recordedMatcher) Description() string {
	if m.events {
		return "event " + m.name + " was emitted"
	}

	return "callback " + m.name + " was called"
}

// All matches when every matcher matches.
func All(matchers ...Matcher) Matcher {
	return &allMatcher{matchers: matchers}
}

type allMatcher struct {
	matchers []Matcher
}

func (m *allMatcher) Match(tm *TestMachine) (bool, error) {
	for _, matcher := range m.matchers {
		if ok, err := matcher.Match(tm); !ok {
			return false, err
		}
	}

	return true, nil
}

func (m *allMatcher) Description() string {
	return describe(m.matchers, " and ")
}

// Any matches when at least one matcher matches.
func Any(matchers ...Matcher) Matcher {
	return &anyMatcher{matchers: matchers}
}

type anyMatcher struct {
	matchers []Matcher
}

func (m *anyMatcher) Match(tm *TestMachine) (bool, error) {
	for _, matcher := range m.matchers {
		if ok, _ := matcher.Match(tm); ok {
			return true, nil
		}
	}

	return false, ErrNoMatchersPassed
}

func (m *anyMatcher) Description() string {
	return describe(m.matchers, " or ")
}

func describe(matchers []Matcher, sep string) string {
	parts := make([]string, 0, len(matchers))
	for _, matcher := range matchers {
		parts = append(parts, matcher.Description())
	}

	return "(" + strings.Join(parts, sep) + ")"
}

// AssertMatches fails the test for every matcher that does not match.
func (tm *TestMachine) AssertMatches(matchers ...Matcher) {
	tm.t.Helper()

	for _, matcher := range matchers {
		if ok, err := matcher.Match(tm); !ok {
			tm.t.Errorf("expected %s: %v", matcher.Description(), err)
		}
	}
}
