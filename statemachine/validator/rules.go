package validator

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"facette.io/natsort"
	"github.com/amp-labs/stateful/statemachine"
)

// Issue codes.
const (
	CodeLoadFailed        = "LOAD_FAILED"
	CodeInvalidDefinition = "INVALID_DEFINITION"
	CodeUnknownCallback   = "UNKNOWN_CALLBACK"
	CodeUnreachableState  = "UNREACHABLE_STATE"
	CodeDeadEnd           = "DEAD_END_STATE"
	CodeDanglingTrigger   = "DANGLING_TRIGGER"
	CodeShadowedWildcard  = "SHADOWED_WILDCARD"
	CodeUnusedStateConfig = "UNUSED_STATE_CONFIG"
	CodeSpanName          = "SPAN_NAME"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// RuleResult contains the errors and warnings found by one rule.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule checks a definition for one kind of issue. Host may be nil.
type Rule interface {
	Name() string
	Severity() Severity
	Check(def *statemachine.Definition, host statemachine.Host) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&unknownCallbackRule{},
		&unreachableStateRule{},
		&deadEndRule{},
		&danglingTriggerRule{},
		&shadowedWildcardRule{},
		&unusedStateConfigRule{},
		&spanNameRule{},
	}
}

var (
	rulesMu sync.RWMutex
	custom  []Rule
)

// RegisterRule adds a rule that every validation runs after its own rules.
func RegisterRule(rule Rule) {
	rulesMu.Lock()
	defer rulesMu.Unlock()

	custom = append(custom, rule)
}

func registeredRules() []Rule {
	rulesMu.RLock()
	defer rulesMu.RUnlock()

	return slices.Clone(custom)
}

// unknownCallbackRule reports callback names the host cannot resolve. The
// engine would fail with ErrUnknownCallback when the step runs.
type unknownCallbackRule struct{}

func (r *unknownCallbackRule) Name() string { return "UnknownCallback" }

func (r *unknownCallbackRule) Severity() Severity { return SeverityError }

func (r *unknownCallbackRule) Check(def *statemachine.Definition, host statemachine.Host) RuleResult {
	var result RuleResult

	if host == nil {
		return result
	}

	report := func(name string, loc Location, where string) {
		if _, ok := host.Callback(name); ok {
			return
		}

		result.Errors = append(result.Errors, ValidationError{
			Code:     CodeUnknownCallback,
			Message:  fmt.Sprintf("Callback '%s' (%s) is not provided by the host", name, where),
			Location: loc,
		})
	}

	for _, entry := range def.Transitions.Entries() {
		for _, name := range entry.Callbacks {
			report(name, Location{State: entry.From, Event: entry.Event}, "transition callback")
		}
	}

	for _, state := range sortedStateConfigs(def) {
		cfg := def.States[state]

		for _, name := range cfg.Leave {
			report(name, Location{State: state}, "leave callback")
		}

		for _, name := range cfg.Enter {
			report(name, Location{State: state}, "enter callback")
		}
	}

	return result
}

// reachable returns the states reachable from the start of def, or nil if
// the start cannot be determined.
func reachable(def *statemachine.Definition) map[string]bool {
	start := def.StartState
	if start == "" {
		if len(def.Transitions.EventsFrom(statemachine.InitState)) == 0 {
			return nil
		}

		start = statemachine.InitState
	}

	seen := map[string]bool{start: true}
	queue := []string{start}

	for _, event := range def.Transitions.EventsFrom(statemachine.Wildcard) {
		tr, _ := def.Transitions.Lookup(statemachine.Wildcard, event)
		if !seen[tr.EnterState] {
			seen[tr.EnterState] = true
			queue = append(queue, tr.EnterState)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, event := range def.Transitions.EventsFrom(current) {
			tr, _ := def.Transitions.Lookup(current, event)
			if !seen[tr.EnterState] {
				seen[tr.EnterState] = true
				queue = append(queue, tr.EnterState)
			}
		}
	}

	return seen
}

// unreachableStateRule reports states no chain of events leads to from the
// start state. They can still be entered with ToState.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string { return "UnreachableState" }

func (r *unreachableStateRule) Severity() Severity { return SeverityWarning }

func (r *unreachableStateRule) Check(def *statemachine.Definition, _ statemachine.Host) RuleResult {
	var result RuleResult

	seen := reachable(def)
	if seen == nil {
		return result
	}

	inTable := tableStates(def)

	for _, state := range def.StateNames() {
		if seen[state] || state == statemachine.InitState {
			continue
		}

		warning := ValidationWarning{
			Code:     CodeUnreachableState,
			Message:  fmt.Sprintf("State '%s' cannot be reached by events from the start state", state),
			Location: Location{State: state},
		}

		// Config-only states are fixed by the unused config rule.
		if inTable[state] {
			warning.Fix = RemoveState(state)
		}

		result.Warnings = append(result.Warnings, warning)
	}

	return result
}

// deadEndRule reports states that no event can leave.
type deadEndRule struct{}

func (r *deadEndRule) Name() string { return "DeadEnd" }

func (r *deadEndRule) Severity() Severity { return SeverityWarning }

func (r *deadEndRule) Check(def *statemachine.Definition, _ statemachine.Host) RuleResult {
	var result RuleResult

	if len(def.Transitions.EventsFrom(statemachine.Wildcard)) > 0 {
		return result
	}

	for _, state := range def.StateNames() {
		if state == statemachine.InitState || len(def.Transitions.EventsFrom(state)) > 0 {
			continue
		}

		result.Warnings = append(result.Warnings, ValidationWarning{
			Code:     CodeDeadEnd,
			Message:  fmt.Sprintf("State '%s' has no outgoing transitions", state),
			Location: Location{State: state},
		})
	}

	return result
}

// danglingTriggerRule reports triggers cascades that resolve to nothing from
// the target state, which makes the cascade a no-op.
type danglingTriggerRule struct{}

func (r *danglingTriggerRule) Name() string { return "DanglingTrigger" }

func (r *danglingTriggerRule) Severity() Severity { return SeverityWarning }

func (r *danglingTriggerRule) Check(def *statemachine.Definition, _ statemachine.Host) RuleResult {
	var result RuleResult

	for _, entry := range def.Transitions.Entries() {
		if entry.Triggers == "" {
			continue
		}

		if _, ok := def.Transitions.Resolve(entry.EnterState, entry.Triggers); ok {
			continue
		}

		result.Warnings = append(result.Warnings, ValidationWarning{
			Code: CodeDanglingTrigger,
			Message: fmt.Sprintf("Event '%s' triggered after '%s' has no transition from '%s'",
				entry.Triggers, entry.Event, entry.EnterState),
			Location: Location{State: entry.From, Event: entry.Event},
		})
	}

	return result
}

// shadowedWildcardRule notes exact entries that take precedence over a
// wildcard entry for the same event.
type shadowedWildcardRule struct{}

func (r *shadowedWildcardRule) Name() string { return "ShadowedWildcard" }

func (r *shadowedWildcardRule) Severity() Severity { return SeverityInfo }

func (r *shadowedWildcardRule) Check(def *statemachine.Definition, _ statemachine.Host) RuleResult {
	var result RuleResult

	for _, event := range def.Transitions.EventsFrom(statemachine.Wildcard) {
		wild, _ := def.Transitions.Lookup(statemachine.Wildcard, event)

		for _, source := range def.Transitions.Sources() {
			if source == statemachine.Wildcard {
				continue
			}

			exact, ok := def.Transitions.Lookup(source, event)
			if !ok || exact.EnterState == wild.EnterState {
				continue
			}

			result.Warnings = append(result.Warnings, ValidationWarning{
				Code: CodeShadowedWildcard,
				Message: fmt.Sprintf("In state '%s', event '%s' goes to '%s' instead of the wildcard target '%s'",
					source, event, exact.EnterState, wild.EnterState),
				Location: Location{State: source, Event: event},
			})
		}
	}

	return result
}

// unusedStateConfigRule reports per-state configuration for states the
// transition table never mentions.
type unusedStateConfigRule struct{}

func (r *unusedStateConfigRule) Name() string { return "UnusedStateConfig" }

func (r *unusedStateConfigRule) Severity() Severity { return SeverityWarning }

func (r *unusedStateConfigRule) Check(def *statemachine.Definition, _ statemachine.Host) RuleResult {
	var result RuleResult

	mentioned := tableStates(def)

	for _, state := range sortedStateConfigs(def) {
		if mentioned[state] || state == statemachine.InitState {
			continue
		}

		result.Warnings = append(result.Warnings, ValidationWarning{
			Code:     CodeUnusedStateConfig,
			Message:  fmt.Sprintf("State '%s' is configured but no transition enters or leaves it", state),
			Location: Location{State: state},
			Fix:      RemoveStateConfig(state),
		})
	}

	return result
}

// tableStates returns every state the transition table mentions.
func tableStates(def *statemachine.Definition) map[string]bool {
	mentioned := make(map[string]bool)
	for _, entry := range def.Transitions.Entries() {
		mentioned[entry.From] = true
		mentioned[entry.EnterState] = true
	}

	return mentioned
}

func sortedStateConfigs(def *statemachine.Definition) []string {
	states := make([]string, 0, len(def.States))
	for state := range def.States {
		states = append(states, state)
	}

	natsort.Sort(states)

	return states
}

func naturalCompare(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	case natsort.Compare(a, b):
		return -1
	default:
		return 1
	}
}

// sortIssues orders issues by code, then naturally by state and event.
func sortIssues[T any](issues []T, key func(T) (string, Location)) {
	slices.SortStableFunc(issues, func(a, b T) int {
		codeA, locA := key(a)
		codeB, locB := key(b)

		if c := strings.Compare(codeA, codeB); c != 0 {
			return c
		}

		if c := naturalCompare(locA.State, locB.State); c != 0 {
			return c
		}

		return naturalCompare(locA.Event, locB.Event)
	})
}
