// Package visualizer generates Mermaid state diagrams from state machine
// definitions.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/amp-labs/stateful/statemachine"
)

// ErrDefinitionNil is returned when no definition is given.
var ErrDefinitionNil = errors.New("definition cannot be nil")

const wildcardNode = "any_state"

// GenerateMermaid converts a Definition to a Mermaid state diagram.
func GenerateMermaid(def *statemachine.Definition) (string, error) {
	return GenerateMermaidWithOptions(def, DefaultOptions())
}

// GenerateMermaidFromFile loads a definition from a file and generates a
// Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return "", fmt.Errorf("failed to load definition: %w", err)
	}

	return GenerateMermaid(def)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
func GenerateMermaidWithOptions(def *statemachine.Definition, opts Options) (string, error) {
	if def == nil {
		return "", ErrDefinitionNil
	}

	if err := def.Validate(); err != nil {
		return "", err
	}

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	if opts.Theme != "" && opts.Theme != "default" {
		fmt.Fprintf(&sb, "%%%%{init: {'theme': '%s'}}%%%%\n", opts.Theme)
	}

	sb.WriteString("stateDiagram-v2\n")

	if opts.Direction != "" {
		fmt.Fprintf(&sb, "    direction %s\n", opts.Direction)
	}

	start := def.StartState
	if start == "" {
		start = statemachine.InitState
	}

	states := slices.DeleteFunc(def.StateNames(), func(state string) bool {
		return state == statemachine.InitState && start != statemachine.InitState &&
			len(def.Transitions.EventsFrom(state)) == 0
	})

	// Declare every state so names Mermaid cannot use as ids still render.
	for _, state := range states {
		label := state
		if cfg := def.State(state); opts.ShowCallbacks && (len(cfg.Enter) > 0 || len(cfg.Leave) > 0) {
			label = stateLabel(state, cfg)
		}

		fmt.Fprintf(&sb, "    state \"%s\" as %s\n", label, nodeID(state))
	}

	fmt.Fprintf(&sb, "    [*] --> %s\n", nodeID(start))

	wildcards := def.Transitions.EventsFrom(statemachine.Wildcard)
	if !opts.ExpandWildcards && len(wildcards) > 0 {
		fmt.Fprintf(&sb, "    state \"*\" as %s\n", wildcardNode)
	}

	highlight := make(map[string]bool)
	for _, state := range opts.HighlightPath {
		highlight[state] = true
	}

	for _, state := range states {
		for _, event := range def.Transitions.EventsFrom(state) {
			tr, _ := def.Transitions.Lookup(state, event)
			writeEdge(&sb, nodeID(state), event, tr, opts)
		}

		if opts.ExpandWildcards {
			for _, event := range wildcards {
				if _, ok := def.Transitions.Lookup(state, event); ok {
					continue
				}

				tr, _ := def.Transitions.Lookup(statemachine.Wildcard, event)
				writeEdge(&sb, nodeID(state), event, tr, opts)
			}
		}

		terminal := len(wildcards) == 0 && len(def.Transitions.EventsFrom(state)) == 0

		switch {
		case highlight[state]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", nodeID(state))
		case terminal:
			fmt.Fprintf(&sb, "    class %s terminalState\n", nodeID(state))
		case len(def.State(state).Enter) > 0 || len(def.State(state).Leave) > 0:
			fmt.Fprintf(&sb, "    class %s callbackState\n", nodeID(state))
		}

		if terminal && state != start {
			fmt.Fprintf(&sb, "    %s --> [*]\n", nodeID(state))
		}
	}

	if !opts.ExpandWildcards {
		for _, event := range wildcards {
			tr, _ := def.Transitions.Lookup(statemachine.Wildcard, event)
			writeEdge(&sb, wildcardNode, event, tr, opts)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef callbackState fill:#e1f5ff,stroke:#01579b,stroke-width:2px\n")
	sb.WriteString("    classDef terminalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

func writeEdge(sb *strings.Builder, from, event string, tr statemachine.Transition, opts Options) {
	label := event

	if opts.ShowCallbacks && len(tr.Callbacks) > 0 {
		label += " / " + strings.Join(tr.Callbacks, ", ")
	}

	if opts.ShowTriggers && tr.Triggers != "" {
		label += " ⇒ " + tr.Triggers
	}

	fmt.Fprintf(sb, "    %s --> %s: %s\n", from, nodeID(tr.EnterState), label)
}

func stateLabel(state string, cfg statemachine.StateConfig) string {
	parts := []string{state}

	if len(cfg.Enter) > 0 {
		parts = append(parts, "enter: "+strings.Join(cfg.Enter, ", "))
	}

	if len(cfg.Leave) > 0 {
		parts = append(parts, "leave: "+strings.Join(cfg.Leave, ", "))
	}

	return strings.Join(parts, "\\n")
}

// nodeID maps a state name onto the characters Mermaid accepts in ids.
func nodeID(state string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, state)
}
