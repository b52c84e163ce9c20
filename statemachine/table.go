package statemachine

import (
	"fmt"
	"slices"

	"go.uber.org/atomic"
	"gopkg.in/yaml.v3"
)

// Transition is the definition stored under a (source state, event) key.
type Transition struct {
	// EnterState is the target state.
	EnterState string `json:"enterState" yaml:"enterState"`

	// Callbacks run, in order, after the state is committed and before the
	// target's enter callbacks.
	Callbacks []string `json:"callbacks,omitempty" yaml:"callbacks,omitempty"`

	// Triggers names an event fired with the same arguments once this
	// transition has committed, before the target's enter callbacks.
	Triggers string `json:"triggers,omitempty" yaml:"triggers,omitempty"`
}

// IsPlain reports whether the transition is a bare target state.
func (t Transition) IsPlain() bool {
	return len(t.Callbacks) == 0 && t.Triggers == ""
}

// Entry is one row of a Table.
type Entry struct {
	From  string
	Event string
	Transition
}

type tableRow struct {
	events []string
	defs   map[string]Transition
}

// Table is the transition table of a machine: source state -> event ->
// Transition, including the Wildcard source. Declaration order is kept for
// both source states and the events under each of them.
//
// A Table is frozen once a Machine has been built from it.
type Table struct {
	sources []string
	rows    map[string]*tableRow
	frozen  atomic.Bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{rows: make(map[string]*tableRow)}
}

// Add declares a transition. Wildcard entries must be plain targets.
func (t *Table) Add(from, event string, tr Transition) error {
	if t.frozen.Load() {
		return ErrTableFrozen
	}

	switch {
	case from == "":
		return ErrSourceStateRequired
	case event == "":
		return fmt.Errorf("state %s: %w", from, ErrEventNameRequired)
	case tr.EnterState == "":
		return fmt.Errorf("state %s, event %s: %w", from, event, ErrEnterStateRequired)
	case tr.EnterState == Wildcard:
		return fmt.Errorf("state %s, event %s: %w", from, event, ErrWildcardTarget)
	case from == Wildcard && !tr.IsPlain():
		return fmt.Errorf("event %s: %w", event, ErrWildcardTransition)
	}

	if slices.Contains(tr.Callbacks, "") {
		return fmt.Errorf("state %s, event %s: %w", from, event, ErrEmptyCallbackName)
	}

	if t.rows == nil {
		t.rows = make(map[string]*tableRow)
	}

	row, ok := t.rows[from]
	if !ok {
		row = &tableRow{defs: make(map[string]Transition)}
		t.rows[from] = row
		t.sources = append(t.sources, from)
	}

	if _, dup := row.defs[event]; dup {
		return fmt.Errorf("state %s, event %s: %w", from, event, ErrDuplicateTransition)
	}

	row.events = append(row.events, event)
	row.defs[event] = Transition{
		EnterState: tr.EnterState,
		Callbacks:  slices.Clone(tr.Callbacks),
		Triggers:   tr.Triggers,
	}

	return nil
}

// Remove deletes the (from, event) entry.
func (t *Table) Remove(from, event string) error {
	if t.frozen.Load() {
		return ErrTableFrozen
	}

	row, ok := t.rows[from]
	if !ok {
		return fmt.Errorf("state %s, event %s: %w", from, event, ErrUnknownTransition)
	}

	if _, ok := row.defs[event]; !ok {
		return fmt.Errorf("state %s, event %s: %w", from, event, ErrUnknownTransition)
	}

	delete(row.defs, event)
	row.events = slices.DeleteFunc(row.events, func(e string) bool { return e == event })

	if len(row.events) == 0 {
		delete(t.rows, from)
		t.sources = slices.DeleteFunc(t.sources, func(s string) bool { return s == from })
	}

	return nil
}

// Lookup returns the exact entry for (from, event), without wildcard fallback.
func (t *Table) Lookup(from, event string) (Transition, bool) {
	row, ok := t.rows[from]
	if !ok {
		return Transition{}, false
	}

	tr, ok := row.defs[event]

	return tr, ok
}

// Resolve finds the transition that applies to event in state current: the
// exact entry if one exists, else the wildcard entry. It never mutates the
// table.
func (t *Table) Resolve(current, event string) (Transition, bool) {
	if tr, ok := t.Lookup(current, event); ok {
		return tr, true
	}

	return t.Lookup(Wildcard, event)
}

// Sources returns the declared source states, wildcard included, in
// declaration order.
func (t *Table) Sources() []string {
	return slices.Clone(t.sources)
}

// EventsFrom returns the events declared under source, in declaration order.
func (t *Table) EventsFrom(source string) []string {
	row, ok := t.rows[source]
	if !ok {
		return nil
	}

	return slices.Clone(row.events)
}

// Events returns every event name in the table without duplicates, ordered
// by first-declared source state, then declaration order within it.
func (t *Table) Events() []string {
	seen := make(map[string]struct{})
	events := make([]string, 0, len(t.sources))

	for _, source := range t.sources {
		for _, event := range t.rows[source].events {
			if _, ok := seen[event]; ok {
				continue
			}

			seen[event] = struct{}{}
			events = append(events, event)
		}
	}

	return events
}

// Entries returns all rows in declaration order.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, t.Len())

	for _, source := range t.sources {
		row := t.rows[source]
		for _, event := range row.events {
			entries = append(entries, Entry{From: source, Event: event, Transition: row.defs[event]})
		}
	}

	return entries
}

// Len returns the number of declared transitions.
func (t *Table) Len() int {
	n := 0
	for _, row := range t.rows {
		n += len(row.events)
	}

	return n
}

func (t *Table) freeze() {
	t.frozen.Store(true)
}

// UnmarshalYAML decodes the nested mapping form
//
//	visible:
//	  hide: hidden
//	  fade: {enterState: hidden, callbacks: [dim], triggers: faded}
//	"*":
//	  panic: panicking
//
// keeping the order keys appear in the document.
func (t *Table) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %w: transitions must be a mapping", value.Line, ErrInvalidDefinition)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		from := value.Content[i].Value
		events := value.Content[i+1]

		if events.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: %w: events of state %s must be a mapping",
				events.Line, ErrInvalidDefinition, from)
		}

		for j := 0; j+1 < len(events.Content); j += 2 {
			event := events.Content[j].Value
			node := events.Content[j+1]

			var tr Transition

			switch node.Kind { //nolint:exhaustive
			case yaml.ScalarNode:
				tr.EnterState = node.Value
			case yaml.MappingNode:
				if err := node.Decode(&tr); err != nil {
					return fmt.Errorf("line %d: %w", node.Line, err)
				}
			default:
				return fmt.Errorf("line %d: %w: transition %s/%s must be a state name or a mapping",
					node.Line, ErrInvalidDefinition, from, event)
			}

			if err := t.Add(from, event, tr); err != nil {
				return fmt.Errorf("line %d: %w", node.Line, err)
			}
		}
	}

	return nil
}

// MarshalYAML renders the table back to the nested mapping form, emitting
// plain transitions as bare state names.
func (t *Table) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	for _, source := range t.sources {
		row := t.rows[source]
		events := &yaml.Node{Kind: yaml.MappingNode}

		for _, event := range row.events {
			tr := row.defs[event]

			var value yaml.Node
			if tr.IsPlain() {
				value = yaml.Node{Kind: yaml.ScalarNode, Value: tr.EnterState}
			} else if err := value.Encode(tr); err != nil {
				return nil, err
			}

			events.Content = append(events.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: event}, &value)
		}

		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: source}, events)
	}

	return root, nil
}
