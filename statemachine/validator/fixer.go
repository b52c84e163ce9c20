package validator

import (
	"errors"
	"fmt"
	"slices"

	stateerrors "github.com/amp-labs/stateful/errors"
	"github.com/amp-labs/stateful/statemachine"
)

var (
	// ErrStateNotFound is returned when a fix targets a state the definition
	// does not declare.
	ErrStateNotFound = errors.New("state not found")
	// ErrStateAlreadyExists is returned when renaming to a declared state.
	ErrStateAlreadyExists = errors.New("state already exists")
	// ErrTransitionExists is returned when adding a declared transition.
	ErrTransitionExists = errors.New("transition already exists")
)

// Fix is an automatic correction for a validation issue. Fixes edit the
// definition in place, so they must run before a machine is built from it.
type Fix struct {
	Description string
	Apply       func(def *statemachine.Definition) error
}

// AddTransition creates a fix that declares from -> to on event.
func AddTransition(from, event, to string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Add transition '%s' from '%s' to '%s'", event, from, to),
		Apply: func(def *statemachine.Definition) error {
			if _, ok := def.Transitions.Lookup(from, event); ok {
				return fmt.Errorf("%w: %s/%s", ErrTransitionExists, from, event)
			}

			return def.Transitions.Add(from, event, statemachine.Transition{EnterState: to})
		},
	}
}

// RemoveState creates a fix that deletes every transition into or out of
// state, and its configuration.
func RemoveState(state string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove state '%s' and its transitions", state),
		Apply: func(def *statemachine.Definition) error {
			if !def.HasState(state) || state == statemachine.InitState {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, state)
			}

			var errs stateerrors.Collection

			for _, entry := range def.Transitions.Entries() {
				if entry.From == state || entry.EnterState == state {
					errs.Addf(def.Transitions.Remove(entry.From, entry.Event), "remove %s/%s", entry.From, entry.Event)
				}
			}

			delete(def.States, state)

			return errs.GetError()
		},
	}
}

// RemoveStateConfig creates a fix that deletes the configuration of state.
func RemoveStateConfig(state string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove configuration of state '%s'", state),
		Apply: func(def *statemachine.Definition) error {
			if _, ok := def.States[state]; !ok {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, state)
			}

			delete(def.States, state)

			return nil
		},
	}
}

// RenameState creates a fix that renames a state everywhere it appears.
// Transitions are re-added in their original order.
func RenameState(oldName, newName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Rename state from '%s' to '%s'", oldName, newName),
		Apply: func(def *statemachine.Definition) error {
			if !def.HasState(oldName) || oldName == statemachine.InitState {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, oldName)
			}

			if def.HasState(newName) {
				return fmt.Errorf("%w: '%s'", ErrStateAlreadyExists, newName)
			}

			rename := func(s string) string {
				if s == oldName {
					return newName
				}

				return s
			}

			table := statemachine.NewTable()

			var errs stateerrors.Collection

			for _, entry := range def.Transitions.Entries() {
				tr := entry.Transition
				tr.EnterState = rename(tr.EnterState)
				errs.Add(table.Add(rename(entry.From), entry.Event, tr))
			}

			if errs.HasError() {
				return errs.GetError()
			}

			if cfg, ok := def.States[oldName]; ok {
				delete(def.States, oldName)
				def.States[newName] = cfg
			}

			def.StartState = rename(def.StartState)
			def.Transitions = table

			return nil
		},
	}
}

// ApplyFixes applies every fix attached to the result's errors and warnings
// and returns how many succeeded. Failures are joined into the error.
func ApplyFixes(def *statemachine.Definition, result ValidationResult) (int, error) {
	fixes := make([]*Fix, 0, len(result.Errors)+len(result.Warnings))

	for _, e := range result.Errors {
		fixes = append(fixes, e.Fix)
	}

	for _, w := range result.Warnings {
		fixes = append(fixes, w.Fix)
	}

	fixes = slices.DeleteFunc(fixes, func(f *Fix) bool { return f == nil || f.Apply == nil })

	var (
		errs    stateerrors.Collection
		applied int
	)

	for _, fix := range fixes {
		if err := fix.Apply(def); err != nil {
			errs.Addf(err, "%s", fix.Description)

			continue
		}

		applied++
	}

	return applied, errs.GetError()
}
