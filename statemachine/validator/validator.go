// Package validator checks state machine definitions for mistakes the
// engine only reports at run time, and can apply fixes for some of them.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/amp-labs/stateful/statemachine"
)

// ValidationResult contains the results of validating a definition.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with an optional fix.
type ValidationError struct {
	Code     string
	Message  string
	Location Location
	Fix      *Fix
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
	Fix      *Fix
}

// Suggestion provides improvement recommendations.
type Suggestion struct {
	Message string
	Example string
}

// Location identifies where an issue occurred.
type Location struct {
	File  string
	State string
	Event string
}

func (l Location) String() string {
	var parts []string

	if l.File != "" {
		parts = append(parts, "file: "+l.File)
	}

	if l.State != "" {
		parts = append(parts, "state: "+l.State)
	}

	if l.Event != "" {
		parts = append(parts, "event: "+l.Event)
	}

	return strings.Join(parts, ", ")
}

// Validate checks def with the default rules. A nil host skips the checks
// that need callbacks to be resolved.
func Validate(def *statemachine.Definition, host statemachine.Host) ValidationResult {
	return ValidateWithRules(def, host, DefaultRules())
}

// ValidateFile loads a definition from a file and validates it.
func ValidateFile(path string, host statemachine.Host) (ValidationResult, error) {
	return ValidateFileWithOptions(path, host, false)
}

// ValidateFileStrict loads a definition from a file and validates it in
// strict mode.
func ValidateFileStrict(path string, host statemachine.Host) (ValidationResult, error) {
	return ValidateFileWithOptions(path, host, true)
}

// ValidateFileWithOptions loads a definition from a file and validates it.
func ValidateFileWithOptions(path string, host statemachine.Host, strict bool) (ValidationResult, error) {
	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Code:     CodeLoadFailed,
					Message:  fmt.Sprintf("Failed to load definition: %v", err),
					Location: Location{File: path},
				},
			},
		}, err
	}

	var result ValidationResult
	if strict {
		result = ValidateWithRulesStrict(def, host, DefaultRules())
	} else {
		result = Validate(def, host)
	}

	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules, plus any registered ones.
func ValidateWithRules(def *statemachine.Definition, host statemachine.Host, rules []Rule) ValidationResult {
	result := ValidationResult{Valid: true}

	if err := def.Validate(); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Code:    CodeInvalidDefinition,
			Message: err.Error(),
		})

		return result
	}

	var notes []Suggestion

	for _, rule := range slices.Concat(rules, registeredRules()) {
		ruleResult := rule.Check(def, host)
		result.Errors = append(result.Errors, ruleResult.Errors...)

		// Informational findings never fail validation, strict or not.
		if rule.Severity() == SeverityInfo {
			for _, warning := range ruleResult.Warnings {
				notes = append(notes, Suggestion{Message: warning.Message})
			}

			continue
		}

		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	sortIssues(result.Errors, func(e ValidationError) (string, Location) { return e.Code, e.Location })
	sortIssues(result.Warnings, func(w ValidationWarning) (string, Location) { return w.Code, w.Location })

	result.Valid = len(result.Errors) == 0
	result.Suggestions = append(notes, generateSuggestions(def)...)

	return result
}

// ValidateWithRulesStrict validates with warnings promoted to errors.
func ValidateWithRulesStrict(def *statemachine.Definition, host statemachine.Host, rules []Rule) ValidationResult {
	result := ValidateWithRules(def, host, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError(warning))
	}

	result.Warnings = nil
	result.Valid = len(result.Errors) == 0

	return result
}

func generateSuggestions(def *statemachine.Definition) []Suggestion {
	var suggestions []Suggestion

	if def.StartState == "" && def.StartEvent == "" && len(def.Transitions.EventsFrom(statemachine.InitState)) > 0 {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider declaring startEvent so Start runs the transition out of init",
			Example: `startEvent: initialized
transitions:
  init:
    initialized: idle`,
		})
	}

	if len(def.Transitions.EventsFrom(statemachine.Wildcard)) == 0 && len(def.StateNames()) > 3 { //nolint:mnd
		suggestions = append(suggestions, Suggestion{
			Message: "Consider a wildcard transition for events every state must handle",
			Example: `transitions:
  "*":
    reset: idle`,
		})
	}

	return suggestions
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("✓ Definition is valid\n")
	} else {
		fmt.Fprintf(&sb, "✗ Definition has %d error(s)\n", len(r.Errors))

		for _, err := range r.Errors {
			fmt.Fprintf(&sb, "  [%s] %s", err.Code, err.Message)

			if loc := err.Location.String(); loc != "" {
				fmt.Fprintf(&sb, " (%s)", loc)
			}

			sb.WriteString("\n")

			if err.Fix != nil {
				fmt.Fprintf(&sb, "    Fix: %s\n", err.Fix.Description)
			}
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "\n⚠ %d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s\n", warn.Code, warn.Message)
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(&sb, "\n%d suggestion(s) for improvement\n", len(r.Suggestions))
	}

	return sb.String()
}
