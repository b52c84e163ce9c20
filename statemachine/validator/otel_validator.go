package validator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/amp-labs/stateful/statemachine"
)

// spanNameRule reports callback names that make poor span names. The engine
// names callback spans "callback.<name>".
type spanNameRule struct{}

func (r *spanNameRule) Name() string { return "SpanName" }

func (r *spanNameRule) Severity() Severity { return SeverityWarning }

func (r *spanNameRule) Check(def *statemachine.Definition, _ statemachine.Host) RuleResult {
	var result RuleResult

	for _, name := range def.CallbackNames() {
		if !strings.ContainsFunc(name, unicode.IsSpace) {
			continue
		}

		result.Warnings = append(result.Warnings, ValidationWarning{
			Code:    CodeSpanName,
			Message: fmt.Sprintf("Callback '%s' contains whitespace and produces an awkward span name", name),
		})
	}

	return result
}
