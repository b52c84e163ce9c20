// Package errors accumulates failures from batch operations such as
// applying definition fixes.
package errors

import (
	"errors"
	"fmt"
	"slices"
)

// Collection accumulates errors and reports them as one. It is not safe for
// concurrent use.
type Collection struct {
	errors []error
}

// Add appends err. Nil errors are ignored.
func (c *Collection) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// Addf wraps err with a formatted prefix before adding it. Nil errors are
// ignored.
func (c *Collection) Addf(err error, format string, args ...any) {
	if err != nil {
		c.errors = append(c.errors, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err))
	}
}

// Clear empties the collection.
func (c *Collection) Clear() {
	c.errors = nil
}

// HasError reports whether at least one error was added.
func (c *Collection) HasError() bool {
	return len(c.errors) > 0
}

// Len returns the number of errors.
func (c *Collection) Len() int {
	return len(c.errors)
}

// Errors returns a copy of the collected errors.
func (c *Collection) Errors() []error {
	return slices.Clone(c.errors)
}

// GetError returns nil for an empty collection, the error itself when there
// is one, and errors.Join of all of them otherwise.
func (c *Collection) GetError() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		return errors.Join(c.errors...)
	}
}
