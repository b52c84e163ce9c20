// Package model binds a state machine to a record of attributes. Attribute
// changes are published on the machine's event channel as "change:<attr>"
// followed by "change", and never interfere with the machine's own events.
package model

import (
	"context"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/amp-labs/stateful/statemachine"
)

// Change event names.
const (
	ChangeEventName   = "change"
	ChangeEventPrefix = "change:"
)

// Model is a state machine carrying attributes.
type Model struct {
	*statemachine.Machine

	mu    sync.RWMutex
	attrs map[string]any
}

// New wraps m with a copy of attrs. No change events are published for the
// initial attributes.
func New(m *statemachine.Machine, attrs map[string]any) *Model {
	if attrs == nil {
		attrs = make(map[string]any)
	}

	return &Model{Machine: m, attrs: maps.Clone(attrs)}
}

// Get returns the value of key.
func (m *Model) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.attrs[key]

	return v, ok
}

// Has reports whether key is set.
func (m *Model) Has(key string) bool {
	_, ok := m.Get(key)

	return ok
}

// Attributes returns a copy of every attribute.
func (m *Model) Attributes() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.attrs)
}

// Set sets one attribute. See SetAll.
func (m *Model) Set(ctx context.Context, key string, value any) bool {
	return m.SetAll(ctx, map[string]any{key: value})
}

// SetAll sets several attributes. For each attribute whose value changed,
// "change:<attr>" is emitted with the model and the new value; if any did,
// "change" is emitted once with the model. Keys are processed in sorted
// order. It reports whether anything changed.
func (m *Model) SetAll(ctx context.Context, attrs map[string]any) bool {
	m.mu.Lock()

	var changed []string

	for _, key := range slices.Sorted(maps.Keys(attrs)) {
		old, ok := m.attrs[key]
		if ok && reflect.DeepEqual(old, attrs[key]) {
			continue
		}

		m.attrs[key] = attrs[key]
		changed = append(changed, key)
	}

	m.mu.Unlock()

	return m.publish(ctx, changed, attrs)
}

// Unset removes key. "change:<key>" is emitted with a nil value.
func (m *Model) Unset(ctx context.Context, key string) bool {
	m.mu.Lock()

	_, ok := m.attrs[key]
	delete(m.attrs, key)

	m.mu.Unlock()

	if !ok {
		return false
	}

	return m.publish(ctx, []string{key}, nil)
}

func (m *Model) publish(ctx context.Context, changed []string, values map[string]any) bool {
	for _, key := range changed {
		m.Emit(ctx, ChangeEventPrefix+key, m, values[key])
	}

	if len(changed) == 0 {
		return false
	}

	m.Emit(ctx, ChangeEventName, m)

	return true
}
