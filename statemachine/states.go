package statemachine

// StateConfig holds per-state callbacks and view data.
type StateConfig struct {
	// Enter callbacks run, in order, each time the machine enters the state.
	Enter []string `json:"enter,omitempty" yaml:"enter,omitempty"`

	// Leave callbacks run, in order, before the machine leaves the state.
	Leave []string `json:"leave,omitempty" yaml:"leave,omitempty"`

	// ClassName is the presentation class a view shows while in the state.
	// Empty means the state name itself.
	ClassName string `json:"className,omitempty" yaml:"className,omitempty"`

	// Metadata is carried through untouched for tooling.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Class returns the presentation class for state.
func (s StateConfig) Class(state string) string {
	if s.ClassName != "" {
		return s.ClassName
	}

	return state
}
