package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowCallbacks labels edges with transition callbacks and states with
	// their enter and leave callbacks.
	ShowCallbacks bool

	// ShowTriggers labels edges with the event their transition cascades to.
	ShowTriggers bool

	// ExpandWildcards draws a wildcard entry as one edge per state it applies
	// to. When false, wildcard entries leave a single "*" node.
	ExpandWildcards bool

	// Direction controls diagram flow: "TB" (top-bottom) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string

	// Theme controls the color scheme: "default", "dark", "forest"
	Theme string

	// Fenced wraps the diagram in a markdown code fence.
	Fenced bool
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowCallbacks:   true,
		ShowTriggers:    true,
		ExpandWildcards: true,
		Direction:       "TB",
		Theme:           "default",
		Fenced:          true,
	}
}

// WithShowCallbacks enables/disables callback labels.
func (o Options) WithShowCallbacks(show bool) Options {
	o.ShowCallbacks = show

	return o
}

// WithShowTriggers enables/disables trigger labels.
func (o Options) WithShowTriggers(show bool) Options {
	o.ShowTriggers = show

	return o
}

// WithExpandWildcards enables/disables per-state wildcard edges.
func (o Options) WithExpandWildcards(expand bool) Options {
	o.ExpandWildcards = expand

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithTheme sets the color theme.
func (o Options) WithTheme(theme string) Options {
	o.Theme = theme

	return o
}

// WithFenced enables/disables the markdown code fence.
func (o Options) WithFenced(fenced bool) Options {
	o.Fenced = fenced

	return o
}
