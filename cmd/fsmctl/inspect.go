package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/amp-labs/stateful/statemachine"
	"github.com/amp-labs/stateful/statemachine/validator"
	"github.com/amp-labs/stateful/statemachine/visualizer"
)

var errInvalidDefinition = errors.New("definition is invalid")

func newFlagSet(e *cliEnv, name, args, help string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: fsmctl %s [options] %s\n\n%s\n\nOptions:\n", name, args, help)
		fs.PrintDefaults()
	}

	return fs
}

// definitionArg parses args and loads the definition named by the first
// positional argument.
func definitionArg(fs *flag.FlagSet, args []string) (*statemachine.Definition, string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}

	if fs.NArg() < 1 {
		fs.Usage()

		return nil, "", fmt.Errorf("%w: definition file is required", errUsage)
	}

	path := fs.Arg(0)

	def, err := statemachine.LoadDefinition(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load definition: %w", err)
	}

	return def, path, nil
}

func splitList(s string) []string {
	var out []string

	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func runValidate(_ context.Context, e *cliEnv, args []string) error {
	fs := newFlagSet(e, "validate", "<definition.yaml>", "Check a definition for mistakes.")
	strict := fs.Bool("strict", false, "Treat warnings as errors")
	callbacks := fs.String("callbacks", "", "Comma-separated callbacks the host provides; checks callback names when set")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()

		return fmt.Errorf("%w: definition file is required", errUsage)
	}

	var host statemachine.Host

	if *callbacks != "" {
		cbs := statemachine.Callbacks{}
		for _, name := range splitList(*callbacks) {
			cbs[name] = func(context.Context, ...any) error { return nil }
		}

		host = cbs
	}

	result, err := validator.ValidateFileWithOptions(fs.Arg(0), host, *strict)
	fmt.Fprint(e.stdout, result.String())

	for _, s := range result.Suggestions {
		fmt.Fprintf(e.stdout, "  - %s\n", s.Message)
	}

	if err != nil {
		return err
	}

	if !result.Valid {
		return errInvalidDefinition
	}

	return nil
}

func runMermaid(_ context.Context, e *cliEnv, args []string) error {
	fs := newFlagSet(e, "mermaid", "<definition.yaml>", "Draw a definition as a Mermaid state diagram.")
	direction := fs.String("direction", "TB", "Diagram direction: TB or LR")
	noCallbacks := fs.Bool("no-callbacks", false, "Omit callback names")
	noTriggers := fs.Bool("no-triggers", false, "Omit cascaded events")
	collapse := fs.Bool("collapse-wildcards", false, "Draw wildcard transitions from a single * node")
	highlight := fs.String("highlight", "", "Comma-separated states to highlight")
	theme := fs.String("theme", "default", "Mermaid theme")
	raw := fs.Bool("raw", false, "Omit the markdown code fence")
	output := fs.String("o", "", "Write the diagram to this file instead of stdout")

	def, _, err := definitionArg(fs, args)
	if err != nil {
		return err
	}

	opts := visualizer.DefaultOptions().
		WithDirection(*direction).
		WithShowCallbacks(!*noCallbacks).
		WithShowTriggers(!*noTriggers).
		WithExpandWildcards(!*collapse).
		WithHighlightPath(splitList(*highlight)).
		WithTheme(*theme).
		WithFenced(!*raw)

	diagram, err := visualizer.GenerateMermaidWithOptions(def, opts)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(diagram), 0o644) //nolint:gosec,mnd
	}

	_, err = fmt.Fprint(e.stdout, diagram)

	return err
}

func runEvents(_ context.Context, e *cliEnv, args []string) error {
	fs := newFlagSet(e, "events", "<definition.yaml>", "List the events a definition declares, in declaration order.")

	def, _, err := definitionArg(fs, args)
	if err != nil {
		return err
	}

	for _, event := range def.Events() {
		fmt.Fprintln(e.stdout, event)
	}

	return nil
}

func runStates(_ context.Context, e *cliEnv, args []string) error {
	fs := newFlagSet(e, "states", "<definition.yaml>", "List the states a definition declares with their classes.")

	def, _, err := definitionArg(fs, args)
	if err != nil {
		return err
	}

	for _, state := range def.StateNames() {
		cfg := def.State(state)

		line := state
		if class := cfg.Class(state); class != state {
			line += " (class " + class + ")"
		}

		if state == def.StartState {
			line += " [start]"
		}

		fmt.Fprintln(e.stdout, line)
	}

	return nil
}
