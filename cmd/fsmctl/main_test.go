package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amp-labs/stateful/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const visibilityYAML = `
name: visibility
startEvent: initialized
transitions:
  init:
    initialized: visible
  visible:
    hide: {enterState: hidden, callbacks: [visibleToHidden]}
  hidden:
    show: {enterState: visible, triggers: showTime}
  "*":
    panic: panicking
states:
  visible:
    enter: [enterVisible]
  hidden:
    className: hiddenBehindTree
`

func writeDefinition(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "machine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

type fakePicker struct {
	events []string
	args   []string
	// stops answers Confirm; an empty list means continue.
	stops []bool
}

func (f *fakePicker) Select(_ string, choices []string) (string, error) {
	if len(f.events) == 0 {
		return "", cli.ErrDone
	}

	next := f.events[0]
	f.events = f.events[1:]

	if next == "boom" {
		return "", errors.New("terminal gone")
	}

	for _, choice := range choices {
		if choice == next {
			return next, nil
		}
	}

	return "", errors.New("not offered: " + next)
}

func (f *fakePicker) Args(string) (string, error) {
	if len(f.args) == 0 {
		return "", nil
	}

	next := f.args[0]
	f.args = f.args[1:]

	return next, nil
}

func (f *fakePicker) Confirm(string) (bool, error) {
	if len(f.stops) == 0 {
		return true, nil
	}

	stop := f.stops[0]
	f.stops = f.stops[1:]

	return !stop, nil
}

func run(t *testing.T, p picker, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	e := &cliEnv{stdout: &syncWriter{w: &stdout}, stderr: &stderr, picker: p}
	err := execute(context.Background(), e, args)

	return stdout.String(), stderr.String(), err
}

func TestExecute_Usage(t *testing.T) {
	t.Parallel()

	_, stderr, err := run(t, nil)
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "Usage:")

	_, stderr, err = run(t, nil, "nope")
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "unknown command: nope")

	stdout, _, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", stdout)

	stdout, _, err = run(t, nil, "version", "-verbose")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, version+"\n"))
	assert.Contains(t, stdout, "go:")

	_, _, err = run(t, nil, "events")
	require.ErrorIs(t, err, errUsage)

	_, _, err = run(t, nil, "events", "-h")
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	path := writeDefinition(t, visibilityYAML)

	stdout, _, err := run(t, nil, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Definition is valid")
	assert.Contains(t, stdout, "DANGLING_TRIGGER")

	_, _, err = run(t, nil, "validate", "-strict", path)
	require.ErrorIs(t, err, errInvalidDefinition)

	stdout, _, err = run(t, nil, "validate", "-callbacks", "enterVisible", path)
	require.ErrorIs(t, err, errInvalidDefinition)
	assert.Contains(t, stdout, "Callback 'visibleToHidden'")

	_, _, err = run(t, nil, "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMermaid(t *testing.T) {
	t.Parallel()

	path := writeDefinition(t, visibilityYAML)

	stdout, _, err := run(t, nil, "mermaid", "-direction", "LR", "-raw", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "stateDiagram-v2\n    direction LR\n"))
	assert.Contains(t, stdout, "visible --> hidden: hide / visibleToHidden")
	assert.Contains(t, stdout, "hidden --> visible: show ⇒ showTime")

	out := filepath.Join(t.TempDir(), "diagram.md")
	_, _, err = run(t, nil, "mermaid", "-collapse-wildcards", "-o", out, path)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "any_state --> panicking: panic")
}

func TestEventsAndStates(t *testing.T) {
	t.Parallel()

	path := writeDefinition(t, visibilityYAML)

	stdout, _, err := run(t, nil, "events", path)
	require.NoError(t, err)
	assert.Equal(t, "initialized\nhide\nshow\npanic\n", stdout)

	stdout, _, err = run(t, nil, "states", path)
	require.NoError(t, err)
	assert.Equal(t, "init\nvisible\nhidden (class hiddenBehindTree)\npanicking\n", stdout)
}

func TestRun(t *testing.T) {
	t.Parallel()

	path := writeDefinition(t, visibilityYAML)

	stdout, _, err := run(t, nil, "run", path, "hide:behind,a tree", "nothing")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"raw        initialized",
		"leaveState init",
		"transition init -> visible",
		"  callback enterVisible",
		"enterState visible",
		"raw        hide(behind, a tree)",
		"leaveState visible(behind, a tree)",
		"transition visible -> hidden(behind, a tree)",
		"  callback visibleToHidden(behind, a tree)",
		"enterState hidden(behind, a tree)",
		"raw        nothing",
		"final state: hidden",
		"",
	}, "\n"), stdout)
}

func TestRun_SilentAndFailing(t *testing.T) {
	t.Parallel()

	path := writeDefinition(t, visibilityYAML)

	stdout, _, err := run(t, nil, "run", "-silent", "-start", "visible", "-fail", "visibleToHidden", path, "hide")
	require.ErrorIs(t, err, errCallbackFailed)

	assert.Equal(t, "raw        hide\n  callback visibleToHidden\n", stdout)
}

func TestRun_EngineLog(t *testing.T) {
	t.Parallel()

	path := writeDefinition(t, visibilityYAML)

	_, stderr, err := run(t, nil, "run", path, "hide")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	_, stderr, err = run(t, nil, "run", "-log", path, "hide")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Transition executed")
	assert.Contains(t, stderr, "event=hide")
}

func TestRun_Interactive(t *testing.T) {
	t.Parallel()

	path := writeDefinition(t, visibilityYAML)

	p := &fakePicker{events: []string{"hide", "show"}, args: []string{"x, y"}}

	stdout, _, err := run(t, p, "run", "-i", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "  callback visibleToHidden(x, y)")
	assert.Contains(t, stdout, "cascade    showTime")
	assert.True(t, strings.HasSuffix(stdout, "final state: visible\n"))

	_, _, err = run(t, &fakePicker{events: []string{"boom"}}, "run", "-i", path)
	require.Error(t, err)
}

func TestRun_InteractiveFailure(t *testing.T) {
	t.Parallel()

	path := writeDefinition(t, visibilityYAML)

	p := &fakePicker{events: []string{"hide", "show"}}

	stdout, _, err := run(t, p, "run", "-i", "-fail", "visibleToHidden", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "error: ")
	assert.True(t, strings.HasSuffix(stdout, "final state: visible\n"))

	p = &fakePicker{events: []string{"hide", "show"}, stops: []bool{true}}

	stdout, _, err = run(t, p, "run", "-i", "-fail", "visibleToHidden", path)
	require.ErrorIs(t, err, errCallbackFailed)
	assert.NotContains(t, stdout, "final state")
	assert.Equal(t, []string{"show"}, p.events)
}

func TestParseStep(t *testing.T) {
	t.Parallel()

	event, args := parseStep("hide")
	assert.Equal(t, "hide", event)
	assert.Nil(t, args)

	event, args = parseStep("show: a , b,")
	assert.Equal(t, "show", event)
	assert.Equal(t, []any{"a", "b"}, args)
}
