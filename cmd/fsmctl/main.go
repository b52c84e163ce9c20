// Command fsmctl validates, draws and runs state machine definitions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/amp-labs/stateful/build"
	"github.com/amp-labs/stateful/logger"
	"github.com/amp-labs/stateful/shutdown"
	"github.com/amp-labs/stateful/stage"
	"github.com/amp-labs/stateful/telemetry"
)

var (
	version   = "dev"
	buildInfo = ""
)

var errUsage = errors.New("usage")

type command func(ctx context.Context, e *cliEnv, args []string) error

var commands = map[string]command{
	"validate": runValidate,
	"mermaid":  runMermaid,
	"events":   runEvents,
	"states":   runStates,
	"run":      runRun,
}

// cliEnv is what a command talks to.
type cliEnv struct {
	stdout io.Writer
	stderr io.Writer
	picker picker
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `fsmctl - state machine definition tool (version %s)

Usage:
  fsmctl <command> [options] <definition.yaml>

Commands:
  validate   Check a definition for mistakes
  mermaid    Draw a definition as a Mermaid state diagram
  events     List the events a definition declares
  states     List the states a definition declares
  run        Replay events against a definition (-i to pick them interactively)
  version    Print the version (-verbose for build details)

Run 'fsmctl <command> -h' for command-specific help.
`, version)
}

func execute(ctx context.Context, e *cliEnv, args []string) error {
	if len(args) == 0 {
		usage(e.stderr)

		return errUsage
	}

	switch args[0] {
	case "-h", "--help", "help":
		usage(e.stdout)

		return nil
	case "-v", "--version":
		fmt.Fprintln(e.stdout, version)

		return nil
	case "version":
		return runVersion(ctx, e, args[1:])
	}

	fn, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(e.stderr, "unknown command: %s\n\n", args[0])
		usage(e.stderr)

		return errUsage
	}

	return fn(ctx, e, args[1:])
}

func main() {
	ctx := logger.WithSubsystem(shutdown.SetupHandler(context.Background()), "fsmctl")

	if _, err := logger.ConfigureLogging(ctx, "fsmctl", logger.WithOutput(os.Stderr)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg, err := telemetry.LoadConfigFromEnv(ctx, string(stage.Current())); err != nil {
		logger.Get(ctx).Warn("Ignoring telemetry configuration", "error", err)
	} else if err := telemetry.Initialize(ctx, cfg); err != nil {
		logger.Get(ctx).Warn("Telemetry disabled", "error", err)
	}

	e := &cliEnv{
		stdout: &syncWriter{w: os.Stdout},
		stderr: os.Stderr,
		picker: promptPicker{},
	}

	err := execute(ctx, e, os.Args[1:])

	shutdown.RunHooks()

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second) //nolint:mnd
	defer cancel()

	if terr := telemetry.Shutdown(flushCtx); terr != nil {
		logger.Get(ctx).Warn("Failed to flush telemetry", "error", terr)
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		os.Exit(2) //nolint:gocritic
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runVersion(_ context.Context, e *cliEnv, args []string) error {
	fs := newFlagSet(e, "version", "", "Print the version of fsmctl.")
	verbose := fs.Bool("verbose", false, "include build details and dependencies")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintln(e.stdout, version)

	if !*verbose {
		return nil
	}

	info := build.Read(buildInfo)
	if info == nil {
		return nil
	}

	for _, kv := range [][2]string{
		{"commit", info.GitCommit},
		{"date", info.GitDate},
		{"built", info.BuildTime},
		{"go", info.GoVersion},
	} {
		if kv[1] != "" {
			fmt.Fprintf(e.stdout, "%-7s %s\n", kv[0]+":", kv[1])
		}
	}

	for _, dep := range info.SortedDependencies() {
		fmt.Fprintf(e.stdout, "  %s %s\n", dep, info.Dependencies[dep])
	}

	return nil
}

// syncWriter serializes writes from listeners and callbacks running on
// worker goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}
