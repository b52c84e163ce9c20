package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/amp-labs/stateful/cli"
	"github.com/amp-labs/stateful/logger"
	"github.com/amp-labs/stateful/statemachine"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var errCallbackFailed = errors.New("callback failed")

// picker chooses the next event in interactive runs.
type picker interface {
	Select(label string, choices []string) (string, error)
	Args(label string) (string, error)
	Confirm(label string) (bool, error)
}

type promptPicker struct{}

func (promptPicker) Select(label string, choices []string) (string, error) {
	return cli.Select(label, choices)
}

func (promptPicker) Args(label string) (string, error) {
	return cli.PromptStringEmptyOk(label)
}

func (promptPicker) Confirm(label string) (bool, error) {
	return cli.Confirm(label, true)
}

func runRun(ctx context.Context, e *cliEnv, args []string) error {
	fs := newFlagSet(e, "run", "<definition.yaml> [event[:arg,...] ...]",
		"Replay events against a definition whose callbacks only print themselves.")
	interactive := fs.Bool("i", false, "Pick events interactively")
	start := fs.String("start", "", "Start state overriding the definition's")
	silent := fs.Bool("silent", false, "Hide lifecycle events from the event stream")
	failing := fs.String("fail", "", "Comma-separated callbacks that fail when called")
	metricsAddr := fs.String("metrics", "", "Serve Prometheus metrics on this address while running")
	logEngine := fs.Bool("log", false, "Log engine activity to stderr")

	def, _, err := definitionArg(fs, args)
	if err != nil {
		return err
	}

	engineLog := slog.New(slog.NewTextHandler(&syncWriter{w: e.stderr}, &slog.HandlerOptions{Level: slog.LevelDebug}))

	m, err := statemachine.New(def, printingHost(e.stdout, splitList(*failing)),
		statemachine.WithSilent(*silent),
		statemachine.WithLogger(statemachine.NewSlogLogger(engineLog)))
	if err != nil {
		return err
	}

	m.OnAll(func(_ context.Context, ev statemachine.Event) {
		fmt.Fprintln(e.stdout, formatEvent(ev))
	})

	if *metricsAddr != "" {
		stop := serveMetrics(ctx, *metricsAddr)
		defer stop()
	}

	ctx = logger.WithMuted(ctx, !*logEngine)

	var opts []statemachine.StartOption
	if *start != "" {
		opts = append(opts, statemachine.WithStartState(*start))
	}

	if err := m.Start(ctx, opts...); err != nil {
		return err
	}

	if *interactive {
		return interact(ctx, e, m)
	}

	for _, step := range fs.Args()[1:] {
		event, eventArgs := parseStep(step)

		if _, err := m.TriggerAsync(ctx, event, eventArgs...).AwaitContext(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(e.stdout, "final state: %s\n", m.CurrentState())

	return nil
}

func interact(ctx context.Context, e *cliEnv, m *statemachine.Machine) error {
	for {
		fmt.Fprint(e.stdout, cli.BannerAutoWidth(m.Name()+": "+m.CurrentState(), cli.AlignCenter))

		event, err := e.picker.Select("Event", m.Events())
		if errors.Is(err, cli.ErrDone) {
			fmt.Fprintf(e.stdout, "final state: %s\n", m.CurrentState())

			return nil
		}

		if err != nil {
			return err
		}

		line, err := e.picker.Args("Arguments (comma separated, optional)")
		if err != nil {
			return err
		}

		_, err = m.TriggerAsync(ctx, event, splitArgs(line)...).AwaitContext(ctx)
		if err == nil {
			continue
		}

		fmt.Fprintf(e.stdout, "error: %v\n", err)

		// The failed transition may already have committed.
		ok, cerr := e.picker.Confirm("Continue from " + m.CurrentState())
		if cerr != nil {
			return cerr
		}

		if !ok {
			return err
		}
	}
}

// printingHost resolves every callback name to one printing its call.
// Callbacks named in failing return an error.
func printingHost(w io.Writer, failing []string) statemachine.Host {
	return statemachine.HostFunc(func(name string) (statemachine.Callback, bool) {
		return func(_ context.Context, args ...any) error {
			fmt.Fprintf(w, "  callback %s%s\n", name, formatArgs(args))

			if slices.Contains(failing, name) {
				return fmt.Errorf("%w: %s", errCallbackFailed, name)
			}

			return nil
		}, true
	})
}

// parseStep splits "event:a,b" into the event and its arguments.
func parseStep(step string) (string, []any) {
	event, rest, found := strings.Cut(step, ":")
	if !found {
		return step, nil
	}

	return event, splitArgs(rest)
}

func splitArgs(s string) []any {
	parts := splitList(s)
	args := make([]any, 0, len(parts))

	for _, p := range parts {
		args = append(args, p)
	}

	return args
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}

	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

func formatEvent(ev statemachine.Event) string {
	switch ev.Kind {
	case statemachine.EventTransition:
		return fmt.Sprintf("%-10s %s -> %s%s", ev.Kind, ev.From, ev.To, formatArgs(ev.Args))
	case statemachine.EventLeaveState, statemachine.EventEnterState:
		return fmt.Sprintf("%-10s %s%s", ev.Kind, ev.State, formatArgs(ev.Args))
	default:
		return fmt.Sprintf("%-10s %s%s", ev.Kind, ev.Name, formatArgs(ev.Args))
	}
}

func serveMetrics(ctx context.Context, addr string) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second, //nolint:mnd
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get(ctx).Error("Metrics server failed", "error", err)
		}
	}()

	logger.Get(ctx).Info("Serving metrics", "addr", addr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}
}
