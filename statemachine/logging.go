package statemachine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amp-labs/stateful/logger"
)

// Logger provides logging hooks for machine execution.
type Logger interface {
	MachineStarted(ctx context.Context, state string)
	TransitionStarted(ctx context.Context, event, from, to string)
	TransitionCompleted(ctx context.Context, event, from, to string, duration time.Duration, err error)
	CallbackCompleted(ctx context.Context, phase Phase, callback, state string, duration time.Duration, err error)
	EventUnresolved(ctx context.Context, event, state string)
}

var discard = slog.New(slog.DiscardHandler) //nolint:gochecknoglobals

// DefaultLogger implements Logger using slog. A context muted with
// logger.WithMuted silences it. Without an explicit logger it
// logs through the context-aware logger package.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger that resolves its slog.Logger from the
// context of each call.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

// NewSlogLogger creates a logger writing to l. Callback failures are
// logged with their callback, phase and state as attributes.
func NewSlogLogger(l *slog.Logger) *DefaultLogger {
	return &DefaultLogger{logger: slog.New(logger.ErrorAttrHandler(l.Handler()))}
}

func (l *DefaultLogger) get(ctx context.Context) *slog.Logger {
	if logger.IsMuted(ctx) {
		return discard
	}

	if l.logger != nil {
		return l.logger
	}

	return logger.Get(ctx)
}

// fields adds machine identity for explicit loggers; logger.Get already
// carries it through the context.
func (l *DefaultLogger) fields(ctx context.Context, fields ...any) []any {
	if l.logger == nil {
		return fields
	}

	info, ok := TransitionFromContext(ctx)
	if !ok {
		return fields
	}

	return append(fields, "machine", info.Machine, "machine_id", info.ID)
}

func (l *DefaultLogger) MachineStarted(ctx context.Context, state string) {
	l.get(ctx).DebugContext(ctx, "State machine started", "state", state)
}

func (l *DefaultLogger) TransitionStarted(ctx context.Context, event, from, to string) {
	l.get(ctx).DebugContext(ctx, "Transition started",
		l.fields(ctx, "event", event, "from", from, "to", to)...)
}

func (l *DefaultLogger) TransitionCompleted(
	ctx context.Context,
	event, from, to string,
	duration time.Duration,
	err error,
) {
	fields := l.fields(ctx,
		"event", event,
		"from", from,
		"to", to,
		"duration_ms", duration.Milliseconds(),
	)

	if err != nil {
		var ce *CallbackError
		if errors.As(err, &ce) {
			err = logger.AnnotateError(err,
				"callback", ce.Callback,
				"phase", string(ce.Phase),
				"callback_state", ce.State)
		}

		l.get(ctx).ErrorContext(ctx, "Transition failed", append(fields, "error", err)...)
	} else {
		l.get(ctx).InfoContext(ctx, "Transition executed", fields...)
	}
}

func (l *DefaultLogger) CallbackCompleted(
	ctx context.Context,
	phase Phase,
	callback, state string,
	duration time.Duration,
	err error,
) {
	fields := l.fields(ctx,
		"phase", string(phase),
		"callback", callback,
		"state", state,
		"duration_ms", duration.Milliseconds(),
	)

	if err != nil {
		l.get(ctx).ErrorContext(ctx, "Callback completed with error", append(fields, "error", err)...)
	} else {
		l.get(ctx).DebugContext(ctx, "Callback completed", fields...)
	}
}

func (l *DefaultLogger) EventUnresolved(ctx context.Context, event, state string) {
	l.get(ctx).DebugContext(ctx, "No transition for event", "event", event, "state", state)
}

type nopLogger struct{}

func (nopLogger) MachineStarted(context.Context, string)                    {}
func (nopLogger) TransitionStarted(context.Context, string, string, string) {}
func (nopLogger) EventUnresolved(context.Context, string, string)           {}

func (nopLogger) TransitionCompleted(context.Context, string, string, string, time.Duration, error) {}

func (nopLogger) CallbackCompleted(context.Context, Phase, string, string, time.Duration, error) {}
