package statemachine

import (
	"context"
	"os"
	"strings"

	"github.com/amp-labs/stateful/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startTransitionSpan creates the span covering one pipeline run.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startTransitionSpan(ctx context.Context, m *Machine, event, from, to string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.transition")
	addMachineAttributes(span, m)
	span.SetAttributes(
		attribute.String("event", event),
		attribute.String("from_state", from),
		attribute.String("to_state", to),
	)
	logSpanDebug(ctx, "started", "statemachine.transition", span)

	return ctx, span
}

// startCallbackSpan creates a child span for one callback.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startCallbackSpan(
	ctx context.Context,
	m *Machine,
	phase Phase,
	callback, state string,
) (context.Context, trace.Span) {
	spanName := "callback." + callback
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName)
	addMachineAttributes(span, m)
	span.SetAttributes(
		attribute.String("phase", string(phase)),
		attribute.String("callback", callback),
		attribute.String("state", state),
	)
	logSpanDebug(ctx, "started", spanName, span)

	return ctx, span
}

func addMachineAttributes(span trace.Span, m *Machine) {
	span.SetAttributes(
		attribute.String("machine", m.Name()),
		attribute.String("machine_id", m.ID()),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "completed")
	}

	span.End()
}

// logSpanDebug logs span creation when STATEFUL_DEBUG is set.
func logSpanDebug(ctx context.Context, phase string, spanName string, span trace.Span) {
	if !isDebugMode() {
		return
	}

	spanCtx := span.SpanContext()
	logger.Get(ctx).InfoContext(ctx, "OTEL Span "+phase,
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

func isDebugMode() bool {
	v := os.Getenv("STATEFUL_DEBUG")

	return v == "1" || strings.EqualFold(v, "true")
}
