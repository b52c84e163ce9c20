package statemachine

import (
	"context"
	"errors"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T, name string, host Host) *Machine {
	t.Helper()

	def, err := NewBuilder(name).
		AddTransitionConfig("idle", "run", Transition{EnterState: "running", Callbacks: []string{"work"}}).
		AddTransition("running", "stop", "idle").
		Build()
	require.NoError(t, err)

	m, err := New(def, host, WithLogger(NewSlogLogger(slogt.New(t))))
	require.NoError(t, err)
	require.NoError(t, m.Start(t.Context(), WithStartState("idle")))

	return m
}

func TestTransitionMetrics(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, "metrics-transitions", Callbacks{
		"work": func(context.Context, ...any) error { return nil },
	})

	_, err := m.TriggerAsync(t.Context(), "run").Await()
	require.NoError(t, err)

	_, err = m.TriggerAsync(t.Context(), "run").Await()
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues(
		"metrics-transitions", "run", "idle", "running", outcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(unresolvedEventsTotal.WithLabelValues(
		"metrics-transitions", "run", "running")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(queueDepth.WithLabelValues("metrics-transitions")), 0)
}

func TestTransitionMetrics_Failure(t *testing.T) {
	t.Parallel()

	m := newTestMachine(t, "metrics-failure", Callbacks{
		"work": func(context.Context, ...any) error { return errors.New("nope") }, //nolint:err113
	})

	_, err := m.TriggerAsync(t.Context(), "run").Await()
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues(
		"metrics-failure", "run", "idle", "running", outcomeError)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(queueDepth.WithLabelValues("metrics-failure")), 0)
	assert.Positive(t, testutil.CollectAndCount(callbackDuration))
}

func TestSanitization(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", sanitizeMachine(""))
	assert.Equal(t, "door", sanitizeMachine("door"))
	assert.Equal(t, "none", sanitizeEvent(""))
	assert.Equal(t, "open", sanitizeEvent("open"))
	assert.Equal(t, outcomeError, outcome(errors.New("x"))) //nolint:err113
	assert.Equal(t, outcomeSuccess, outcome(nil))
}
