package statemachine

import (
	"context"
	"time"
)

type contextKey string

const pipelineContextKey contextKey = "statemachine_pipeline"

// TransitionInfo describes the transition a callback is running for.
type TransitionInfo struct {
	Machine string
	ID      string
	// Event is empty for ToState.
	Event string
	From  string
	To    string
}

// HistoryEntry records one committed state change.
type HistoryEntry struct {
	Event     string
	From      string
	To        string
	Timestamp time.Time
}

type pipelineInfo struct {
	machine *Machine
	info    TransitionInfo
}

func withPipeline(ctx context.Context, m *Machine, event, from, to string) context.Context {
	return context.WithValue(ctx, pipelineContextKey, &pipelineInfo{
		machine: m,
		info: TransitionInfo{
			Machine: m.Name(),
			ID:      m.ID(),
			Event:   event,
			From:    from,
			To:      to,
		},
	})
}

func inPipeline(ctx context.Context, m *Machine) bool {
	p, ok := ctx.Value(pipelineContextKey).(*pipelineInfo)

	return ok && p.machine == m
}

// MachineFromContext returns the machine whose pipeline is running ctx.
func MachineFromContext(ctx context.Context) (*Machine, bool) {
	p, ok := ctx.Value(pipelineContextKey).(*pipelineInfo)
	if !ok {
		return nil, false
	}

	return p.machine, true
}

// TransitionFromContext returns the transition being executed. It is only
// set inside callbacks.
func TransitionFromContext(ctx context.Context) (TransitionInfo, bool) {
	p, ok := ctx.Value(pipelineContextKey).(*pipelineInfo)
	if !ok {
		return TransitionInfo{}, false
	}

	return p.info, true
}
