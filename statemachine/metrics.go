package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

var (
	// transitionsTotal counts pipeline runs by machine, event, states and outcome.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of transitions by machine, event, from_state, to_state and outcome",
	}, []string{"machine", "event", "from_state", "to_state", "outcome"})

	// unresolvedEventsTotal counts events that matched no transition.
	unresolvedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_unresolved_events_total",
		Help: "Total number of triggered events with no transition from the current state",
	}, []string{"machine", "event", "state"})

	transitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_transition_duration_seconds",
		Help:    "Duration of the transition pipeline by machine, event and outcome",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"machine", "event", "outcome"})

	callbackDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_callback_duration_seconds",
		Help:    "Duration of callback execution by machine, phase, callback and outcome",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"machine", "phase", "callback", "outcome"})

	// queueDepth tracks queued and running transitions per machine name.
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statemachine_queue_depth",
		Help: "Number of queued or running transitions by machine",
	}, []string{"machine"})
)

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}

	return outcomeSuccess
}

func sanitizeMachine(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}

// sanitizeEvent labels ToState runs, which have no event.
func sanitizeEvent(event string) string {
	if event == "" {
		return "none"
	}

	return event
}
