package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"peace-cake-service/internal/domain"
)

const namespace = "peace_cake"

var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Live sessions created since process start.",
	})

	questionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "questions_resolved_total",
		Help:      "Questions resolved, by primary outcome.",
	}, []string{"outcome"})

	stealAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "steal_attempts_total",
		Help:      "Steal attempts applied, by outcome.",
	}, []string{"outcome"})

	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_operation_errors_total",
		Help:      "Failed session operations, by operation and error kind.",
	}, []string{"operation", "kind"})
)

func SessionCreated() {
	sessionsCreated.Inc()
}

// QuestionResolved counts a successful resolution and its optional steal.
func QuestionResolved(res domain.Resolution) {
	questionsResolved.WithLabelValues(string(res.Outcome)).Inc()
	if res.StealAttempt != nil {
		stealAttempts.WithLabelValues(string(res.StealAttempt.Outcome)).Inc()
	}
}

// OperationFailed counts err under its domain kind.
func OperationFailed(operation string, err error) {
	operationErrors.WithLabelValues(operation, Kind(err)).Inc()
}

// Kind names the domain error kind of err.
func Kind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrAlreadyExists):
		return "already_exists"
	default:
		return "internal"
	}
}
