package instance

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/relab/qbft"
)

// Metrics holds the Prometheus metrics updated by instances.
type Metrics struct {
	// DroppedMessages counts inbound messages dropped, by reason.
	DroppedMessages *prometheus.CounterVec
	// RoundChanges counts round advances, by cause (timeout or justified).
	RoundChanges *prometheus.CounterVec
	// ValidationFailures counts proposals that failed validation.
	ValidationFailures prometheus.Counter
	// Decisions counts decided instances.
	Decisions prometheus.Counter
	// DecisionRound observes the round in which instances decided.
	DecisionRound prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg.
// If reg is nil, the metrics are not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DroppedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbft",
			Name:      "dropped_messages_total",
			Help:      "Total number of inbound messages dropped by consensus instances",
		}, []string{"reason"}),
		RoundChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbft",
			Name:      "round_changes_total",
			Help:      "Total number of round changes",
		}, []string{"cause"}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qbft",
			Name:      "validation_failures_total",
			Help:      "Total number of proposals that failed validation",
		}),
		Decisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qbft",
			Name:      "decisions_total",
			Help:      "Total number of decided instances",
		}),
		DecisionRound: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qbft",
			Name:      "decision_round",
			Help:      "Round in which instances decided",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}),
	}
}

// Drop reasons used as label values.
const (
	ReasonInvalidLeader     = "invalid_leader"
	ReasonUnknownValidation = "unknown_validation"
	ReasonStaleRound        = "stale_round"
	ReasonWrongRound        = "wrong_round"
	ReasonDuplicateProposal = "duplicate_proposal"
	ReasonUnknownOperator   = "unknown_operator"
	ReasonOther             = "other"
)

func dropReason(err error) string {
	switch {
	case errors.Is(err, qbft.ErrInvalidLeader):
		return ReasonInvalidLeader
	case errors.Is(err, qbft.ErrUnknownValidation):
		return ReasonUnknownValidation
	case errors.Is(err, qbft.ErrStaleRound):
		return ReasonStaleRound
	case errors.Is(err, qbft.ErrWrongRound):
		return ReasonWrongRound
	case errors.Is(err, qbft.ErrDuplicateProposal):
		return ReasonDuplicateProposal
	case errors.Is(err, qbft.ErrUnknownOperator):
		return ReasonUnknownOperator
	default:
		return ReasonOther
	}
}
