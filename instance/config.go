package instance

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/relab/qbft"
	"github.com/relab/qbft/logging"
	"github.com/relab/qbft/synchronizer"
)

// DefaultInboundBuffer is the capacity of the inbound channel when Config.InboundBuffer is zero.
const DefaultInboundBuffer = 256

// Config holds the parameters of one consensus instance.
type Config struct {
	// Height identifies the instance among instances run by the same operators.
	Height qbft.InstanceHeight
	// OperatorID is the id of the local operator.
	OperatorID qbft.OperatorID
	// Membership is the fixed set of operators taking part in the instance.
	Membership qbft.Membership
	// QuorumSize is the number of distinct matching votes needed at each phase.
	QuorumSize int
	// InitialRound is the round the instance starts in.
	InitialRound qbft.Round
	// RoundTimeout is the duration of every round, unless RoundDuration is set.
	RoundTimeout time.Duration
	// RoundDuration, if set, determines the round durations instead of RoundTimeout.
	RoundDuration synchronizer.RoundDuration
	// LeaderSelector decides the leader of each round.
	LeaderSelector qbft.LeaderSelector
	// InboundBuffer is the capacity of the inbound channel. Defaults to DefaultInboundBuffer.
	InboundBuffer int
}

// Validate returns an error wrapping qbft.ErrConfigInvalid and every problem found, or nil.
func (c Config) Validate() error {
	var err error
	if c.QuorumSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("quorum size must be positive, got %d", c.QuorumSize))
	}
	if c.Membership.Len() == 0 {
		err = multierr.Append(err, errors.New("membership is empty"))
	} else if c.QuorumSize > c.Membership.Len() {
		err = multierr.Append(err, fmt.Errorf("quorum size %d exceeds membership size %d", c.QuorumSize, c.Membership.Len()))
	}
	if c.Membership.Len() > 0 && !c.Membership.Contains(c.OperatorID) {
		err = multierr.Append(err, fmt.Errorf("operator %d is not a member of %v", c.OperatorID, c.Membership))
	}
	if c.LeaderSelector == nil {
		err = multierr.Append(err, errors.New("leader selector is required"))
	}
	if c.RoundDuration == nil && c.RoundTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("round timeout must be positive, got %v", c.RoundTimeout))
	}
	if c.InboundBuffer < 0 {
		err = multierr.Append(err, fmt.Errorf("inbound buffer must not be negative, got %d", c.InboundBuffer))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", qbft.ErrConfigInvalid, err)
	}
	return nil
}

// Option configures optional collaborators of an instance.
type Option func(*Instance)

// WithLogger sets the logger used by the instance.
func WithLogger(logger logging.Logger) Option {
	return func(inst *Instance) {
		inst.logger = logger
	}
}

// WithMetrics sets the metrics updated by the instance.
// Instances may share one Metrics value.
func WithMetrics(metrics *Metrics) Option {
	return func(inst *Instance) {
		inst.metrics = metrics
	}
}

// WithTimer replaces the round timer.
func WithTimer(timer synchronizer.Timer) Option {
	return func(inst *Instance) {
		inst.timer = timer
	}
}
