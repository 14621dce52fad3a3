// Package config holds the configuration of a simulated QBFT run.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/relab/qbft"
	"github.com/relab/qbft/internal/sim"
	"github.com/relab/qbft/leaderrotation"
	"github.com/relab/qbft/processor"
)

// Config holds the configuration for a simulated run.
type Config struct {
	// Operators is the number of operators in the group.
	Operators int
	// Silent lists operators that never start.
	Silent []uint64
	// QuorumSize is the quorum size; zero derives it from the number of operators.
	QuorumSize int
	// Height is the instance height.
	Height uint64
	// RoundTimeout is the duration of the first round.
	RoundTimeout time.Duration
	// MaxRoundTimeout caps exponential round backoff; zero keeps the round duration fixed.
	MaxRoundTimeout time.Duration
	// Duration bounds the whole run.
	Duration time.Duration

	LeaderRotation string
	// Leader is the leader of the fixed leader rotation.
	Leader uint64
	// SharedSeed seeds the weighted leader rotation.
	SharedSeed int64
	// Weights are "operator:weight" pairs for the weighted leader rotation.
	Weights []string

	// LinkRate limits each simulated link in messages per second; zero means unlimited.
	LinkRate  float64
	LinkBurst int

	MaxWorkers int
	QueueSize  int

	LogLevel string
	// MetricsAddr is the address to serve Prometheus metrics on; empty disables it.
	MetricsAddr string

	// Output is the directory profiles are written to.
	Output        string
	CpuProfile    bool
	MemProfile    bool
	Trace         bool
	FgProfProfile bool
}

// Validate returns every problem with the configuration, combined.
func (c *Config) Validate() error {
	var err error
	if c.Operators <= 0 {
		err = multierr.Append(err, fmt.Errorf("operators must be positive, got %d", c.Operators))
	}
	if c.QuorumSize < 0 || c.QuorumSize > c.Operators {
		err = multierr.Append(err, fmt.Errorf("quorum size %d out of range [0, %d]", c.QuorumSize, c.Operators))
	}
	for _, id := range c.Silent {
		if id == 0 || id > uint64(c.Operators) {
			err = multierr.Append(err, fmt.Errorf("silent operator %d is not in the group", id))
		}
	}
	if c.RoundTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("round timeout must be positive, got %v", c.RoundTimeout))
	}
	if c.MaxRoundTimeout != 0 && c.MaxRoundTimeout < c.RoundTimeout {
		err = multierr.Append(err, fmt.Errorf("max round timeout %v is below the round timeout %v", c.MaxRoundTimeout, c.RoundTimeout))
	}
	if c.Duration <= 0 {
		err = multierr.Append(err, fmt.Errorf("duration must be positive, got %v", c.Duration))
	}
	if c.LinkRate < 0 {
		err = multierr.Append(err, fmt.Errorf("link rate must not be negative, got %v", c.LinkRate))
	}
	if _, werr := ParseWeights(c.Weights); werr != nil {
		err = multierr.Append(err, werr)
	}
	if _, lerr := leaderrotation.New(c.LeaderRotation, leaderrotation.Options{}); lerr != nil {
		err = multierr.Append(err, lerr)
	}
	return err
}

// ParseWeights parses "operator:weight" pairs.
func ParseWeights(pairs []string) (map[qbft.OperatorID]uint, error) {
	weights := make(map[qbft.OperatorID]uint, len(pairs))
	for _, pair := range pairs {
		id, weight, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("weight %q is not of the form operator:weight", pair)
		}
		op, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: invalid operator: %w", pair, err)
		}
		w, err := strconv.ParseUint(weight, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("weight %q: invalid weight: %w", pair, err)
		}
		weights[qbft.OperatorID(op)] = uint(w)
	}
	return weights, nil
}

// SimConfig converts the configuration to the configuration of a simulated group.
// It assumes that Validate returned nil.
func (c *Config) SimConfig() sim.Config {
	silent := make([]qbft.OperatorID, len(c.Silent))
	for i, id := range c.Silent {
		silent[i] = qbft.OperatorID(id)
	}
	weights, _ := ParseWeights(c.Weights)
	return sim.Config{
		Operators:       c.Operators,
		Silent:          silent,
		QuorumSize:      c.QuorumSize,
		Height:          qbft.InstanceHeight(c.Height),
		RoundTimeout:    c.RoundTimeout,
		MaxRoundTimeout: c.MaxRoundTimeout,
		LeaderRotation:  c.LeaderRotation,
		LeaderOptions: leaderrotation.Options{
			Leader:  qbft.OperatorID(c.Leader),
			Seed:    c.SharedSeed,
			Weights: weights,
		},
		LinkRate:  c.LinkRate,
		LinkBurst: c.LinkBurst,
		Processor: processor.Config{
			MaxWorkers: c.MaxWorkers,
			QueueSize:  c.QueueSize,
		},
	}
}

func (c *Config) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "Operators: %d", c.Operators)
	if len(c.Silent) > 0 {
		fmt.Fprintf(&s, ", Silent: %v", c.Silent)
	}
	fmt.Fprintf(&s, ", QuorumSize: %d, Height: %d, RoundTimeout: %v", c.QuorumSize, c.Height, c.RoundTimeout)
	if c.MaxRoundTimeout > 0 {
		fmt.Fprintf(&s, ", MaxRoundTimeout: %v", c.MaxRoundTimeout)
	}
	fmt.Fprintf(&s, ", LeaderRotation: %s", c.LeaderRotation)
	if c.LinkRate > 0 {
		fmt.Fprintf(&s, ", LinkRate: %v/s (burst %d)", c.LinkRate, c.LinkBurst)
	}
	return s.String()
}
