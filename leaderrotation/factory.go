// Package leaderrotation provides deterministic leader selection strategies.
package leaderrotation

import (
	"fmt"

	"github.com/relab/qbft"
)

// Options holds the parameters used by the leader rotations that need them.
type Options struct {
	// Leader is the operator used by the fixed rotation.
	Leader qbft.OperatorID
	// Seed is the shared seed used by the weighted rotation.
	Seed int64
	// Weights are the operator weights used by the weighted rotation.
	Weights map[qbft.OperatorID]uint
}

// New returns the leader rotation with the given name.
func New(name string, opts Options) (ls qbft.LeaderSelector, _ error) {
	switch name {
	case "":
		fallthrough // default to round-robin if no name is provided
	case NameRoundRobin:
		ls = NewRoundRobin()
	case NameFixed:
		ls = NewFixed(opts.Leader)
	case NameWeighted:
		ls = NewWeighted(opts.Seed, opts.Weights)
	default:
		return nil, fmt.Errorf("invalid leader-rotation algorithm: '%s'", name)
	}
	return
}

// Names returns the names accepted by New.
func Names() []string {
	return []string{NameRoundRobin, NameFixed, NameWeighted}
}
