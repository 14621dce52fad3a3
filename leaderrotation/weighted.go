package leaderrotation

import (
	"math/rand"

	wr "github.com/mroth/weightedrand"

	"github.com/relab/qbft"
)

// NameWeighted is the name of the weighted leader rotation.
const NameWeighted = "weighted"

// Weighted picks the leader of each round at random, with probability proportional to the operator's weight.
// The random source is seeded from a shared seed and the round number,
// so every operator with the same seed and weights picks the same leader without communicating.
type Weighted struct {
	seed    int64
	weights map[qbft.OperatorID]uint
}

// NewWeighted returns a new weighted leader rotation implementation.
// Members without an entry in weights get weight 1.
// A weight of 0 excludes the operator, unless all members have weight 0.
func NewWeighted(seed int64, weights map[qbft.OperatorID]uint) Weighted {
	w := make(map[qbft.OperatorID]uint, len(weights))
	for id, weight := range weights {
		w[id] = weight
	}
	return Weighted{seed: seed, weights: w}
}

func (w Weighted) weight(id qbft.OperatorID) uint {
	if weight, ok := w.weights[id]; ok {
		return weight
	}
	return 1
}

// leader returns the leader of the given round.
func (w Weighted) leader(round qbft.Round, membership qbft.Membership) qbft.OperatorID {
	choices := make([]wr.Choice, 0, membership.Len())
	for i := range membership.Len() {
		id := membership.At(i)
		choices = append(choices, wr.NewChoice(id, w.weight(id)))
	}

	chooser, err := wr.NewChooser(choices...)
	if err != nil {
		// no positive weights (or they overflow); fall back to round-robin
		return chooseRoundRobin(round, membership)
	}

	rnd := rand.New(rand.NewSource(w.seed + int64(round)))
	return chooser.PickSource(rnd).(qbft.OperatorID)
}

// IsLeader returns true if operator is the weighted choice for the round.
func (w Weighted) IsLeader(round qbft.Round, operator qbft.OperatorID, membership qbft.Membership) bool {
	if membership.Len() == 0 {
		return false
	}
	return w.leader(round, membership) == operator
}

var _ qbft.LeaderSelector = Weighted{}
