package leaderrotation

import (
	"github.com/relab/qbft"
)

// NameRoundRobin is the name of the round-robin leader rotation.
const NameRoundRobin = "round-robin"

// RoundRobin rotates the leadership through the membership in canonical order.
type RoundRobin struct{}

// NewRoundRobin returns a new round-robin leader rotation implementation.
func NewRoundRobin() RoundRobin {
	return RoundRobin{}
}

// IsLeader returns true if operator is the member at position round mod n.
func (RoundRobin) IsLeader(round qbft.Round, operator qbft.OperatorID, membership qbft.Membership) bool {
	if membership.Len() == 0 {
		return false
	}
	return chooseRoundRobin(round, membership) == operator
}

func chooseRoundRobin(round qbft.Round, membership qbft.Membership) qbft.OperatorID {
	return membership.At(int(uint64(round) % uint64(membership.Len())))
}

var _ qbft.LeaderSelector = RoundRobin{}
