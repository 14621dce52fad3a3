package leaderrotation

import (
	"github.com/relab/qbft"
)

// NameFixed is the name of the fixed leader rotation.
const NameFixed = "fixed"

// Fixed always selects the same operator.
// If that operator is not a member, the first member in canonical order leads instead,
// so that every round still has exactly one leader.
type Fixed struct {
	leader qbft.OperatorID
}

// NewFixed returns a new fixed-leader leader rotation implementation.
func NewFixed(leader qbft.OperatorID) Fixed {
	return Fixed{leader: leader}
}

// IsLeader returns true if operator is the fixed leader.
func (f Fixed) IsLeader(_ qbft.Round, operator qbft.OperatorID, membership qbft.Membership) bool {
	if membership.Len() == 0 {
		return false
	}
	if membership.Contains(f.leader) {
		return operator == f.leader
	}
	return operator == membership.At(0)
}

var _ qbft.LeaderSelector = Fixed{}
