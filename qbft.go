// Package qbft contains the types shared by the components of a round-based
// Byzantine fault tolerant agreement engine for a group of validator operators.
//
// A consensus instance (see package instance) drives a fixed membership of
// operators to agree on one value. Each round has a leader that proposes a value,
// operators validate the proposal and broadcast a prepare vote, and a quorum of
// matching prepares leads to a confirm vote. A quorum of matching confirms decides
// the value. Rounds that do not decide in time are abandoned through round changes.
package qbft

// LeaderSelector decides which operator leads a round.
//
// Implementations must be pure and deterministic: every honest operator must
// compute the same leader from the same round and membership, and exactly one
// member must be the leader of any round.
//
//go:generate mockgen -destination=internal/mocks/leaderselector_mock.go -package=mocks . LeaderSelector
type LeaderSelector interface {
	// IsLeader returns true if operator leads the given round.
	IsLeader(round Round, operator OperatorID, membership Membership) bool
}

// LeaderOf returns the leader of the given round and true,
// or false if the selector does not name a member as the leader.
func LeaderOf(selector LeaderSelector, round Round, membership Membership) (OperatorID, bool) {
	for i := range membership.Len() {
		if id := membership.At(i); selector.IsLeader(round, id, membership) {
			return id, true
		}
	}
	return 0, false
}
