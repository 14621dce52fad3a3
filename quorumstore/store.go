// Package quorumstore tallies the votes of distinct operators per round and vote kind.
package quorumstore

import (
	"bytes"
	"maps"
	"slices"

	"github.com/relab/qbft"
)

type key struct {
	round qbft.Round
	kind  qbft.VoteKind
}

// Store holds at most one vote per operator for every (round, kind) pair.
// A later vote from the same operator replaces the earlier one, so an operator
// can never contribute more than one vote to a tally.
//
// Store is not safe for concurrent use; it is owned by a single instance.
type Store struct {
	votes map[key]map[qbft.OperatorID][]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{votes: make(map[key]map[qbft.OperatorID][]byte)}
}

// Record stores the vote of operator for the given round and kind.
// It returns true if the vote was new or replaced a different value.
func (s *Store) Record(round qbft.Round, kind qbft.VoteKind, operator qbft.OperatorID, value []byte) bool {
	k := key{round, kind}
	byOperator, ok := s.votes[k]
	if !ok {
		byOperator = make(map[qbft.OperatorID][]byte)
		s.votes[k] = byOperator
	}
	if prev, ok := byOperator[operator]; ok && bytes.Equal(prev, value) {
		return false
	}
	byOperator[operator] = bytes.Clone(value)
	return true
}

// CountMatching returns the number of distinct operators whose vote for (round, kind) equals value.
// A nil and an empty value are considered equal.
func (s *Store) CountMatching(round qbft.Round, kind qbft.VoteKind, value []byte) int {
	count := 0
	for _, v := range s.votes[key{round, kind}] {
		if bytes.Equal(v, value) {
			count++
		}
	}
	return count
}

// Voters returns the operators that voted for (round, kind), in ascending order.
func (s *Store) Voters(round qbft.Round, kind qbft.VoteKind) []qbft.OperatorID {
	return slices.Sorted(maps.Keys(s.votes[key{round, kind}]))
}

// Leading returns the value with the most votes for (round, kind) and its count.
// Ties are broken in favour of the smallest value. It returns (nil, 0) if nobody voted.
func (s *Store) Leading(round qbft.Round, kind qbft.VoteKind) (value []byte, count int) {
	tally := make(map[string]int)
	for _, v := range s.votes[key{round, kind}] {
		tally[string(v)]++
	}
	for v, n := range tally {
		if n > count || (n == count && v < string(value)) {
			value, count = []byte(v), n
		}
	}
	return value, count
}

// Len returns the number of (round, kind) tallies held by the store.
func (s *Store) Len() int {
	return len(s.votes)
}

// Reset discards all votes.
func (s *Store) Reset() {
	clear(s.votes)
}
